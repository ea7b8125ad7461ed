// Package config loads the formflow YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/untillpro/goutils/logger"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure reported by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the full configuration tree.
type Config struct {
	API          API          `yaml:"api"`
	Form         Form         `yaml:"form"`
	Availability Availability `yaml:"availability"`
	Server       Server       `yaml:"server"`
	LogLevel     string       `yaml:"log_level"`
}

// API points the client at the remote service.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Form tunes the form controller.
type Form struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Availability configures the lookup cache. A zero size disables it.
type Availability struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Server configures the stub service.
type Server struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Form: Form{Debounce: time.Second},
		Availability: Availability{
			CacheSize: 128,
			CacheTTL:  30 * time.Second,
		},
		Server: Server{
			Addr:   ":8000",
			DBPath: "formflow.db",
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS reads name from fsys over the defaults.
func LoadFS(fsys fs.FS, name string) (Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", name, err)
	}
	return Parse(data, name)
}

// Parse decodes YAML over the defaults and validates the result. source is
// only used in error messages.
func Parse(data []byte, source string) (Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", source, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q must be an http(s) url", ErrInvalid, c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout must not be negative", ErrInvalid)
	}
	if c.Form.Debounce < 0 {
		return fmt.Errorf("%w: form.debounce must not be negative", ErrInvalid)
	}
	if c.Availability.CacheSize < 0 {
		return fmt.Errorf("%w: availability.cache_size must not be negative", ErrInvalid)
	}
	if c.Availability.CacheSize > 0 && c.Availability.CacheTTL <= 0 {
		return fmt.Errorf("%w: availability.cache_ttl must be positive when the cache is enabled", ErrInvalid)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name to the logger level.
func ParseLogLevel(name string) (logger.TLogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return logger.LogLevelInfo, nil
	case "error":
		return logger.LogLevelError, nil
	case "warning", "warn":
		return logger.LogLevelWarning, nil
	case "verbose", "debug":
		return logger.LogLevelVerbose, nil
	default:
		return logger.LogLevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalid, name)
	}
}

// ApplyLogLevel sets the process wide logger level from c.
func (c Config) ApplyLogLevel() {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		logger.Warning(err)
	}
	logger.SetLogLevel(level)
}
