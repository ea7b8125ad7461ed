package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formflow/internal/config"
)

// flags shared by every command
var (
	configPath string
	baseURL    string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formflow",
		Short:         "Validated form submission demo: terminal forms and a stub user service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override api.base_url")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log_level (error, warning, info, verbose)")

	root.AddCommand(
		newServeCmd(),
		newFormCmd("register", "Fill in and submit the registration form", "registration"),
		newFormCmd("privacy", "Fill in and submit the privacy settings form", "privacy"),
		newCounterCmd(),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	cfg.ApplyLogLevel()
	return cfg, nil
}
