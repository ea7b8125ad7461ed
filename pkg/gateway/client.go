// Package gateway is the HTTP boundary of a form: an advisory availability
// lookup and the submission of validated records. Each call is a single
// attempt; there are no retries.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Defaults applied by New.
const (
	DefaultAvailabilityPath = "/check-email/"
	DefaultSubmitPath       = "/users/"
	DefaultTimeout          = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	// ErrEmptyValue is returned by CheckAvailability for blank values.
	ErrEmptyValue = errors.New("gateway: value is required")
	// ErrBaseURL is returned by New when the base URL is unusable.
	ErrBaseURL = errors.New("gateway: invalid base url")
)

// Client talks to the remote user service.
type Client struct {
	baseURL          *url.URL
	httpClient       *http.Client
	availabilityPath string
	submitPath       string
	cache            *expirable.LRU[string, struct{}]
}

// New builds a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
	}

	c := &Client{
		baseURL:          parsed,
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		availabilityPath: DefaultAvailabilityPath,
		submitPath:       DefaultSubmitPath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// CheckAvailability asks the service whether value is still free. When a
// cache is configured, "taken" answers are remembered: a registered value stays
// taken, while a free one can be claimed at any moment. Free answers and
// failures always go to the service.
func (c *Client) CheckAvailability(ctx context.Context, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, ErrEmptyValue
	}

	key := strings.ToLower(value)
	if c.cache != nil {
		if _, taken := c.cache.Get(key); taken {
			return false, nil
		}
	}

	endpoint := c.endpoint(c.availabilityPath)
	q := endpoint.Query()
	q.Set("email", value)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("gateway: availability request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("gateway: availability: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, newStatusError(resp)
	}

	var payload struct {
		IsAvailable *bool `json:"isAvailable"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return false, fmt.Errorf("gateway: decode availability: %w", err)
	}
	if payload.IsAvailable == nil {
		return false, errors.New("gateway: availability response missing isAvailable")
	}

	if c.cache != nil && !*payload.IsAvailable {
		c.cache.Add(key, struct{}{})
	}
	return *payload.IsAvailable, nil
}

// Submit posts record as JSON and returns the created record echoed by the
// service. Empty optional values are left out of the body.
func (c *Client) Submit(ctx context.Context, record schema.Values) (map[string]any, error) {
	body, err := json.Marshal(compactRecord(record))
	if err != nil {
		return nil, fmt.Errorf("gateway: encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.submitPath).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("gateway: read submit response: %w", err)
	}
	echo := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return echo, nil
	}
	if err := json.Unmarshal(raw, &echo); err != nil {
		return nil, fmt.Errorf("gateway: decode submit response: %w", err)
	}
	return echo, nil
}

func (c *Client) endpoint(path string) *url.URL {
	return c.baseURL.JoinPath(path)
}

// compactRecord drops nil values and empty strings so optional fields are
// omitted rather than sent as null.
func compactRecord(record schema.Values) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
		}
		out[key] = value
	}
	return out
}
