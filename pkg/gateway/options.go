package gateway

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client. Its timeout is used unless
// a later WithTimeout overrides it; WithTimeout works on a copy, so the
// caller's client is never modified.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero or negative values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		clone := *c.httpClient
		clone.Timeout = d
		c.httpClient = &clone
	}
}

// WithSubmitPath sets the path records are posted to, relative to the base URL.
func WithSubmitPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.submitPath = path
		}
	}
}

// WithAvailabilityPath sets the availability lookup path.
func WithAvailabilityPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.availabilityPath = path
		}
	}
}

// WithAvailabilityCache remembers up to size "taken" answers for ttl. A
// non-positive size disables caching.
func WithAvailabilityCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.cache = nil
			return
		}
		c.cache = expirable.NewLRU[string, struct{}](size, nil, ttl)
	}
}
