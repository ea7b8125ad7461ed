// Package formflow wires the pieces of a validated form together: a form
// definition, the HTTP gateway to the user service and the state controller
// that a UI drives.
package formflow

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/forms"
	"github.com/goliatone/go-formflow/pkg/gateway"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Definition aliases forms.Definition for callers that only import the root
// package.
type Definition = forms.Definition

// Controller aliases form.Controller.
type Controller = form.Controller

// Settings tunes the gateway and controller built by NewController. Zero
// values fall back to the package defaults. A positive Timeout takes
// precedence over HTTPClient's own timeout; HTTPClient itself is not modified.
type Settings struct {
	BaseURL    string
	Timeout    time.Duration
	Debounce   time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Scheduler  form.Scheduler
}

// Registration returns the registration form using the wall clock.
func Registration() Definition {
	return forms.Registration(time.Now)
}

// Privacy returns the privacy-settings form.
func Privacy() Definition {
	return forms.Privacy()
}

// NewGateway builds the HTTP gateway for def.
func NewGateway(def Definition, s Settings) (*gateway.Client, error) {
	opts := []gateway.Option{
		gateway.WithHTTPClient(s.HTTPClient),
		gateway.WithTimeout(s.Timeout),
		gateway.WithSubmitPath(def.SubmitPath),
	}
	if s.CacheSize > 0 {
		opts = append(opts, gateway.WithAvailabilityCache(s.CacheSize, s.CacheTTL))
	}
	return gateway.New(s.BaseURL, opts...)
}

// NewController builds a controller for def backed by the HTTP gateway.
func NewController(def Definition, s Settings) (*Controller, error) {
	if def.Schema == nil {
		return nil, fmt.Errorf("formflow: definition %q has no schema", def.Name)
	}
	gw, err := NewGateway(def, s)
	if err != nil {
		return nil, err
	}
	return form.New(def.Schema, gw,
		form.WithUniqueField(def.UniqueField),
		form.WithDebounce(s.Debounce),
		form.WithScheduler(s.Scheduler),
	)
}

// NewAppStore returns the shared counter/text store.
func NewAppStore() *store.App {
	return store.NewApp()
}
