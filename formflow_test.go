package formflow_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/userstore"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/forms"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func startService(t *testing.T) string {
	t.Helper()
	users, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { users.Close() })

	srv, err := server.New(context.Background(), users)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func fill(t *testing.T, c *formflow.Controller, values schema.Values) {
	t.Helper()
	for name, value := range values {
		if err := c.SetField(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
}

func registration() schema.Values {
	return schema.Values{
		forms.FieldName:                  "Alice",
		forms.FieldEmail:                 "alice@example.com",
		forms.FieldDateOfBirth:           "1990-01-01",
		forms.FieldTermsAccepted:         true,
		forms.FieldPrivacyPolicyAccepted: true,
		forms.FieldPrivacySetting:        forms.PrivacyFriends,
	}
}

func TestRegistrationAgainstStubService(t *testing.T) {
	base := startService(t)
	sched := testsupport.NewManualScheduler()
	settings := formflow.Settings{BaseURL: base, Timeout: 5 * time.Second, Scheduler: sched}

	first, err := formflow.NewController(formflow.Registration(), settings)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	defer first.Close()

	fill(t, first, registration())
	sched.Advance(form.DefaultDebounce)
	if got := first.Availability(); got != form.AvailabilityAvailable {
		t.Fatalf("availability = %v, want available", got)
	}

	outcome, err := first.HandleSubmit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Kind != form.OutcomeSucceeded {
		t.Fatalf("outcome = %v (%v), want succeeded", outcome.Kind, outcome.Cause)
	}
	if id, _ := outcome.Echo["id"].(string); id == "" {
		t.Fatalf("expected created id in echo %v", outcome.Echo)
	}
	if diff := cmp.Diff(formflow.Registration().Schema.Defaults(), first.Values()); diff != "" {
		t.Fatalf("values not reset (-want +got):\n%s", diff)
	}

	// a second registration with the same address is rejected by the service
	second, err := formflow.NewController(formflow.Registration(), settings)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	defer second.Close()

	fill(t, second, registration())
	sched.Advance(form.DefaultDebounce)
	if got := second.Availability(); got != form.AvailabilityTaken {
		t.Fatalf("availability = %v, want taken", got)
	}

	outcome, err = second.HandleSubmit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Kind != form.OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome.Kind)
	}
	want := schema.FieldErrors{forms.FieldEmail: "Email is already registered"}
	if diff := cmp.Diff(want, second.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if second.Message() != form.DefaultFailureMessage {
		t.Fatalf("message = %q", second.Message())
	}
	if second.Values().String(forms.FieldName) != "Alice" {
		t.Fatalf("failed submission must keep values")
	}
}

func TestPrivacyAgainstStubService(t *testing.T) {
	base := startService(t)
	c, err := formflow.NewController(formflow.Privacy(), formflow.Settings{BaseURL: base})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	defer c.Close()

	fill(t, c, schema.Values{
		forms.FieldPrivacySetting:        forms.PrivacyPrivate,
		forms.FieldPrivacyPolicyAccepted: true,
	})
	outcome, err := c.HandleSubmit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Kind != form.OutcomeSucceeded {
		t.Fatalf("outcome = %v (%v), want succeeded", outcome.Kind, outcome.Cause)
	}
	if outcome.Echo[forms.FieldPrivacySetting] != forms.PrivacyPrivate {
		t.Fatalf("unexpected echo %v", outcome.Echo)
	}
}

func TestNewController_BadBaseURL(t *testing.T) {
	if _, err := formflow.NewController(formflow.Privacy(), formflow.Settings{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected error for bad base url")
	}
}
