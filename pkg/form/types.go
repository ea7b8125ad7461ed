package form

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("form: controller closed")
	// ErrSubmitInProgress is returned by HandleSubmit while a submission is in
	// flight.
	ErrSubmitInProgress = errors.New("form: submission already in progress")
	// ErrUnknownField is returned by SetField for names the schema does not
	// declare.
	ErrUnknownField = errors.New("form: unknown field")
)

// Default user-facing messages.
const (
	DefaultSuccessMessage = "Submitted successfully"
	DefaultFailureMessage = "Submission failed, please try again"
	DefaultDebounce       = time.Second
)

// Gateway performs the outbound calls of a form. CheckAvailability is
// advisory; Submit sends a validated record and returns the server echo.
type Gateway interface {
	CheckAvailability(ctx context.Context, value string) (bool, error)
	Submit(ctx context.Context, record schema.Values) (map[string]any, error)
}

// ValidationPayload is implemented by gateway errors that carry server side
// validation feedback keyed by field path.
type ValidationPayload interface {
	error
	FieldPayload() map[string][]string
}

// Availability is the advisory result of the uniqueness lookup.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityTaken
	AvailabilityAvailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityTaken:
		return "taken"
	case AvailabilityAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// Status is the submission state of a controller.
type Status int

// Validation runs synchronously inside HandleSubmit, so a controller is only
// ever observed idle or submitting.
const (
	StatusIdle Status = iota
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// OutcomeKind classifies the result of HandleSubmit.
type OutcomeKind int

const (
	OutcomeInvalid OutcomeKind = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Outcome reports what a submit attempt did.
type Outcome struct {
	Kind OutcomeKind
	// Errors holds the field errors published by the attempt: validation
	// failures, or server feedback mapped onto fields.
	Errors schema.FieldErrors
	// FormErrors holds server messages that could not be tied to a field.
	FormErrors []string
	// Echo is the record returned by the remote service on success.
	Echo map[string]any
	// Cause is the gateway failure for OutcomeFailed.
	Cause error
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Values       schema.Values
	Errors       schema.FieldErrors
	Availability Availability
	Status       Status
	Message      string
}
