// Package tui drives a form controller from the terminal: every field is
// prompted, values flow through the controller, and the submit outcome is
// printed with the failing fields asked for again.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	defaultMaxAttempts = 3
	noneOption         = "(none)"
	dateHelp           = "Format: YYYY-MM-DD"
)

// Form is the controller surface the session needs.
type Form interface {
	Schema() *schema.Schema
	SetField(name string, value any) error
	Value(name string) (any, bool)
	HandleSubmit(ctx context.Context) (form.Outcome, error)
	Subscribe(fn func(form.Snapshot)) func()
	Message() string
}

// Session prompts for a form and submits it.
type Session struct {
	driver      PromptDriver
	theme       Theme
	maxAttempts int
}

// New builds a session. Without WithPromptDriver it talks to the terminal
// through survey.
func New(opts ...Option) *Session {
	s := &Session{
		theme:       DefaultTheme,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s
}

// Run prompts every field of f, submits, and re-prompts whatever the outcome
// flags until the submission succeeds, the user declines to retry, or the
// attempt budget runs out. The last outcome is always returned.
func (s *Session) Run(ctx context.Context, title string, f Form) (form.Outcome, error) {
	watch := newAvailabilityWatch(f)
	defer watch.stop()

	if title != "" {
		if err := s.info(ctx, s.theme.InfoPrefix, title); err != nil {
			return form.Outcome{}, err
		}
	}

	fields := f.Schema().Fields()
	pending := fieldNames(fields)
	var last form.Outcome

	for attempt := 1; ; attempt++ {
		if err := s.promptFields(ctx, f, fields, pending, watch, last.Errors); err != nil {
			return last, err
		}
		if err := s.flushAvailability(ctx, watch); err != nil {
			return last, err
		}

		outcome, err := f.HandleSubmit(ctx)
		if err != nil {
			return last, err
		}
		last = outcome

		switch outcome.Kind {
		case form.OutcomeSucceeded:
			return outcome, s.info(ctx, s.theme.SuccessPrefix, messageOr(f.Message(), form.DefaultSuccessMessage))

		case form.OutcomeInvalid:
			if err := s.reportErrors(ctx, fields, outcome.Errors); err != nil {
				return outcome, err
			}
			if attempt >= s.maxAttempts {
				return outcome, ErrTooManyAttempts
			}
			pending = failingFields(fields, outcome.Errors)

		case form.OutcomeFailed:
			if err := s.info(ctx, s.theme.ErrorPrefix, messageOr(f.Message(), form.DefaultFailureMessage)); err != nil {
				return outcome, err
			}
			for _, msg := range outcome.FormErrors {
				if err := s.info(ctx, s.theme.ErrorPrefix, msg); err != nil {
					return outcome, err
				}
			}
			if err := s.reportErrors(ctx, fields, outcome.Errors); err != nil {
				return outcome, err
			}
			if attempt >= s.maxAttempts {
				return outcome, nil
			}
			retry, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
			if err != nil {
				return outcome, err
			}
			if !retry {
				return outcome, nil
			}
			// a failed submission keeps the values, so only fields the
			// service complained about are asked again
			pending = failingFields(fields, outcome.Errors)
		}
	}
}

func (s *Session) promptFields(ctx context.Context, f Form, fields []schema.FieldSpec, names map[string]bool, watch *availabilityWatch, errs schema.FieldErrors) error {
	for _, field := range fields {
		if !names[field.Name] {
			continue
		}
		if err := s.flushAvailability(ctx, watch); err != nil {
			return err
		}
		current, _ := f.Value(field.Name)
		value, err := s.promptField(ctx, field, current, errs[field.Name])
		if err != nil {
			return err
		}
		if err := f.SetField(field.Name, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) promptField(ctx context.Context, field schema.FieldSpec, current any, fieldErr string) (any, error) {
	label := field.DisplayLabel()
	if field.Required && !field.MustBeTrue {
		label += " *"
	}
	help := fieldHelp(field, fieldErr)

	switch field.Type {
	case schema.FieldTypeBoolean:
		def, _ := current.(bool)
		return s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})

	case schema.FieldTypeEnum:
		options := append([]string(nil), field.Options...)
		if !field.Required {
			options = append([]string{noneOption}, options...)
		}
		def := indexOf(options, defaultText(current))
		if def < 0 && !field.Required {
			def = 0
		}
		for {
			idx, err := s.driver.Select(ctx, SelectConfig{Message: label, Options: options, DefaultIndex: def, Help: help})
			if err != nil {
				return nil, err
			}
			if idx < 0 || idx >= len(options) {
				if err := s.info(ctx, s.theme.ErrorPrefix, "Please pick one of the listed options"); err != nil {
					return nil, err
				}
				continue
			}
			if options[idx] == noneOption {
				return "", nil
			}
			return options[idx], nil
		}

	default:
		// numbers stay text here; the schema coerces them on submit
		return s.driver.Input(ctx, InputConfig{
			Message: label,
			Default: defaultText(current),
			Help:    help,
		})
	}
}

func (s *Session) reportErrors(ctx context.Context, fields []schema.FieldSpec, errs schema.FieldErrors) error {
	for _, field := range fields {
		msg, ok := errs[field.Name]
		if !ok {
			continue
		}
		if err := s.info(ctx, s.theme.ErrorPrefix, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) flushAvailability(ctx context.Context, watch *availabilityWatch) error {
	state, changed := watch.take()
	if !changed {
		return nil
	}
	switch state {
	case form.AvailabilityAvailable:
		return s.info(ctx, s.theme.SuccessPrefix, "Email is available")
	case form.AvailabilityTaken:
		return s.info(ctx, s.theme.ErrorPrefix, "Email is already taken")
	}
	return nil
}

func (s *Session) info(ctx context.Context, prefix, msg string) error {
	return s.driver.Info(ctx, prefix+msg)
}

// availabilityWatch records the latest availability answer published by the
// controller so the prompt loop can report it between questions.
type availabilityWatch struct {
	mu          sync.Mutex
	current     form.Availability
	reported    form.Availability
	unsubscribe func()
}

func newAvailabilityWatch(f Form) *availabilityWatch {
	w := &availabilityWatch{}
	w.unsubscribe = f.Subscribe(func(snap form.Snapshot) {
		w.mu.Lock()
		w.current = snap.Availability
		if snap.Availability == form.AvailabilityUnknown {
			w.reported = form.AvailabilityUnknown
		}
		w.mu.Unlock()
	})
	return w
}

func (w *availabilityWatch) take() (form.Availability, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == form.AvailabilityUnknown || w.current == w.reported {
		return w.current, false
	}
	w.reported = w.current
	return w.current, true
}

func (w *availabilityWatch) stop() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

func fieldNames(fields []schema.FieldSpec) map[string]bool {
	out := make(map[string]bool, len(fields))
	for _, field := range fields {
		out[field.Name] = true
	}
	return out
}

func failingFields(fields []schema.FieldSpec, errs schema.FieldErrors) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, field := range fields {
		if _, ok := errs[field.Name]; ok {
			out[field.Name] = true
		}
	}
	return out
}

func fieldHelp(field schema.FieldSpec, fieldErr string) string {
	var parts []string
	if fieldErr != "" {
		parts = append(parts, fieldErr)
	}
	if field.Format == schema.FormatDate {
		parts = append(parts, dateHelp)
	}
	return strings.Join(parts, ". ")
}

func defaultText(current any) string {
	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
