package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/forms"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

type stubDriver struct {
	inputs    []string
	selectIdx []int
	confirm   []bool

	inputPos   int
	selectPos  int
	confirmPos int

	// before runs ahead of every prompt with the prompt kind and how many
	// prompts of that kind were answered so far.
	before func(kind string, answered int)

	prompts      []string
	infoMessages []string
	inputErr     error
}

func (s *stubDriver) hook(kind string, answered int, message string) {
	s.prompts = append(s.prompts, message)
	if s.before != nil {
		s.before(kind, answered)
	}
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.hook("input", s.inputPos, cfg.Message)
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.hook("confirm", s.confirmPos, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.hook("select", s.selectPos, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

var plainTheme = Theme{ErrorPrefix: "error: ", SuccessPrefix: "ok: "}

func fixedClock() time.Time {
	return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
}

func newController(t *testing.T, def forms.Definition, gw form.Gateway, sched form.Scheduler) *form.Controller {
	t.Helper()
	ctrl, err := form.New(def.Schema, gw, form.WithScheduler(sched), form.WithUniqueField(def.UniqueField))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestSession_RegistrationHappyPath(t *testing.T) {
	gw := testsupport.NewStubGateway()
	gw.Answers["alice@example.com"] = true
	sched := testsupport.NewManualScheduler()
	ctrl := newController(t, forms.Registration(fixedClock), gw, sched)

	driver := &stubDriver{
		inputs:    []string{"  Alice ", "alice@example.com", "1990-01-01", "42"},
		selectIdx: []int{0, 2},
		confirm:   []bool{true, true},
		before: func(string, int) {
			sched.Advance(form.DefaultDebounce)
		},
	}

	outcome, err := New(WithPromptDriver(driver), WithTheme(plainTheme)).Run(context.Background(), "Create your account", ctrl)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Kind != form.OutcomeSucceeded {
		t.Fatalf("outcome = %v, want succeeded", outcome.Kind)
	}

	wantPrompts := []string{
		"Name *", "Email *", "Date of birth *", "Age", "Gender",
		"I accept the terms of service", "I accept the privacy policy", "Privacy setting *",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}

	wantInfos := []string{"Create your account", "ok: Email is available", "ok: " + form.DefaultSuccessMessage}
	if diff := cmp.Diff(wantInfos, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}

	submits := gw.Submits()
	if len(submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(submits))
	}
	want := schema.Values{
		"name":                  "Alice",
		"email":                 "alice@example.com",
		"date_of_birth":         "1990-01-01",
		"age":                   42,
		"gender":                "",
		"termsAccepted":         true,
		"privacyPolicyAccepted": true,
		"privacySetting":        "friends",
	}
	if diff := cmp.Diff(want, submits[0]); diff != "" {
		t.Fatalf("submitted record mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alice@example.com"}, gw.Lookups()); diff != "" {
		t.Fatalf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_TakenEmailIsReported(t *testing.T) {
	gw := testsupport.NewStubGateway()
	gw.Answers["bob@example.com"] = false
	sched := testsupport.NewManualScheduler()
	ctrl := newController(t, forms.Registration(fixedClock), gw, sched)

	driver := &stubDriver{
		inputs:    []string{"Bob", "bob@example.com", "1990-01-01", ""},
		selectIdx: []int{1, 0},
		confirm:   []bool{true, true},
		before:    func(string, int) { sched.Advance(form.DefaultDebounce) },
	}

	if _, err := New(WithPromptDriver(driver), WithTheme(plainTheme)).Run(context.Background(), "", ctrl); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !contains(driver.infoMessages, "error: Email is already taken") {
		t.Fatalf("expected taken notice, got %v", driver.infoMessages)
	}
	if len(gw.Submits()) != 1 {
		t.Fatalf("availability must not block submission")
	}
}

func TestSession_InvalidFieldsArePromptedAgain(t *testing.T) {
	gw := testsupport.NewStubGateway()
	ctrl := newController(t, forms.Registration(fixedClock), gw, testsupport.NewManualScheduler())

	driver := &stubDriver{
		inputs:    []string{"Alice", "alice@example.com", "2010-01-01", "", "1990-01-01"},
		selectIdx: []int{0, 0},
		confirm:   []bool{false, true, true},
	}

	outcome, err := New(WithPromptDriver(driver), WithTheme(plainTheme)).Run(context.Background(), "", ctrl)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Kind != form.OutcomeSucceeded {
		t.Fatalf("outcome = %v, want succeeded", outcome.Kind)
	}

	wantRetry := []string{"Date of birth *", "I accept the terms of service"}
	if diff := cmp.Diff(wantRetry, driver.prompts[8:]); diff != "" {
		t.Fatalf("re-prompted fields mismatch (-want +got):\n%s", diff)
	}
	for _, msg := range []string{"error: You must be at least 18 years old", "error: You must accept the terms of service"} {
		if !contains(driver.infoMessages, msg) {
			t.Errorf("missing %q in %v", msg, driver.infoMessages)
		}
	}
	if len(gw.Submits()) != 1 {
		t.Fatalf("expected exactly one gateway submission, got %d", len(gw.Submits()))
	}
}

func TestSession_FailureRetriesWithKeptValues(t *testing.T) {
	gw := testsupport.NewStubGateway()
	gw.SubmitErr = &testsupport.PayloadError{
		Status:  400,
		Payload: map[string][]string{"/privacySetting": {"Setting not allowed"}},
	}
	ctrl := newController(t, forms.Privacy(), gw, testsupport.NewManualScheduler())

	driver := &stubDriver{
		selectIdx: []int{1, 0},
		confirm:   []bool{true, true},
	}
	driver.before = func(kind string, answered int) {
		if kind == "confirm" && answered == 1 {
			gw.SubmitErr = nil
		}
	}

	outcome, err := New(WithPromptDriver(driver), WithTheme(plainTheme)).Run(context.Background(), "", ctrl)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Kind != form.OutcomeSucceeded {
		t.Fatalf("outcome = %v, want succeeded", outcome.Kind)
	}

	wantPrompts := []string{"Privacy setting *", "I accept the privacy policy", "Try again?", "Privacy setting *"}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	wantInfos := []string{
		"error: " + form.DefaultFailureMessage,
		"error: Setting not allowed",
		"ok: " + form.DefaultSuccessMessage,
	}
	if diff := cmp.Diff(wantInfos, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}

	submits := gw.Submits()
	if len(submits) != 2 {
		t.Fatalf("expected two submissions, got %d", len(submits))
	}
	if submits[0]["privacySetting"] != "private" || submits[1]["privacySetting"] != "public" {
		t.Fatalf("unexpected submissions %v", submits)
	}
	if submits[1]["privacyPolicyAccepted"] != true {
		t.Fatalf("kept value lost: %v", submits[1])
	}
}

func TestSession_DeclineRetry(t *testing.T) {
	gw := testsupport.NewStubGateway()
	gw.SubmitErr = errors.New("connection refused")
	ctrl := newController(t, forms.Privacy(), gw, testsupport.NewManualScheduler())

	driver := &stubDriver{selectIdx: []int{0}, confirm: []bool{true, false}}
	outcome, err := New(WithPromptDriver(driver), WithTheme(plainTheme)).Run(context.Background(), "", ctrl)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Kind != form.OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome.Kind)
	}
	if ctrl.Message() != form.DefaultFailureMessage {
		t.Fatalf("message = %q", ctrl.Message())
	}
}

func TestSession_TooManyAttempts(t *testing.T) {
	gw := testsupport.NewStubGateway()
	ctrl := newController(t, forms.Privacy(), gw, testsupport.NewManualScheduler())

	driver := &stubDriver{selectIdx: []int{0}, confirm: []bool{false, false}}
	_, err := New(WithPromptDriver(driver), WithTheme(plainTheme), WithMaxAttempts(2)).Run(context.Background(), "", ctrl)
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("error = %v, want ErrTooManyAttempts", err)
	}
	if len(gw.Submits()) != 0 {
		t.Fatalf("invalid form must not reach the gateway")
	}
}

func TestSession_ThemePrefixesEveryNotice(t *testing.T) {
	gw := testsupport.NewStubGateway()
	ctrl := newController(t, forms.Privacy(), gw, testsupport.NewManualScheduler())

	theme := Theme{InfoPrefix: "> ", ErrorPrefix: "! ", SuccessPrefix: "+ "}
	driver := &stubDriver{selectIdx: []int{0}, confirm: []bool{true}}
	if _, err := New(WithPromptDriver(driver), WithTheme(theme)).Run(context.Background(), "Privacy settings", ctrl); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"> Privacy settings", "+ " + form.DefaultSuccessMessage}
	if diff := cmp.Diff(want, driver.infoMessages); diff != "" {
		t.Fatalf("info messages mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Aborted(t *testing.T) {
	ctrl := newController(t, forms.Registration(fixedClock), testsupport.NewStubGateway(), testsupport.NewManualScheduler())
	driver := &stubDriver{inputErr: ErrAborted}
	if _, err := New(WithPromptDriver(driver)).Run(context.Background(), "", ctrl); !errors.Is(err, ErrAborted) {
		t.Fatalf("error = %v, want ErrAborted", err)
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if strings.TrimSpace(item) == want {
			return true
		}
	}
	return false
}
