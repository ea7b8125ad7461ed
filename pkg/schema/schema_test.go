package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testFields() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Label: "Name", Type: FieldTypeString, Required: true, Sanitize: true},
		{Name: "email", Label: "Email", Type: FieldTypeString, Required: true, Format: FormatEmail},
		{Name: "age", Label: "Age", Type: FieldTypeInteger},
		{Name: "gender", Label: "Gender", Type: FieldTypeEnum, Options: []string{"male", "female"}},
		{Name: "termsAccepted", Label: "Terms", Type: FieldTypeBoolean, Required: true, MustBeTrue: true, MustBeTrueMessage: "You must accept the terms of service"},
		{Name: "privacySetting", Label: "Privacy setting", Type: FieldTypeEnum, Required: true, Options: []string{"public", "private", "friends"}, Default: "public"},
	}
}

func TestNew_RejectsMalformedSpecs(t *testing.T) {
	cases := map[string][]FieldSpec{
		"empty":          nil,
		"duplicate":      {{Name: "a", Type: FieldTypeString}, {Name: "a", Type: FieldTypeString}},
		"enum no opts":   {{Name: "a", Type: FieldTypeEnum}},
		"bad default":    {{Name: "a", Type: FieldTypeEnum, Options: []string{"x"}, Default: "y"}},
		"unknown type":   {{Name: "a", Type: "date"}},
		"must be string": {{Name: "a", Type: FieldTypeString, MustBeTrue: true}},
		"unknown format": {{Name: "a", Type: FieldTypeString, Format: "uuid"}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(fields); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	_, err := New([]FieldSpec{{Name: "a", Type: FieldTypeString}}, WithCrossRules(CrossRule{
		Name:  "x",
		Field: "missing",
		Check: func(Values) bool { return true },
	}))
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestDefaults_OneEntryPerField(t *testing.T) {
	s := MustNew(testFields())

	want := Values{
		"name":           "",
		"email":          "",
		"age":            nil,
		"gender":         "",
		"termsAccepted":  false,
		"privacySetting": "public",
	}
	if diff := cmp.Diff(want, s.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_CollectsEveryMissingRequiredField(t *testing.T) {
	s := MustNew(testFields())

	result := s.Validate(s.Defaults())
	if result.IsValid() {
		t.Fatalf("expected invalid result")
	}

	want := FieldErrors{
		"name":          "Name is required",
		"email":         "Email is required",
		"termsAccepted": "You must accept the terms of service",
	}
	if diff := cmp.Diff(want, result.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if result.Record() != nil {
		t.Fatalf("invalid result must not carry a record")
	}
}

func TestValidate_ValidRecordIsCoerced(t *testing.T) {
	s := MustNew(testFields())

	result := s.Validate(Values{
		"name":           "  <b>Alice</b> & Bob ",
		"email":          "a@b.com",
		"age":            "42",
		"gender":         "female",
		"termsAccepted":  "on",
		"privacySetting": "friends",
	})
	if !result.IsValid() {
		t.Fatalf("expected valid result, got %v", result.Errors())
	}

	want := Values{
		"name":           "Alice & Bob",
		"email":          "a@b.com",
		"age":            42,
		"gender":         "female",
		"termsAccepted":  true,
		"privacySetting": "friends",
	}
	if diff := cmp.Diff(want, result.Record()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if len(result.Errors()) != 0 {
		t.Fatalf("valid result must not carry errors")
	}
}

func TestValidate_FieldMessages(t *testing.T) {
	s := MustNew(testFields())
	base := Values{
		"name":           "Alice",
		"email":          "a@b.com",
		"termsAccepted":  true,
		"privacySetting": "public",
	}

	cases := []struct {
		name  string
		field string
		value any
		code  string
		want  string
	}{
		{"bad email", "email", "not-an-email", CodeInvalidFormat, "Invalid email address"},
		{"bad enum", "privacySetting", "everyone", CodeInvalidEnum, "Please select a valid option for Privacy setting"},
		{"optional enum", "gender", "other", CodeInvalidEnum, "Please select a valid option for Gender"},
		{"bad integer", "age", "4.5", CodeInvalidType, "Age must be a whole number"},
		{"terms false", "termsAccepted", false, CodeMustBeTrue, "You must accept the terms of service"},
		{"terms garbage", "termsAccepted", "maybe", CodeMustBeTrue, "You must accept the terms of service"},
		{"markup only name", "name", "<script></script>", CodeRequired, "Name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := base.Clone()
			values[tc.field] = tc.value

			result := s.Validate(values)
			issues := result.Issues()
			if len(issues) != 1 {
				t.Fatalf("expected one issue, got %+v", issues)
			}
			if issues[0].Code != tc.code || issues[0].Field != tc.field {
				t.Fatalf("unexpected issue %+v", issues[0])
			}
			if got := result.Errors()[tc.field]; got != tc.want {
				t.Fatalf("message: want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidate_RulesAndCrossRulesAreUnioned(t *testing.T) {
	fields := []FieldSpec{
		{Name: "password", Label: "Password", Type: FieldTypeString, Required: true, Rules: []Rule{{
			Name:    "min_length",
			Message: "Password is too short",
			Check:   func(v any, _ Values) bool { return len(v.(string)) >= 8 },
		}}},
		{Name: "confirm", Label: "Confirm", Type: FieldTypeString, Required: true},
	}
	s := MustNew(fields, WithCrossRules(CrossRule{
		Name:    "match",
		Field:   "confirm",
		Message: "Passwords do not match",
		Check: func(record Values) bool {
			return record.String("password") == record.String("confirm")
		},
	}))

	result := s.Validate(Values{"password": "short", "confirm": "other"})
	want := FieldErrors{
		"password": "Password is too short",
		"confirm":  "Passwords do not match",
	}
	if diff := cmp.Diff(want, result.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := result.Issues()[0].Rule; got != "min_length" {
		t.Fatalf("expected rule name on issue, got %q", got)
	}
}

func TestValidate_IsIdempotent(t *testing.T) {
	s := MustNew(testFields())
	values := Values{"name": "Alice", "email": "bad", "age": 3.5}

	first := s.Validate(values)
	second := s.Validate(values)
	if diff := cmp.Diff(first.Issues(), second.Issues()); diff != "" {
		t.Fatalf("validate is not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(Values{"name": "Alice", "email": "bad", "age": 3.5}, values); diff != "" {
		t.Fatalf("validate mutated its input:\n%s", diff)
	}
}

func TestValidate_FreeFunction(t *testing.T) {
	result := Validate(Values{"email": "x@y.io"}, FieldSpec{Name: "email", Type: FieldTypeString, Format: FormatEmail, Required: true})
	if !result.IsValid() {
		t.Fatalf("expected valid, got %v", result.Errors())
	}

	result = Validate(Values{})
	if result.IsValid() {
		t.Fatalf("expected invalid result for empty spec list")
	}
}

func TestIssues_Error(t *testing.T) {
	iss := Issues{
		{Path: "/a", Code: CodeRequired},
		{Path: "/b", Code: CodeRequired},
		{Path: "/c", Code: CodeRequired},
		{Path: "/d", Code: CodeRequired},
	}
	want := "required at /a; required at /b; required at /c; ... (total 4)"
	if got := iss.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}
