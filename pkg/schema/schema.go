package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFields is returned by New when no field is declared.
	ErrNoFields = errors.New("schema: at least one field is required")
	// ErrDuplicateField is returned by New when two specs share a name.
	ErrDuplicateField = errors.New("schema: duplicate field")
	// ErrInvalidField is returned by New for malformed specs.
	ErrInvalidField = errors.New("schema: invalid field")
)

// Schema is an ordered, immutable set of field specs plus cross-field rules.
type Schema struct {
	fields []FieldSpec
	cross  []CrossRule
	index  map[string]int
}

// Option configures a Schema.
type Option func(*Schema)

// WithCrossRules appends form-level rules evaluated after the field pass.
func WithCrossRules(rules ...CrossRule) Option {
	return func(s *Schema) {
		for _, rule := range rules {
			if rule.Check == nil {
				continue
			}
			s.cross = append(s.cross, rule)
		}
	}
}

// New validates the specs and builds a Schema.
func New(fields []FieldSpec, opts ...Option) (*Schema, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	s := &Schema{
		fields: make([]FieldSpec, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, field := range fields {
		field.Name = strings.TrimSpace(field.Name)
		if err := checkSpec(field); err != nil {
			return nil, err
		}
		if _, exists := s.index[field.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, field.Name)
		}
		s.index[field.Name] = len(s.fields)
		s.fields = append(s.fields, field)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	for _, rule := range s.cross {
		if _, ok := s.index[rule.Field]; !ok {
			return nil, fmt.Errorf("%w: cross rule %q targets unknown field %q", ErrInvalidField, rule.Name, rule.Field)
		}
	}
	return s, nil
}

// MustNew is New for package-level form definitions; it panics on error.
func MustNew(fields []FieldSpec, opts ...Option) *Schema {
	s, err := New(fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func checkSpec(field FieldSpec) error {
	if field.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	switch field.Type {
	case FieldTypeString, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean:
	case FieldTypeEnum:
		if len(field.Options) == 0 {
			return fmt.Errorf("%w: enum field %q has no options", ErrInvalidField, field.Name)
		}
		if field.Default != nil && !containsOption(field.Options, stringValue(field.Default)) {
			return fmt.Errorf("%w: default %v of %q is not an option", ErrInvalidField, field.Default, field.Name)
		}
	default:
		return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidField, field.Name, field.Type)
	}
	if field.MustBeTrue && field.Type != FieldTypeBoolean {
		return fmt.Errorf("%w: must-be-true field %q is not boolean", ErrInvalidField, field.Name)
	}
	switch field.Format {
	case "", FormatEmail, FormatDate:
	default:
		return fmt.Errorf("%w: field %q has unknown format %q", ErrInvalidField, field.Name, field.Format)
	}
	return nil
}

// Fields returns a copy of the declared specs in order.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field looks up a spec by name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	idx, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[idx], true
}

// Defaults returns a value map holding exactly one entry per declared field.
func (s *Schema) Defaults() Values {
	out := make(Values, len(s.fields))
	for _, field := range s.fields {
		out[field.Name] = defaultValue(field)
	}
	return out
}

func defaultValue(field FieldSpec) any {
	if field.Default != nil {
		return field.Default
	}
	switch field.Type {
	case FieldTypeString, FieldTypeEnum:
		return ""
	case FieldTypeBoolean:
		return false
	default:
		return nil
	}
}

// Validate checks values against every field and cross rule. Unknown keys in
// values are ignored and left out of the record.
func (s *Schema) Validate(values Values) Result {
	var issues Issues
	record := make(Values, len(s.fields))

	for _, field := range s.fields {
		value, issue, ok := validateField(field, values)
		if !ok {
			issues = append(issues, issue)
			continue
		}
		record[field.Name] = value
	}

	for _, rule := range s.cross {
		if rule.Check(record.Clone()) {
			continue
		}
		field, _ := s.Field(rule.Field)
		issues = append(issues, Issue{
			Path:    pointer(field.Name),
			Field:   field.Name,
			Code:    CodeRule,
			Message: rule.Message,
			Rule:    rule.Name,
		})
	}

	if len(issues) > 0 {
		return Invalid(issues)
	}
	return Valid(record)
}

// Validate builds a throwaway schema from specs and validates values with it.
// Malformed specs are reported as issues rather than errors.
func Validate(values Values, specs ...FieldSpec) Result {
	s, err := New(specs)
	if err != nil {
		return Invalid(Issues{{Path: "/", Code: CodeInvalidType, Message: err.Error()}})
	}
	return s.Validate(values)
}

func validateField(field FieldSpec, values Values) (any, Issue, bool) {
	fail := func(code, message string, rule string) (any, Issue, bool) {
		return nil, Issue{
			Path:    pointer(field.Name),
			Field:   field.Name,
			Code:    code,
			Message: message,
			Rule:    rule,
		}, false
	}

	value, empty, err := coerce(field, values[field.Name])

	if field.MustBeTrue {
		if b, ok := value.(bool); !ok || !b || err != nil {
			return fail(CodeMustBeTrue, mustBeTrueMessage(field), "")
		}
		return true, Issue{}, true
	}

	if empty {
		if field.Required {
			return fail(CodeRequired, field.DisplayLabel()+" is required", "")
		}
		return emptyValue(field), Issue{}, true
	}
	if err != nil {
		return fail(CodeInvalidType, typeMessage(field), "")
	}
	if msg := checkFormat(field, value); msg != "" {
		return fail(CodeInvalidFormat, msg, "")
	}
	if field.Type == FieldTypeEnum && !containsOption(field.Options, value.(string)) {
		return fail(CodeInvalidEnum, "Please select a valid option for "+field.DisplayLabel(), "")
	}
	for _, rule := range field.Rules {
		if rule.Check == nil || rule.Check(value, values) {
			continue
		}
		return fail(CodeRule, rule.Message, rule.Name)
	}
	return value, Issue{}, true
}

func mustBeTrueMessage(field FieldSpec) string {
	if msg := strings.TrimSpace(field.MustBeTrueMessage); msg != "" {
		return msg
	}
	return "You must accept the " + strings.ToLower(field.DisplayLabel())
}

func emptyValue(field FieldSpec) any {
	switch field.Type {
	case FieldTypeString, FieldTypeEnum:
		return ""
	default:
		return nil
	}
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
