package schema

import (
	"fmt"
	"strings"
)

// FieldType is the semantic kind of a form field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeEnum    FieldType = "enum"
)

// Supported string formats.
const (
	FormatEmail = "email"
	FormatDate  = "date"
)

// DateLayout is the wire layout used by FormatDate fields.
const DateLayout = "2006-01-02"

// Issue codes reported by Validate.
const (
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidEnum   = "invalid_enum"
	CodeMustBeTrue    = "must_be_true"
	CodeRule          = "rule"
)

// Rule is a derived check attached to a single field. Check receives the
// coerced field value and the raw values of the whole form so it can look at
// sibling fields. It must be pure.
type Rule struct {
	Name    string
	Message string
	Check   func(value any, values Values) bool
}

// CrossRule is a form-level check evaluated after every field passed its own
// checks or failed them. Failures are attached to Field.
type CrossRule struct {
	Name    string
	Field   string
	Message string
	Check   func(record Values) bool
}

// FieldSpec describes a single form field. Specs are immutable once handed to
// New.
type FieldSpec struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Format   string
	Options  []string
	Default  any
	// MustBeTrue marks acceptance checkboxes: the only valid value is true and
	// any other value yields MustBeTrueMessage.
	MustBeTrue        bool
	MustBeTrueMessage string
	// Sanitize strips markup from string values before they are checked.
	Sanitize bool
	Rules    []Rule
}

// DisplayLabel returns the label used in messages, falling back to the name.
func (f FieldSpec) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// Values maps field names to raw or coerced values.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// String returns the trimmed string form of the named value, or "" when the
// value is absent or nil.
func (v Values) String(name string) string {
	return stringValue(v[name])
}

// FieldErrors maps field names to a human readable message. Absent entries
// mean the field has no error.
type FieldErrors map[string]string

// Clone returns a copy of e.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for key, value := range e {
		out[key] = value
	}
	return out
}

// Issue is a single validation failure. Path is a JSON pointer to the field.
type Issue struct {
	Path    string `json:"path"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// Issues is an ordered collection of validation failures.
type Issues []Issue

// Error summarises the first few issues so Issues can travel as an error when
// a caller needs one.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	var b strings.Builder
	limit := len(iss)
	if limit > maxShown {
		limit = maxShown
	}
	for i := 0; i < limit; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > limit {
		fmt.Fprintf(&b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// FieldErrors projects the issues onto a field keyed map, keeping the first
// message reported for each field.
func (iss Issues) FieldErrors() FieldErrors {
	out := make(FieldErrors, len(iss))
	for _, issue := range iss {
		if _, exists := out[issue.Field]; exists {
			continue
		}
		out[issue.Field] = issue.Message
	}
	return out
}

// Result is the outcome of a validation pass: Valid with a record or Invalid
// with issues, never both.
type Result struct {
	record Values
	issues Issues
}

// Valid builds a successful Result around record.
func Valid(record Values) Result {
	if record == nil {
		record = Values{}
	}
	return Result{record: record}
}

// Invalid builds a failed Result. It panics when issues is empty since an
// Invalid result without issues cannot be told apart from a Valid one.
func Invalid(issues Issues) Result {
	if len(issues) == 0 {
		panic("schema: invalid result requires at least one issue")
	}
	return Result{issues: issues}
}

// IsValid reports whether every check passed.
func (r Result) IsValid() bool {
	return len(r.issues) == 0
}

// Record returns the coerced values of a Valid result and nil otherwise.
func (r Result) Record() Values {
	if !r.IsValid() {
		return nil
	}
	return r.record.Clone()
}

// Issues returns every failure of an Invalid result.
func (r Result) Issues() Issues {
	if len(r.issues) == 0 {
		return nil
	}
	return append(Issues(nil), r.issues...)
}

// Errors returns the per-field messages of an Invalid result. The map is empty
// for a Valid result.
func (r Result) Errors() FieldErrors {
	return r.issues.FieldErrors()
}

func pointer(name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	name = strings.ReplaceAll(name, "/", "~1")
	return "/" + name
}
