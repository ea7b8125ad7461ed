package schema

import (
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

var (
	errNotInteger = errors.New("not an integer")
	errNotNumber  = errors.New("not a number")
	errNotBoolean = errors.New("not a boolean")
	errNotString  = errors.New("not a string")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// strictPolicy is safe for concurrent use once built.
var strictPolicy = bluemonday.StrictPolicy()

// coerce converts a raw input into the typed value of spec. empty reports
// whether the input counts as absent for required checks.
func coerce(spec FieldSpec, raw any) (value any, empty bool, err error) {
	if raw == nil {
		return nil, true, nil
	}

	switch spec.Type {
	case FieldTypeBoolean:
		return coerceBool(raw)
	case FieldTypeInteger:
		return coerceInteger(raw)
	case FieldTypeNumber:
		return coerceNumber(raw)
	default:
		s, ok := raw.(string)
		if !ok {
			if _, isStringer := raw.(fmt.Stringer); !isStringer {
				return nil, false, errNotString
			}
			s = fmt.Sprint(raw)
		}
		s = strings.TrimSpace(s)
		if spec.Sanitize {
			s = sanitize(s)
		}
		return s, s == "", nil
	}
}

func sanitize(s string) string {
	cleaned := strictPolicy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func coerceBool(raw any) (any, bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, false, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return nil, true, nil
		case "true", "on", "yes", "1":
			return true, false, nil
		case "false", "off", "no", "0":
			return false, false, nil
		}
	}
	return nil, false, errNotBoolean
}

func coerceInteger(raw any) (any, bool, error) {
	switch v := raw.(type) {
	case int:
		return v, false, nil
	case int32:
		return int(v), false, nil
	case int64:
		return int(v), false, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, false, errNotInteger
		}
		return int(v), false, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, true, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, false, errNotInteger
		}
		return n, false, nil
	}
	return nil, false, errNotInteger
}

func coerceNumber(raw any) (any, bool, error) {
	switch v := raw.(type) {
	case float64:
		return v, false, nil
	case float32:
		return float64(v), false, nil
	case int:
		return float64(v), false, nil
	case int64:
		return float64(v), false, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, true, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, false, errNotNumber
		}
		return f, false, nil
	}
	return nil, false, errNotNumber
}

func typeMessage(spec FieldSpec) string {
	label := spec.DisplayLabel()
	switch spec.Type {
	case FieldTypeInteger:
		return label + " must be a whole number"
	case FieldTypeNumber:
		return label + " must be a number"
	case FieldTypeBoolean:
		return label + " must be true or false"
	default:
		return label + " must be text"
	}
}

// checkFormat returns a message when value violates the declared format.
func checkFormat(spec FieldSpec, value any) string {
	s, _ := value.(string)
	switch spec.Format {
	case FormatEmail:
		if !emailPattern.MatchString(s) {
			return "Invalid email address"
		}
	case FormatDate:
		if _, err := time.Parse(DateLayout, s); err != nil {
			return fmt.Sprintf("%s must be a valid date (YYYY-MM-DD)", spec.DisplayLabel())
		}
	}
	return ""
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
