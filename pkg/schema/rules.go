package schema

import (
	"fmt"
	"time"
)

// AgeOn returns the age in whole years of someone born on birth, measured on
// today. The year difference is decremented when today's month/day precedes
// the birth month/day.
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// MinimumAge rejects FormatDate values whose age on now() is below min.
// Values that fail to parse pass here; the format check reports them.
func MinimumAge(min int, now func() time.Time, message string) Rule {
	if now == nil {
		now = time.Now
	}
	if message == "" {
		message = fmt.Sprintf("You must be at least %d years old", min)
	}
	return Rule{
		Name:    "minimum_age",
		Message: message,
		Check: func(value any, _ Values) bool {
			s, _ := value.(string)
			birth, err := time.Parse(DateLayout, s)
			if err != nil {
				return true
			}
			return AgeOn(birth, now()) >= min
		},
	}
}

// IntRange rejects integer values outside [min, max].
func IntRange(min, max int, message string) Rule {
	return Rule{
		Name:    "int_range",
		Message: message,
		Check: func(value any, _ Values) bool {
			n, ok := value.(int)
			if !ok {
				return true
			}
			return n >= min && n <= max
		},
	}
}
