// Package schema declares form fields and validates raw form values against
// them. A Schema is an ordered list of FieldSpec entries plus optional
// cross-field rules. Validate never fails with a Go error: it returns a Result
// that is either Valid, carrying the coerced record, or Invalid, carrying every
// field-level problem at once. Field checks run in declaration order and stop
// at the first failing check for a given field (required, type, format, enum,
// then derived rules); cross-field rules run afterwards and their failures are
// unioned with the field failures. Rules receive their clock through the
// caller (see MinimumAge) so validating the same values twice yields the same
// Result.
package schema
