package builder

import "errors"

var (
	// ErrInvalidSchema is returned by NewSchema for inconsistent layouts.
	ErrInvalidSchema = errors.New("builder: invalid schema")
	// ErrUnknownField is returned when a record has no field of the given name.
	ErrUnknownField = errors.New("builder: unknown field")
	// ErrReadOnlyField is returned when setting a count, size or entity size
	// field; those are computed from the record.
	ErrReadOnlyField = errors.New("builder: field is computed and cannot be set")
	// ErrConditionNotMet is returned when accessing a conditional field whose
	// condition does not currently hold.
	ErrConditionNotMet = errors.New("builder: field is not present")
	// ErrTypeMismatch is returned when a value of the wrong Go type is assigned.
	ErrTypeMismatch = errors.New("builder: type mismatch")
)
