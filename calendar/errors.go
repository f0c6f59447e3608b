package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)

	// ErrInvalidMonth is returned for months outside 1..12.
	ErrInvalidMonth = fmt.Errorf("%w: invalid month", ErrValidation)

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period", ErrValidation)

	// ErrInvalidHolidayType is returned for holiday types other than festival/school.
	ErrInvalidHolidayType = fmt.Errorf("%w: invalid holiday type", ErrValidation)
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes a malformed input value. Callers can skip the
// offending input and continue; nothing in the engine treats it as fatal.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// IsValidation returns true if err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func withField(err error, field string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		cp := *ve
		cp.Field = field
		return &cp
	}
	return err
}
