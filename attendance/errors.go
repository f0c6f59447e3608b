package attendance

import (
	"errors"
	"fmt"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidStatus is returned for statuses other than present/absent/late.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", calendar.ErrValidation)

	// ErrInvalidRecord is returned when a record is missing required fields.
	ErrInvalidRecord = fmt.Errorf("%w: invalid record", calendar.ErrValidation)

	// ErrTeacherNotFound is returned when a referenced teacher doesn't exist.
	ErrTeacherNotFound = errors.New("teacher not found")

	// ErrHolidayNotFound is returned when a referenced holiday doesn't exist.
	ErrHolidayNotFound = errors.New("holiday not found")

	// ErrDuplicate is returned by stores when a uniqueness constraint is hit
	// on an insert-only path (upserts never return it).
	ErrDuplicate = errors.New("duplicate")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RecordError ties a validation failure to the input that caused it, so
// callers of lenient parsing can report which rows were dropped.
type RecordError struct {
	Index int
	Input RecordInput
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (teacher %q, date %q): %v", e.Index, e.Input.TeacherID, e.Input.Date, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return calendar.IsValidation(err) || errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTeacherNotFound) || errors.Is(err, ErrHolidayNotFound)
}
