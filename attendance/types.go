/*
Package attendance turns sparse raw attendance marks into effective per-day
statuses.

PURPOSE:
  Persisted attendance data is deliberately rule-free: one optional mark per
  (teacher, date). Every business rule (Sunday defaults, holiday credit,
  bracketed absences) lives in the Resolver and is recomputed on demand, so a
  rule change never needs a data migration.

KEY CONCEPTS:
  - RawRecord: a persisted mark {present, absent, late}; no record = unmarked
  - Index: (teacher, date) -> raw status, last supplied wins on duplicates
  - Resolver: single-pass rule evaluation against raw data only
  - Snapshot: an immutable fetch of teachers, records and holidays

SEE ALSO:
  - resolve.go: the resolution rules
  - source.go: read contracts supplied by storage
  - payroll/: consumes Resolutions
*/
package attendance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is a raw or effective attendance status.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPresent, StatusAbsent, StatusLate:
		return st, nil
	}
	return "", &calendar.ValidationError{
		Field:  "status",
		Value:  s,
		Reason: "must be present, absent or late",
		Err:    ErrInvalidStatus,
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Attended reports whether the day counts as attended (present or late).
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// Next is the toggle cycle used by the marking UI:
// absent -> present -> late -> absent.
func (s Status) Next() Status {
	switch s {
	case StatusAbsent:
		return StatusPresent
	case StatusPresent:
		return StatusLate
	default:
		return StatusAbsent
	}
}

// =============================================================================
// TEACHER
// =============================================================================

// TeacherID identifies a teacher.
type TeacherID string

// Teacher is owned by administrative CRUD and read-only during computation.
type Teacher struct {
	ID          TeacherID
	Name        string
	Designation string
	BaseSalary  decimal.Decimal // monthly
	JoinDate    calendar.Date
	Contact     string
}

// =============================================================================
// RAW RECORD
// =============================================================================

// RawRecord is one persisted mark. Absence of a record means "unmarked";
// there is no stored unmarked value.
type RawRecord struct {
	TeacherID TeacherID
	Date      calendar.Date
	Status    Status
	MarkedAt  time.Time
}

// RecordInput is the untyped form of a record as received from clients or
// legacy exports, before validation.
type RecordInput struct {
	TeacherID string
	Date      string
	Status    string
}

// Mode controls how ParseRecords reacts to malformed input.
type Mode int

const (
	// ModeLenient skips bad records and reports them alongside the good ones.
	ModeLenient Mode = iota
	// ModeStrict fails on the first bad record.
	ModeStrict
)

// ParseRecords validates raw inputs. In lenient mode it returns every valid
// record plus one error per rejected input; in strict mode it stops at the
// first error. Malformed input is never skipped silently.
func ParseRecords(inputs []RecordInput, mode Mode) ([]RawRecord, []error, error) {
	records := make([]RawRecord, 0, len(inputs))
	var rejected []error

	for i, in := range inputs {
		rec, err := ParseRecord(in)
		if err != nil {
			err = &RecordError{Index: i, Input: in, Err: err}
			if mode == ModeStrict {
				return nil, nil, err
			}
			rejected = append(rejected, err)
			continue
		}
		records = append(records, rec)
	}
	return records, rejected, nil
}

// ParseRecord validates a single input.
func ParseRecord(in RecordInput) (RawRecord, error) {
	if strings.TrimSpace(in.TeacherID) == "" {
		return RawRecord{}, &calendar.ValidationError{Field: "teacher_id", Reason: "is required", Err: ErrInvalidRecord}
	}
	d, err := calendar.ParseDate(in.Date)
	if err != nil {
		return RawRecord{}, err
	}
	st, err := ParseStatus(in.Status)
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{TeacherID: TeacherID(in.TeacherID), Date: d, Status: st}, nil
}
