/*
source.go - Read contracts between the engine and its data owners

PURPOSE:
  The engine never writes. It reads three things, each owned by an external
  collaborator (database, holiday admin, teacher CRUD):

    RecordSource:  raw attendance marks
    HolidaySource: dated holidays
    TeacherSource: teachers and base salaries

  LoadSnapshot fetches all three once and freezes them, so a request
  computes against an immutable view even while marks are being written.

CONSISTENCY:
  Concurrent marks for the same (teacher, date) are resolved by the store
  (last write wins). A snapshot may miss a write that lands mid-load; the next
  request recomputes from scratch. Nothing is cached here.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go
  - store/memory/memory.go
*/
package attendance

import (
	"context"
	"fmt"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// READ CONTRACTS
// =============================================================================

// RecordFilter narrows a raw attendance query. Nil fields mean "all".
type RecordFilter struct {
	TeacherID *TeacherID
	Period    *calendar.Period
}

// RecordSource supplies raw attendance records.
type RecordSource interface {
	RawAttendance(ctx context.Context, filter RecordFilter) ([]RawRecord, error)
}

// HolidaySource supplies holidays, optionally limited to a period.
type HolidaySource interface {
	Holidays(ctx context.Context, period *calendar.Period) ([]calendar.Holiday, error)
}

// TeacherSource supplies the teacher roster.
type TeacherSource interface {
	Teachers(ctx context.Context) ([]Teacher, error)
}

// Sources bundles the three read contracts.
type Sources interface {
	RecordSource
	HolidaySource
	TeacherSource
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of everything needed to resolve a period.
type Snapshot struct {
	Period   calendar.Period
	Teachers []Teacher
	Records  *Index
	Holidays *calendar.Registry
}

// LoadSnapshot reads teachers, holidays and raw records for p. Records and
// holidays are loaded one day past each edge of p so the bracket rules can
// see neighbours in adjacent months.
func LoadSnapshot(ctx context.Context, src Sources, p calendar.Period) (*Snapshot, error) {
	teachers, err := src.Teachers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}

	padded := p.Pad(1)
	records, err := src.RawAttendance(ctx, RecordFilter{Period: &padded})
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	holidays, err := src.Holidays(ctx, &padded)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}

	return &Snapshot{
		Period:   p,
		Teachers: teachers,
		Records:  NewIndex(records),
		Holidays: calendar.NewRegistry(holidays...),
	}, nil
}

// Resolver returns a resolver over the snapshot's data.
func (s *Snapshot) Resolver() *Resolver {
	return NewResolver(s.Records, s.Holidays)
}

// Teacher looks a teacher up by ID.
func (s *Snapshot) Teacher(id TeacherID) (Teacher, error) {
	for _, t := range s.Teachers {
		if t.ID == id {
			return t, nil
		}
	}
	return Teacher{}, fmt.Errorf("%w: %s", ErrTeacherNotFound, id)
}

// Resolve resolves every day of the snapshot period for one teacher.
func (s *Snapshot) Resolve(id TeacherID) []Resolution {
	return s.Resolver().ResolvePeriod(id, s.Period)
}
