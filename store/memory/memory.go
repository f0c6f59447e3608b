// Package memory provides an in-memory implementation of the attendance
// read contracts plus the CRUD writes that feed them (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	teachers   map[attendance.TeacherID]attendance.Teacher
	attendance map[key]attendance.RawRecord
	holidays   map[string]calendar.Holiday // by ID

	now func() time.Time
}

type key struct {
	TeacherID attendance.TeacherID
	Date      calendar.Date
}

var _ attendance.Sources = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		teachers:   make(map[attendance.TeacherID]attendance.Teacher),
		attendance: make(map[key]attendance.RawRecord),
		holidays:   make(map[string]calendar.Holiday),
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------
// Teachers
// -----------------------------------------------------------------------------

// SaveTeacher inserts or replaces a teacher.
func (m *Memory) SaveTeacher(_ context.Context, t attendance.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[t.ID] = t
	return nil
}

// GetTeacher returns a teacher or ErrTeacherNotFound.
func (m *Memory) GetTeacher(_ context.Context, id attendance.TeacherID) (attendance.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teachers[id]
	if !ok {
		return attendance.Teacher{}, fmt.Errorf("%w: %s", attendance.ErrTeacherNotFound, id)
	}
	return t, nil
}

// DeleteTeacher removes a teacher and their attendance.
func (m *Memory) DeleteTeacher(_ context.Context, id attendance.TeacherID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[id]; !ok {
		return fmt.Errorf("%w: %s", attendance.ErrTeacherNotFound, id)
	}
	delete(m.teachers, id)
	for k := range m.attendance {
		if k.TeacherID == id {
			delete(m.attendance, k)
		}
	}
	return nil
}

// Teachers returns all teachers ordered by name.
func (m *Memory) Teachers(_ context.Context) ([]attendance.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]attendance.Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Attendance (upsert keyed by teacher + date)
// -----------------------------------------------------------------------------

// MarkAttendance upserts a raw record. Last write wins. Reports whether a
// new record was created.
func (m *Memory) MarkAttendance(_ context.Context, r attendance.RawRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markLocked(r), nil
}

func (m *Memory) markLocked(r attendance.RawRecord) bool {
	if r.MarkedAt.IsZero() {
		r.MarkedAt = m.now().UTC()
	}
	k := key{TeacherID: r.TeacherID, Date: r.Date}
	_, existed := m.attendance[k]
	m.attendance[k] = r
	return !existed
}

// ToggleAttendance advances the mark for (teacher, date) through the cycle
// absent -> present -> late -> absent. An unmarked day becomes present.
func (m *Memory) ToggleAttendance(_ context.Context, teacher attendance.TeacherID, d calendar.Date) (attendance.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := attendance.StatusPresent
	if cur, ok := m.attendance[key{teacher, d}]; ok {
		next = cur.Status.Next()
	}
	m.markLocked(attendance.RawRecord{TeacherID: teacher, Date: d, Status: next})
	return next, nil
}

// MarkAll sets the same status for every teacher on d.
func (m *Memory) MarkAll(_ context.Context, d calendar.Date, st attendance.Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.teachers {
		m.markLocked(attendance.RawRecord{TeacherID: id, Date: d, Status: st})
	}
	return len(m.teachers), nil
}

// ClearAttendance removes the mark, returning the day to "unmarked".
func (m *Memory) ClearAttendance(_ context.Context, teacher attendance.TeacherID, d calendar.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attendance, key{teacher, d})
	return nil
}

// RawAttendance returns records matching the filter ordered by date.
func (m *Memory) RawAttendance(_ context.Context, f attendance.RecordFilter) ([]attendance.RawRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []attendance.RawRecord
	for k, r := range m.attendance {
		if f.TeacherID != nil && k.TeacherID != *f.TeacherID {
			continue
		}
		if f.Period != nil && !f.Period.Contains(k.Date) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Holidays
// -----------------------------------------------------------------------------

// SaveHoliday inserts or replaces a holiday. A holiday on an already used
// date replaces the existing one.
func (m *Memory) SaveHoliday(_ context.Context, h calendar.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.holidays {
		if existing.Date == h.Date && id != h.ID {
			delete(m.holidays, id)
		}
	}
	m.holidays[h.ID] = h
	return nil
}

// DeleteHoliday removes a holiday by ID and returns it.
func (m *Memory) DeleteHoliday(_ context.Context, id string) (calendar.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holidays[id]
	if !ok {
		return calendar.Holiday{}, fmt.Errorf("%w: %s", attendance.ErrHolidayNotFound, id)
	}
	delete(m.holidays, id)
	return h, nil
}

// Holidays returns holidays within p (all when p is nil) ordered by date.
func (m *Memory) Holidays(_ context.Context, p *calendar.Period) ([]calendar.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []calendar.Holiday
	for _, h := range m.holidays {
		if p == nil || p.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
