package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

func date(s string) calendar.Date { return calendar.MustParseDate(s) }

func seed(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := New()
	require.NoError(t, m.SaveTeacher(ctx, attendance.Teacher{ID: "t-1", Name: "Alice", BaseSalary: decimal.NewFromInt(30000)}))
	require.NoError(t, m.SaveTeacher(ctx, attendance.Teacher{ID: "t-2", Name: "Bob", BaseSalary: decimal.NewFromInt(24000)}))
	return m
}

func TestMarkAttendance_UpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := seed(t)

	created, err := m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-1", Date: date("2025-03-04"), Status: attendance.StatusAbsent})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-1", Date: date("2025-03-04"), Status: attendance.StatusPresent})
	require.NoError(t, err)
	assert.False(t, created)

	recs, err := m.RawAttendance(ctx, attendance.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.StatusPresent, recs[0].Status)
	assert.False(t, recs[0].MarkedAt.IsZero())
}

func TestToggleAttendance_Cycle(t *testing.T) {
	ctx := context.Background()
	m := seed(t)
	d := date("2025-03-04")

	var got []attendance.Status
	for i := 0; i < 4; i++ {
		st, err := m.ToggleAttendance(ctx, "t-1", d)
		require.NoError(t, err)
		got = append(got, st)
	}

	assert.Equal(t, []attendance.Status{
		attendance.StatusPresent,
		attendance.StatusLate,
		attendance.StatusAbsent,
		attendance.StatusPresent,
	}, got)
}

func TestMarkAllAndClear(t *testing.T) {
	ctx := context.Background()
	m := seed(t)
	d := date("2025-03-04")

	n, err := m.MarkAll(ctx, d, attendance.StatusLate)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.ClearAttendance(ctx, "t-1", d))

	recs, err := m.RawAttendance(ctx, attendance.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.TeacherID("t-2"), recs[0].TeacherID)
}

func TestRawAttendance_Filters(t *testing.T) {
	ctx := context.Background()
	m := seed(t)
	for _, s := range []string{"2025-02-28", "2025-03-01", "2025-03-31", "2025-04-01"} {
		_, err := m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-1", Date: date(s), Status: attendance.StatusAbsent})
		require.NoError(t, err)
	}
	_, err := m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-2", Date: date("2025-03-10"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	march, err := calendar.MonthPeriod(2025, time.March)
	require.NoError(t, err)
	id := attendance.TeacherID("t-1")

	recs, err := m.RawAttendance(ctx, attendance.RecordFilter{TeacherID: &id, Period: &march})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2025-03-01", recs[0].Date.String())
	assert.Equal(t, "2025-03-31", recs[1].Date.String())
}

func TestDeleteTeacher_RemovesAttendance(t *testing.T) {
	ctx := context.Background()
	m := seed(t)
	_, err := m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-1", Date: date("2025-03-04"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	require.NoError(t, m.DeleteTeacher(ctx, "t-1"))

	recs, err := m.RawAttendance(ctx, attendance.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	err = m.DeleteTeacher(ctx, "t-1")
	assert.True(t, attendance.IsNotFound(err))

	_, err = m.GetTeacher(ctx, "t-1")
	assert.ErrorIs(t, err, attendance.ErrTeacherNotFound)
}

func TestHolidays_OnePerDate(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.SaveHoliday(ctx, calendar.Holiday{ID: "h-1", Date: date("2025-03-05"), Name: "Old"}))
	require.NoError(t, m.SaveHoliday(ctx, calendar.Holiday{ID: "h-2", Date: date("2025-03-05"), Name: "New"}))

	hs, err := m.Holidays(ctx, nil)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "New", hs[0].Name)

	h, err := m.DeleteHoliday(ctx, "h-2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05", h.Date.String())

	_, err = m.DeleteHoliday(ctx, "h-2")
	assert.ErrorIs(t, err, attendance.ErrHolidayNotFound)
}

func TestLoadSnapshot_SeesNeighbouringMonths(t *testing.T) {
	// GIVEN: absences on Sat 2025-05-31 and Mon 2025-06-02
	ctx := context.Background()
	m := seed(t)
	for _, s := range []string{"2025-05-31", "2025-06-02"} {
		_, err := m.MarkAttendance(ctx, attendance.RawRecord{TeacherID: "t-1", Date: date(s), Status: attendance.StatusAbsent})
		require.NoError(t, err)
	}

	// WHEN: a June snapshot is loaded
	june, err := calendar.MonthPeriod(2025, time.June)
	require.NoError(t, err)
	snap, err := attendance.LoadSnapshot(ctx, m, june)
	require.NoError(t, err)

	// THEN: Sunday June 1 is bracketed by May 31
	res := snap.Resolve("t-1")
	require.Len(t, res, 30)
	assert.Equal(t, attendance.StatusAbsent, res[0].Status)
	assert.Equal(t, attendance.RuleSundayBracket, res[0].Rule)

	_, err = snap.Teacher("nope")
	assert.ErrorIs(t, err, attendance.ErrTeacherNotFound)
}
