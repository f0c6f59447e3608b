package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// March 2025: Sat 1, Sun 2, Mon 3, Tue 4, Wed 5, Thu 6, Fri 7, Sat 8, Sun 9, Mon 10.

const teacher = attendance.TeacherID("t-1")

func day(s string) calendar.DayInfo {
	return calendar.InfoFor(calendar.MustParseDate(s))
}

func rec(date string, st attendance.Status) attendance.RawRecord {
	return attendance.RawRecord{TeacherID: teacher, Date: calendar.MustParseDate(date), Status: st}
}

func holidays(dates ...string) *calendar.Registry {
	r := calendar.NewRegistry()
	for _, d := range dates {
		r.Add(calendar.Holiday{Date: calendar.MustParseDate(d), Name: "Holiday " + d, Type: calendar.HolidayFestival})
	}
	return r
}

func resolver(h *calendar.Registry, records ...attendance.RawRecord) *attendance.Resolver {
	return attendance.NewResolver(attendance.NewIndex(records), h)
}

// =============================================================================
// RULE 1 - BASE
// =============================================================================

func TestResolve_SundayDefaultsToPresent(t *testing.T) {
	got := resolver(nil).Resolve(teacher, day("2025-03-02"))

	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Equal(t, attendance.RuleSundayDefault, got.Rule)
	assert.False(t, got.Marked)
}

func TestResolve_UnmarkedWorkingDayIsAbsent(t *testing.T) {
	got := resolver(nil).Resolve(teacher, day("2025-03-04")) // Tuesday

	assert.Equal(t, attendance.StatusAbsent, got.Status)
	assert.Equal(t, attendance.RuleUnmarked, got.Rule)
}

func TestResolve_RawRecordIsStartingStatus(t *testing.T) {
	r := resolver(nil,
		rec("2025-03-04", attendance.StatusPresent),
		rec("2025-03-05", attendance.StatusLate),
	)

	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-04")).Status)

	late := r.Resolve(teacher, day("2025-03-05"))
	assert.Equal(t, attendance.StatusLate, late.Status, "late is never collapsed into present")
	assert.Equal(t, attendance.RuleRecorded, late.Rule)
}

func TestResolve_DuplicateRecordsLastSuppliedWins(t *testing.T) {
	r := resolver(nil,
		rec("2025-03-04", attendance.StatusAbsent),
		rec("2025-03-04", attendance.StatusPresent),
	)
	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-04")).Status)
}

// =============================================================================
// RULE 2 - HOLIDAYS
// =============================================================================

func TestResolve_HolidayWithoutRecordIsPresent(t *testing.T) {
	got := resolver(holidays("2025-03-05")).Resolve(teacher, day("2025-03-05")) // Wednesday

	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Equal(t, attendance.RuleHoliday, got.Rule)
}

func TestResolve_HolidayOverridesRawAbsent(t *testing.T) {
	r := resolver(holidays("2025-03-05"), rec("2025-03-05", attendance.StatusAbsent))
	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-05")).Status)
}

func TestResolve_HolidayKeepsLate(t *testing.T) {
	r := resolver(holidays("2025-03-05"), rec("2025-03-05", attendance.StatusLate))
	assert.Equal(t, attendance.StatusLate, r.Resolve(teacher, day("2025-03-05")).Status)
}

func TestResolve_BracketedHolidayIsAbsent(t *testing.T) {
	// GIVEN: Wednesday holiday, raw absent Tuesday and Thursday
	r := resolver(holidays("2025-03-05"),
		rec("2025-03-04", attendance.StatusAbsent),
		rec("2025-03-06", attendance.StatusAbsent),
	)

	// THEN: the holiday is treated as unauthorized leave
	got := r.Resolve(teacher, day("2025-03-05"))
	assert.Equal(t, attendance.StatusAbsent, got.Status)
	assert.Equal(t, attendance.RuleHolidayBracket, got.Rule)
}

func TestResolve_HolidayBracketNeedsExactAbsent(t *testing.T) {
	tests := []struct {
		name   string
		before *attendance.Status
		after  *attendance.Status
	}{
		{"late before", ptr(attendance.StatusLate), ptr(attendance.StatusAbsent)},
		{"late after", ptr(attendance.StatusAbsent), ptr(attendance.StatusLate)},
		{"unmarked before", nil, ptr(attendance.StatusAbsent)},
		{"unmarked after", ptr(attendance.StatusAbsent), nil},
		{"present both", ptr(attendance.StatusPresent), ptr(attendance.StatusPresent)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []attendance.RawRecord
			if tt.before != nil {
				records = append(records, rec("2025-03-04", *tt.before))
			}
			if tt.after != nil {
				records = append(records, rec("2025-03-06", *tt.after))
			}
			got := resolver(holidays("2025-03-05"), records...).Resolve(teacher, day("2025-03-05"))
			assert.Equal(t, attendance.StatusPresent, got.Status)
		})
	}
}

func TestResolve_HolidayOnSundayFollowsSundayRules(t *testing.T) {
	r := resolver(holidays("2025-03-02"))
	got := r.Resolve(teacher, day("2025-03-02"))

	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Equal(t, attendance.RuleSundayDefault, got.Rule)
}

func TestResolve_DuplicateHolidaysActAsOne(t *testing.T) {
	h := calendar.NewRegistry(
		calendar.Holiday{Date: calendar.MustParseDate("2025-03-05"), Name: "A"},
		calendar.Holiday{Date: calendar.MustParseDate("2025-03-05"), Name: "B"},
	)
	got := resolver(h).Resolve(teacher, day("2025-03-05"))
	assert.Equal(t, attendance.StatusPresent, got.Status)
}

// =============================================================================
// RULE 3 - SUNDAY BRACKET
// =============================================================================

func TestResolve_WeekendBracketMakesSundayAbsent(t *testing.T) {
	// GIVEN: raw absent Saturday 8 and Monday 10
	r := resolver(nil,
		rec("2025-03-08", attendance.StatusAbsent),
		rec("2025-03-10", attendance.StatusAbsent),
	)

	got := r.Resolve(teacher, day("2025-03-09"))
	assert.Equal(t, attendance.StatusAbsent, got.Status)
	assert.Equal(t, attendance.RuleSundayBracket, got.Rule)
}

func TestResolve_WeekendBracketKeepsExplicitSundayMark(t *testing.T) {
	// GIVEN: absent Saturday 8 and Monday 10, Sunday 9 marked present
	r := resolver(nil,
		rec("2025-03-08", attendance.StatusAbsent),
		rec("2025-03-09", attendance.StatusPresent),
		rec("2025-03-10", attendance.StatusAbsent),
	)

	got := r.Resolve(teacher, day("2025-03-09"))
	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Equal(t, attendance.RuleRecorded, got.Rule)

	// An explicit late mark is kept the same way.
	r = resolver(nil,
		rec("2025-03-08", attendance.StatusAbsent),
		rec("2025-03-09", attendance.StatusLate),
		rec("2025-03-10", attendance.StatusAbsent),
	)
	assert.Equal(t, attendance.StatusLate, r.Resolve(teacher, day("2025-03-09")).Status)
}

func TestResolve_WeekendBracketIgnoresLateAndUnmarked(t *testing.T) {
	r := resolver(nil,
		rec("2025-03-08", attendance.StatusAbsent),
		rec("2025-03-10", attendance.StatusLate),
	)
	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-09")).Status)

	// Monday unmarked: resolves to absent by default, but the bracket reads raw data.
	r = resolver(nil, rec("2025-03-08", attendance.StatusAbsent))
	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-09")).Status)
}

func TestResolve_WeekendBracketAcrossMonthBoundary(t *testing.T) {
	// Sat 2025-05-31, Sun 2025-06-01, Mon 2025-06-02
	r := resolver(nil,
		rec("2025-05-31", attendance.StatusAbsent),
		rec("2025-06-02", attendance.StatusAbsent),
	)

	june, err := r.ResolveMonth(teacher, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, june[0].Status)
}

func TestResolve_BracketReadsRawNotResolvedNeighbours(t *testing.T) {
	// Friday holiday bracketed by Thursday absent and Saturday absent makes the
	// holiday absent. The following Sunday only sees raw Saturday (absent) and
	// raw Monday (unmarked), so it stays present: no chaining through resolved days.
	r := resolver(holidays("2025-03-07"),
		rec("2025-03-06", attendance.StatusAbsent),
		rec("2025-03-08", attendance.StatusAbsent),
	)

	assert.Equal(t, attendance.StatusAbsent, r.Resolve(teacher, day("2025-03-07")).Status)
	assert.Equal(t, attendance.StatusPresent, r.Resolve(teacher, day("2025-03-09")).Status)
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestResolve_IdempotentAndOrderIndependent(t *testing.T) {
	r := resolver(holidays("2025-03-05", "2025-03-14"),
		rec("2025-03-04", attendance.StatusAbsent),
		rec("2025-03-06", attendance.StatusAbsent),
		rec("2025-03-08", attendance.StatusAbsent),
		rec("2025-03-10", attendance.StatusAbsent),
		rec("2025-03-12", attendance.StatusLate),
	)

	days, err := calendar.MonthDays(2025, time.March)
	require.NoError(t, err)

	forward := r.ResolveDays(teacher, days)

	reversed := make([]calendar.DayInfo, len(days))
	for i, d := range days {
		reversed[len(days)-1-i] = d
	}
	backward := r.ResolveDays(teacher, reversed)

	for i := range forward {
		assert.Equal(t, forward[i], backward[len(days)-1-i])
		assert.Equal(t, forward[i], r.Resolve(teacher, days[i]), "resolving twice yields the same result")
	}
}

func TestResolve_OtherTeachersDoNotInterfere(t *testing.T) {
	other := attendance.RawRecord{TeacherID: "t-2", Date: calendar.MustParseDate("2025-03-04"), Status: attendance.StatusPresent}
	r := resolver(nil, other)

	assert.Equal(t, attendance.StatusAbsent, r.Resolve(teacher, day("2025-03-04")).Status)
	assert.Equal(t, attendance.StatusPresent, r.Resolve("t-2", day("2025-03-04")).Status)
}

func ptr(s attendance.Status) *attendance.Status { return &s }
