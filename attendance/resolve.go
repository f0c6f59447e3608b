package attendance

import (
	"time"

	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// RESOLUTION RULES
// =============================================================================
//
// For each (teacher, day), in order, later rules overriding earlier ones:
//
//   1. Base: a raw record is the starting status. Unmarked Sunday -> present,
//      unmarked working day -> absent.
//   2. Holiday (not Sunday): -> present, except
//   2a. raw(day-1) == absent AND raw(day+1) == absent -> absent.
//   3. Sunday bracket: unmarked Sunday with raw(Saturday) == absent AND
//      raw(Monday) == absent -> absent. An explicit Sunday mark is kept.
//   4. late is kept as late; only payroll decides it counts as attended.
//
// Every condition reads RAW records and the holiday set, never another day's
// resolved status. Resolution is therefore a single pass per day and the
// result does not depend on the order days are evaluated in.

// Rule names the rule that produced an effective status.
type Rule string

const (
	RuleRecorded       Rule = "recorded"
	RuleUnmarked       Rule = "unmarked"
	RuleSundayDefault  Rule = "sunday_default"
	RuleHoliday        Rule = "holiday"
	RuleHolidayBracket Rule = "holiday_bracket"
	RuleSundayBracket  Rule = "sunday_bracket"
)

// Resolution is the effective status of one teacher on one day.
type Resolution struct {
	Day    calendar.DayInfo
	Status Status
	Raw    Status // empty when unmarked
	Marked bool
	Rule   Rule
}

// Resolver applies the resolution rules to a fixed set of raw data.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	Records  *Index
	Holidays calendar.Lookup
}

// NewResolver creates a resolver. A nil holiday lookup means no holidays.
func NewResolver(records *Index, holidays calendar.Lookup) *Resolver {
	if holidays == nil {
		holidays = calendar.NewRegistry()
	}
	return &Resolver{Records: records, Holidays: holidays}
}

// Resolve computes the effective status for teacher on day.
func (r *Resolver) Resolve(teacher TeacherID, day calendar.DayInfo) Resolution {
	raw, marked := r.Records.Raw(teacher, day.Date)
	res := Resolution{Day: day, Raw: raw, Marked: marked}

	// Rule 1
	switch {
	case marked:
		res.Status, res.Rule = raw, RuleRecorded
	case day.IsSunday:
		res.Status, res.Rule = StatusPresent, RuleSundayDefault
	default:
		res.Status, res.Rule = StatusAbsent, RuleUnmarked
	}

	// Rule 2 / 2a
	if !day.IsSunday && r.Holidays.IsHoliday(day.Date) {
		switch {
		case r.bracketedByAbsence(teacher, day.Date):
			res.Status, res.Rule = StatusAbsent, RuleHolidayBracket
		case res.Status != StatusLate:
			res.Status, res.Rule = StatusPresent, RuleHoliday
		}
	}

	// Rule 3: Saturday and Monday are the Sunday's immediate neighbours.
	if day.IsSunday && !marked && r.bracketedByAbsence(teacher, day.Date) {
		res.Status, res.Rule = StatusAbsent, RuleSundayBracket
	}

	return res
}

// bracketedByAbsence reports whether the raw marks on both calendar
// neighbours of d are exactly absent. late and unmarked do not count.
func (r *Resolver) bracketedByAbsence(teacher TeacherID, d calendar.Date) bool {
	return r.Records.RawIs(teacher, d.AddDays(-1), StatusAbsent) &&
		r.Records.RawIs(teacher, d.AddDays(1), StatusAbsent)
}

// ResolveDays resolves each day in order.
func (r *Resolver) ResolveDays(teacher TeacherID, days []calendar.DayInfo) []Resolution {
	out := make([]Resolution, len(days))
	for i, d := range days {
		out[i] = r.Resolve(teacher, d)
	}
	return out
}

// ResolvePeriod resolves every day of p.
func (r *Resolver) ResolvePeriod(teacher TeacherID, p calendar.Period) []Resolution {
	return r.ResolveDays(teacher, p.DayInfos())
}

// ResolveMonth resolves every day of the given month.
func (r *Resolver) ResolveMonth(teacher TeacherID, year int, month time.Month) ([]Resolution, error) {
	days, err := calendar.MonthDays(year, month)
	if err != nil {
		return nil, err
	}
	return r.ResolveDays(teacher, days), nil
}

// Statuses extracts the effective statuses from resolutions.
func Statuses(rs []Resolution) []Status {
	out := make([]Status, len(rs))
	for i, r := range rs {
		out[i] = r.Status
	}
	return out
}
