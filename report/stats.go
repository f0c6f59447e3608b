/*
Package report aggregates effective attendance over a date range.

PURPOSE:
  Produces the numbers behind the attendance reports: working days in range,
  per-teacher present/absent/late counts and rates, fleet averages and a
  monthly trend. Everything is derived from resolved statuses; raw marks are
  never counted directly.

WORKING DAYS:
  Sundays are never working days. Whether holidays are excluded as well is a
  reporting choice, so callers pass a WorkingDayPolicy explicitly. The zero
  policy is rejected.

RATES:
  rate = present / working days * 100, present including late, rounded to
  2 places. Zero working days gives a rate of 0.

SEE ALSO:
  - export.go: CSV rendering of summaries and payrolls
*/
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// WORKING DAY POLICY
// =============================================================================

// WorkingDayPolicy decides which days count toward rate denominators.
type WorkingDayPolicy string

const (
	ExcludeSundays            WorkingDayPolicy = "sundays"
	ExcludeSundaysAndHolidays WorkingDayPolicy = "sundays_and_holidays"
)

// ErrInvalidPolicy is returned for an unknown or missing working-day policy.
var ErrInvalidPolicy = fmt.Errorf("%w: invalid working day policy", calendar.ErrValidation)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (WorkingDayPolicy, error) {
	p := WorkingDayPolicy(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p WorkingDayPolicy) Validate() error {
	switch p {
	case ExcludeSundays, ExcludeSundaysAndHolidays:
		return nil
	}
	return &calendar.ValidationError{
		Field:  "working_days",
		Value:  string(p),
		Reason: "must be sundays or sundays_and_holidays",
		Err:    ErrInvalidPolicy,
	}
}

// IsWorkingDay applies the policy to a single day.
func (p WorkingDayPolicy) IsWorkingDay(d calendar.DayInfo, holidays calendar.Lookup) bool {
	if d.IsSunday {
		return false
	}
	if p == ExcludeSundaysAndHolidays && holidays != nil && holidays.IsHoliday(d.Date) {
		return false
	}
	return true
}

// Options configure a report.
type Options struct {
	Policy WorkingDayPolicy
}

// =============================================================================
// SUMMARY
// =============================================================================

// TeacherStats are one teacher's counts over the working days of a range.
type TeacherStats struct {
	TeacherID   attendance.TeacherID `json:"teacher_id"`
	TeacherName string               `json:"teacher_name"`
	WorkingDays int                  `json:"working_days"`
	Present     int                  `json:"present"` // includes late
	Absent      int                  `json:"absent"`
	Late        int                  `json:"late"`
	Rate        decimal.Decimal      `json:"rate"`
}

// RoundedRate is the rate rounded to a whole percent.
func (s TeacherStats) RoundedRate() int64 { return s.Rate.Round(0).IntPart() }

// Summary is the attendance report for a range.
type Summary struct {
	Period      calendar.Period  `json:"-"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Policy      WorkingDayPolicy `json:"working_day_policy"`
	WorkingDays int              `json:"working_days"`
	Teachers    []TeacherStats   `json:"teachers"`

	TotalPresent int `json:"total_present"`
	TotalAbsent  int `json:"total_absent"`
	TotalLate    int `json:"total_late"`

	// AverageRate is the mean of the per-teacher rates.
	AverageRate decimal.Decimal `json:"average_rate"`
	// OverallRate is total present over teachers * working days.
	OverallRate decimal.Decimal `json:"overall_rate"`
}

// Build computes the summary for the snapshot's period.
func Build(snap *attendance.Snapshot, opts Options) (*Summary, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}

	days := snap.Period.DayInfos()
	working := make([]bool, len(days))
	workingDays := 0
	for i, d := range days {
		if opts.Policy.IsWorkingDay(d, snap.Holidays) {
			working[i] = true
			workingDays++
		}
	}

	s := &Summary{
		Period:      snap.Period,
		From:        snap.Period.Start.String(),
		To:          snap.Period.End.String(),
		Policy:      opts.Policy,
		WorkingDays: workingDays,
		Teachers:    make([]TeacherStats, 0, len(snap.Teachers)),
	}

	resolver := snap.Resolver()
	rateSum := decimal.Zero
	for _, t := range snap.Teachers {
		st := TeacherStats{TeacherID: t.ID, TeacherName: t.Name, WorkingDays: workingDays}
		for i, r := range resolver.ResolveDays(t.ID, days) {
			if !working[i] {
				continue
			}
			switch r.Status {
			case attendance.StatusLate:
				st.Late++
				st.Present++
			case attendance.StatusPresent:
				st.Present++
			case attendance.StatusAbsent:
				st.Absent++
			}
		}
		st.Rate = Rate(st.Present, workingDays)

		s.TotalPresent += st.Present
		s.TotalAbsent += st.Absent
		s.TotalLate += st.Late
		rateSum = rateSum.Add(st.Rate)
		s.Teachers = append(s.Teachers, st)
	}

	s.AverageRate = decimal.Zero
	if n := len(s.Teachers); n > 0 {
		s.AverageRate = rateSum.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	s.OverallRate = Rate(s.TotalPresent, workingDays*len(s.Teachers))
	return s, nil
}

// Rate returns count / total * 100 rounded to 2 places, or 0 when total is 0.
func Rate(count, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// Range loads a snapshot for p and builds its summary.
func Range(ctx context.Context, src attendance.Sources, p calendar.Period, opts Options) (*Summary, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	snap, err := attendance.LoadSnapshot(ctx, src, p)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", p, err)
	}
	return Build(snap, opts)
}

// =============================================================================
// TREND
// =============================================================================

// TrendPoint is one month of the attendance trend.
type TrendPoint struct {
	Year         int             `json:"year"`
	Month        time.Month      `json:"month"`
	Label        string          `json:"label"`
	WorkingDays  int             `json:"working_days"`
	TotalPresent int             `json:"total_present"`
	TotalAbsent  int             `json:"total_absent"`
	Rate         decimal.Decimal `json:"rate"`
}

// Trend builds one point per month from..to (inclusive) of year.
func Trend(ctx context.Context, src attendance.Sources, year int, from, to time.Month, opts Options) ([]TrendPoint, error) {
	if from > to {
		return nil, &calendar.ValidationError{
			Field:  "months",
			Value:  fmt.Sprintf("%d-%d", int(from), int(to)),
			Reason: "from must not be after to",
			Err:    calendar.ErrInvalidPeriod,
		}
	}

	points := make([]TrendPoint, 0, int(to-from)+1)
	for m := from; m <= to; m++ {
		p, err := calendar.MonthPeriod(year, m)
		if err != nil {
			return nil, err
		}
		s, err := Range(ctx, src, p, opts)
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{
			Year:         year,
			Month:        m,
			Label:        m.String()[:3],
			WorkingDays:  s.WorkingDays,
			TotalPresent: s.TotalPresent,
			TotalAbsent:  s.TotalAbsent,
			Rate:         s.OverallRate,
		})
	}
	return points, nil
}
