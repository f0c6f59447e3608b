package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of days. Reports and payroll are
// always computed for a period, never for a single instant.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, &ValidationError{
			Field:  "period",
			Value:  fmt.Sprintf("%s..%s", start, end),
			Reason: "end before start",
			Err:    ErrInvalidPeriod,
		}
	}
	return Period{Start: start, End: end}, nil
}

// ParsePeriod parses both bounds and validates the range.
func ParsePeriod(from, to string) (Period, error) {
	start, err := ParseDate(from)
	if err != nil {
		return Period{}, withField(err, "from")
	}
	end, err := ParseDate(to)
	if err != nil {
		return Period{}, withField(err, "to")
	}
	return NewPeriod(start, end)
}

// MonthPeriod returns the period covering a whole calendar month.
func MonthPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, &ValidationError{
			Field:  "month",
			Value:  fmt.Sprintf("%d", int(month)),
			Reason: "must be between 1 and 12",
			Err:    ErrInvalidMonth,
		}
	}
	start := NewDate(year, month, 1)
	end := NewDate(year, month+1, 1).AddDays(-1)
	return Period{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Len returns the number of days in the period.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns every day of the period in order.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// DayInfos returns the DayInfo of every day in the period.
func (p Period) DayInfos() []DayInfo {
	days := p.Days()
	infos := make([]DayInfo, len(days))
	for i, d := range days {
		infos[i] = InfoFor(d)
	}
	return infos
}

// Pad widens the period by n days on both sides. The bracket rules look one
// day past each edge, so data for a month must be loaded with Pad(1).
func (p Period) Pad(n int) Period {
	return Period{Start: p.Start.AddDays(-n), End: p.End.AddDays(n)}
}

// Months returns the (year, month) pairs the period touches, in order.
func (p Period) Months() []Period {
	var months []Period
	cur := NewDate(p.Start.Year, p.Start.Month, 1)
	for cur.BeforeOrEqual(p.End) {
		m, _ := MonthPeriod(cur.Year, cur.Month)
		months = append(months, m)
		cur = NewDate(cur.Year, cur.Month+1, 1)
	}
	return months
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
