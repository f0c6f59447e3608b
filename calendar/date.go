/*
Package calendar provides the day model the attendance engine is built on.

PURPOSE:
  Attendance is tracked per calendar day, never per instant. This package
  owns the Date value type, the per-month day list (DayInfo), date ranges
  (Period) and the holiday registry. Everything here is a pure function of
  the calendar except Registry, which is a mutable set.

KEY CONCEPTS:
  - Date: a timezone-free calendar day, comparable and usable as a map key
  - DayInfo: a Date plus the flags the resolution rules consult
  - Period: an inclusive [Start, End] range of days
  - Registry: the set of dated holiday exceptions

SEE ALSO:
  - period.go: Period and month helpers
  - holiday.go: Holiday and Registry
  - attendance/resolve.go: consumes DayInfo and Registry
*/
package calendar

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Calendar day value type
// =============================================================================

// Date is a calendar day without time or location.
// It is comparable, so it can be used directly as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the given components (e.g. Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime drops the time-of-day and location of t.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in the local timezone.
func Today() Date {
	return FromTime(time.Now())
}

// ParseDate parses "YYYY-MM-DD". A full RFC3339 timestamp is also accepted and
// its date part kept, since marking clients historically sent ISO timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return FromTime(t), nil
	}
	return Date{}, &ValidationError{Field: "date", Value: s, Reason: "must be YYYY-MM-DD", Err: ErrInvalidDate}
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Conversion
func (d Date) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }
func (d Date) String() string  { return d.Time().Format(DateLayout) }
func (d Date) IsZero() bool    { return d == Date{} }

// Arithmetic
func (d Date) AddDays(n int) Date { return FromTime(d.Time().AddDate(0, 0, n)) }

// Comparison
func (d Date) Before(other Date) bool        { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool         { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) IsSunday() bool        { return d.Weekday() == time.Sunday }
func (d Date) IsSaturday() bool      { return d.Weekday() == time.Saturday }
func (d Date) IsWeekend() bool       { return d.IsSunday() || d.IsSaturday() }

// DaysBetween returns the number of days from a to b (negative if b is before a).
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// =============================================================================
// DAY INFO - Derived per-day flags
// =============================================================================

// DayInfo describes one day of a month as seen by the resolution rules.
type DayInfo struct {
	Date      Date
	DayNumber int
	IsWeekend bool
	IsSunday  bool
}

// InfoFor derives the DayInfo of a single date.
func InfoFor(d Date) DayInfo {
	return DayInfo{
		Date:      d,
		DayNumber: d.Day,
		IsWeekend: d.IsWeekend(),
		IsSunday:  d.IsSunday(),
	}
}

// MonthDays returns one DayInfo per day of the month, from day 1 to the last
// day, in order. No padding to whole weeks.
func MonthDays(year int, month time.Month) ([]DayInfo, error) {
	p, err := MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return p.DayInfos(), nil
}
