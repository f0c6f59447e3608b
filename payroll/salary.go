/*
Package payroll prices a month of effective attendance.

PURPOSE:
  Turns a teacher's resolved statuses for one month into a SalaryResult. The
  computation is pure: same statuses and base salary, same result.

ALGORITHM:
  1. present = days resolved present or late
  2. absent  = days resolved absent
  3. one absence (if any) becomes paid leave
  4. no absence left and no leave used -> one bonus day
  5. daily wage = base / 30, whatever the month length
  6. computed   = round(base * (present + bonus + leave) / 30)
  7. deductions = round(base * absent / 30)

  Rounding is half away from zero and happens once, on the full product.
  Net pay is computed minus deductions and is left to the caller.

SEE ALSO:
  - attendance/resolve.go: produces the statuses counted here
  - service.go: loads a month and prices every teacher
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

// DaysPerMonth is the fixed payroll denominator.
const DaysPerMonth = 30

var daysPerMonth = decimal.NewFromInt(DaysPerMonth)

// =============================================================================
// TALLY
// =============================================================================

// Tally is the day count that salary is priced from.
type Tally struct {
	Present int `json:"days_present"`
	Absent  int `json:"days_absent"`
	Leave   int `json:"days_leave"`
	Bonus   int `json:"bonus"`
}

// Count tallies effective statuses, applying the leave allowance and the
// perfect-attendance bonus.
func Count(statuses []attendance.Status) Tally {
	var t Tally
	for _, s := range statuses {
		switch {
		case s.Attended():
			t.Present++
		case s == attendance.StatusAbsent:
			t.Absent++
		}
	}

	if t.Absent > 0 {
		t.Leave = 1
		t.Absent--
	}
	if t.Absent == 0 && t.Leave == 0 {
		t.Bonus = 1
	}
	return t
}

// PaidDays is the number of days the teacher is paid for.
func (t Tally) PaidDays() int { return t.Present + t.Bonus + t.Leave }

// =============================================================================
// SALARY RESULT
// =============================================================================

// SalaryResult is one teacher's payroll for one month.
type SalaryResult struct {
	TeacherID      attendance.TeacherID `json:"teacher_id"`
	TeacherName    string               `json:"teacher_name"`
	BaseSalary     decimal.Decimal      `json:"base_salary"`
	DailyWage      decimal.Decimal      `json:"daily_wage"`
	Tally
	ComputedSalary int64 `json:"computed_salary"`
	Deductions     int64 `json:"deductions"`
}

// Net is computed salary minus deductions.
func (r SalaryResult) Net() int64 { return r.ComputedSalary - r.Deductions }

// Price applies the wage arithmetic to a tally. Negative bases are priced
// as zero.
func Price(base decimal.Decimal, t Tally) SalaryResult {
	if base.IsNegative() {
		base = decimal.Zero
	}
	return SalaryResult{
		BaseSalary:     base,
		DailyWage:      base.Div(daysPerMonth).Round(2),
		Tally:          t,
		ComputedSalary: prorate(base, t.PaidDays()),
		Deductions:     prorate(base, t.Absent),
	}
}

// prorate returns round(base * days / 30). Multiplying first keeps the
// result exact until the single rounding step.
func prorate(base decimal.Decimal, days int) int64 {
	return base.Mul(decimal.NewFromInt(int64(days))).Div(daysPerMonth).Round(0).IntPart()
}

// ComputeSalary counts the resolutions for one teacher-month and prices them.
func ComputeSalary(t attendance.Teacher, resolutions []attendance.Resolution) SalaryResult {
	r := Price(t.BaseSalary, Count(attendance.Statuses(resolutions)))
	r.TeacherID = t.ID
	r.TeacherName = t.Name
	return r
}
