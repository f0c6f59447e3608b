package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

// Summary aggregates a month of salary results.
type Summary struct {
	Teachers        int             `json:"teachers"`
	TotalBase       decimal.Decimal `json:"total_base"`
	TotalComputed   int64           `json:"total_computed"`
	TotalDeductions int64           `json:"total_deductions"`
	TotalNet        int64           `json:"total_net"`
	AverageNet      int64           `json:"average_net"`
	HighestPaid     *PaidTeacher    `json:"highest_paid,omitempty"`
	LowestPaid      *PaidTeacher    `json:"lowest_paid,omitempty"`
}

// PaidTeacher names a teacher and their net pay.
type PaidTeacher struct {
	TeacherID attendance.TeacherID `json:"teacher_id"`
	Name      string               `json:"name"`
	Net       int64                `json:"net"`
}

// Summarize totals results. Ties for highest or lowest go to the earlier
// result. The average is rounded half away from zero.
func Summarize(results []SalaryResult) Summary {
	s := Summary{Teachers: len(results), TotalBase: decimal.Zero}
	if len(results) == 0 {
		return s
	}

	for i, r := range results {
		s.TotalBase = s.TotalBase.Add(r.BaseSalary)
		s.TotalComputed += r.ComputedSalary
		s.TotalDeductions += r.Deductions

		net := r.Net()
		if i == 0 || net > s.HighestPaid.Net {
			s.HighestPaid = &PaidTeacher{TeacherID: r.TeacherID, Name: r.TeacherName, Net: net}
		}
		if i == 0 || net < s.LowestPaid.Net {
			s.LowestPaid = &PaidTeacher{TeacherID: r.TeacherID, Name: r.TeacherName, Net: net}
		}
	}
	s.TotalNet = s.TotalComputed - s.TotalDeductions
	s.AverageNet = decimal.NewFromInt(s.TotalNet).
		Div(decimal.NewFromInt(int64(len(results)))).
		Round(0).IntPart()
	return s
}
