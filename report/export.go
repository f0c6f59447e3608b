package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/warp/attendance-engine/payroll"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// CSV EXPORT
// =============================================================================
// Files are UTF-8 with a byte order mark so spreadsheet tools detect the
// encoding of non-ASCII teacher names.

var (
	salaryHeader     = []string{"Teacher ID", "Teacher Name", "Base Salary", "Daily Wage", "Days Present", "Days Absent", "Days Leave", "Bonus", "Computed Salary", "Deductions", "Net Salary"}
	attendanceHeader = []string{"Teacher ID", "Teacher Name", "Total Days", "Present Days", "Absent Days", "Late Days", "Attendance Rate"}
)

// WriteSalaryCSV writes one row per teacher of a month's payroll.
func WriteSalaryCSV(w io.Writer, p *payroll.MonthPayroll) error {
	rows := make([][]string, 0, len(p.Results))
	for _, r := range p.Results {
		rows = append(rows, []string{
			string(r.TeacherID),
			r.TeacherName,
			r.BaseSalary.StringFixed(2),
			r.DailyWage.StringFixed(2),
			strconv.Itoa(r.Present),
			strconv.Itoa(r.Absent),
			strconv.Itoa(r.Leave),
			strconv.Itoa(r.Bonus),
			strconv.FormatInt(r.ComputedSalary, 10),
			strconv.FormatInt(r.Deductions, 10),
			strconv.FormatInt(r.Net(), 10),
		})
	}
	return writeCSV(w, salaryHeader, rows)
}

// WriteAttendanceCSV writes one row per teacher of an attendance summary.
func WriteAttendanceCSV(w io.Writer, s *Summary) error {
	rows := make([][]string, 0, len(s.Teachers))
	for _, t := range s.Teachers {
		rows = append(rows, []string{
			string(t.TeacherID),
			t.TeacherName,
			strconv.Itoa(t.WorkingDays),
			strconv.Itoa(t.Present),
			strconv.Itoa(t.Absent),
			strconv.Itoa(t.Late),
			t.Rate.StringFixed(2),
		})
	}
	return writeCSV(w, attendanceHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return tw.Close()
}
