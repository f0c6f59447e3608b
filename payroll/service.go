package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// MonthPayroll is the priced payroll of every teacher for one month.
type MonthPayroll struct {
	Year    int            `json:"year"`
	Month   time.Month     `json:"month"`
	Period  string         `json:"period"`
	Results []SalaryResult `json:"results"`
	Summary Summary        `json:"summary"`
}

// Service loads data from its sources and computes payroll on demand.
// Nothing is cached; every call reads fresh data.
type Service struct {
	Sources attendance.Sources
}

func NewService(src attendance.Sources) *Service {
	return &Service{Sources: src}
}

// Month computes payroll for every teacher in the given month.
func (s *Service) Month(ctx context.Context, year int, month time.Month) (*MonthPayroll, error) {
	snap, err := s.load(ctx, year, month)
	if err != nil {
		return nil, err
	}

	results := make([]SalaryResult, 0, len(snap.Teachers))
	for _, t := range snap.Teachers {
		results = append(results, ComputeSalary(t, snap.Resolve(t.ID)))
	}

	return &MonthPayroll{
		Year:    year,
		Month:   month,
		Period:  snap.Period.String(),
		Results: results,
		Summary: Summarize(results),
	}, nil
}

// TeacherMonth computes payroll for a single teacher. An unknown teacher
// returns attendance.ErrTeacherNotFound.
func (s *Service) TeacherMonth(ctx context.Context, id attendance.TeacherID, year int, month time.Month) (SalaryResult, error) {
	snap, err := s.load(ctx, year, month)
	if err != nil {
		return SalaryResult{}, err
	}
	t, err := snap.Teacher(id)
	if err != nil {
		return SalaryResult{}, err
	}
	return ComputeSalary(t, snap.Resolve(id)), nil
}

func (s *Service) load(ctx context.Context, year int, month time.Month) (*attendance.Snapshot, error) {
	p, err := calendar.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	snap, err := attendance.LoadSnapshot(ctx, s.Sources, p)
	if err != nil {
		return nil, fmt.Errorf("payroll %04d-%02d: %w", year, int(month), err)
	}
	return snap, nil
}
