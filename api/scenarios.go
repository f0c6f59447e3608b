/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates teachers, holidays and
	raw marks for March 2025 that demonstrate specific resolution rules.

AVAILABLE SCENARIOS:

	perfect-month:   Everyone present every working day, earning the bonus
	holiday-bracket: Holiday flanked by absences becomes an absence
	sunday-bracket:  Sunday between an absent Saturday and Monday
	mixed-staff:     Late marks, gaps and leave across a realistic staff room

HOW SCENARIOS WORK:
 1. Reset database (clear all data except users)
 2. Create teachers
 3. Add holidays
 4. Add raw marks, leaving some days unmarked on purpose

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "holiday-bracket"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Payroll and report endpoints to inspect the result
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	scenarioYear  = 2025
	scenarioMonth = time.March
)

var scenarios = []ScenarioDTO{
	{
		ID:          "perfect-month",
		Name:        "Perfect Month",
		Description: "Three teachers present every working day; each earns the one-day bonus",
		Month:       "2025-03",
	},
	{
		ID:          "holiday-bracket",
		Name:        "Holiday Bracket",
		Description: "Holi on Fri 14 March; one teacher is absent on both sides of it and loses the holiday",
		Month:       "2025-03",
	},
	{
		ID:          "sunday-bracket",
		Name:        "Sunday Bracket",
		Description: "Absent Saturday and Monday turn an unmarked Sunday between them into an absence; a marked Sunday keeps its mark",
		Month:       "2025-03",
	},
	{
		ID:          "mixed-staff",
		Name:        "Mixed Staff Room",
		Description: "Late arrivals, scattered absences and unmarked days across five teachers",
		Month:       "2025-03",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "perfect-month":
		load = h.loadPerfectMonthScenario
	case "holiday-bracket":
		load = h.loadHolidayBracketScenario
	case "sunday-bracket":
		load = h.loadSundayBracketScenario
	case "mixed-staff":
		load = h.loadMixedStaffScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all domain data. Accounts are kept.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadPerfectMonthScenario(ctx context.Context) error {
	staff := []attendance.Teacher{
		scenarioTeacher("t-anita", "Anita Sharma", "Principal", 45000),
		scenarioTeacher("t-rahul", "Rahul Verma", "Mathematics", 30000),
		scenarioTeacher("t-meera", "Meera Iyer", "Science", 28000),
	}
	for _, t := range staff {
		if err := h.Store.SaveTeacher(ctx, t); err != nil {
			return err
		}
		if err := h.markMonth(ctx, t.ID, func(calendar.DayInfo) attendance.Status {
			return attendance.StatusPresent
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHolidayBracketScenario(ctx context.Context) error {
	if err := h.Store.SaveHoliday(ctx, calendar.Holiday{
		ID:   "hol-holi-2025",
		Date: calendar.NewDate(scenarioYear, scenarioMonth, 14),
		Name: "Holi",
		Type: calendar.HolidayFestival,
	}); err != nil {
		return err
	}

	// Absent on both sides of the holiday: the holiday resolves absent.
	bracketed := scenarioTeacher("t-kiran", "Kiran Rao", "English", 26000)
	// Absent only the day before: the holiday stays present.
	oneSided := scenarioTeacher("t-sunil", "Sunil Das", "History", 26000)

	for _, t := range []attendance.Teacher{bracketed, oneSided} {
		if err := h.Store.SaveTeacher(ctx, t); err != nil {
			return err
		}
	}

	if err := h.markMonth(ctx, bracketed.ID, func(d calendar.DayInfo) attendance.Status {
		switch d.DayNumber {
		case 13, 15:
			return attendance.StatusAbsent
		case 14:
			return ""
		}
		return attendance.StatusPresent
	}); err != nil {
		return err
	}
	return h.markMonth(ctx, oneSided.ID, func(d calendar.DayInfo) attendance.Status {
		switch d.DayNumber {
		case 13:
			return attendance.StatusAbsent
		case 14:
			return ""
		}
		return attendance.StatusPresent
	})
}

func (h *Handler) loadSundayBracketScenario(ctx context.Context) error {
	weekend := scenarioTeacher("t-pooja", "Pooja Nair", "Art", 24000)
	marked := scenarioTeacher("t-vikram", "Vikram Singh", "Physical Education", 24000)

	for _, t := range []attendance.Teacher{weekend, marked} {
		if err := h.Store.SaveTeacher(ctx, t); err != nil {
			return err
		}
	}

	// Sat 8 and Mon 10 absent; Sunday 9 left unmarked.
	if err := h.markMonth(ctx, weekend.ID, func(d calendar.DayInfo) attendance.Status {
		switch d.DayNumber {
		case 8, 10:
			return attendance.StatusAbsent
		}
		if d.IsSunday {
			return ""
		}
		return attendance.StatusPresent
	}); err != nil {
		return err
	}

	// Sat 15 and Mon 17 absent; Sunday 16 marked present and kept.
	return h.markMonth(ctx, marked.ID, func(d calendar.DayInfo) attendance.Status {
		switch d.DayNumber {
		case 15, 17:
			return attendance.StatusAbsent
		case 16:
			return attendance.StatusPresent
		}
		if d.IsSunday {
			return ""
		}
		return attendance.StatusPresent
	})
}

func (h *Handler) loadMixedStaffScenario(ctx context.Context) error {
	if err := h.Store.SaveHoliday(ctx, calendar.Holiday{
		ID:   "hol-annual-day-2025",
		Date: calendar.NewDate(scenarioYear, scenarioMonth, 21),
		Name: "Annual Day",
		Type: calendar.HolidaySchool,
	}); err != nil {
		return err
	}

	type plan struct {
		teacher attendance.Teacher
		late    map[int]bool
		absent  map[int]bool
		skip    map[int]bool
	}
	plans := []plan{
		{
			teacher: scenarioTeacher("t-farah", "Farah Khan", "Chemistry", 32000),
			late:    days(3, 4, 5, 6),
		},
		{
			teacher: scenarioTeacher("t-george", "George Thomas", "Physics", 31000),
			absent:  days(11),
		},
		{
			teacher: scenarioTeacher("t-lakshmi", "Lakshmi Menon", "Biology", 29500),
			absent:  days(20, 22),
			late:    days(18),
		},
		{
			teacher: scenarioTeacher("t-omar", "Omar Siddiqui", "Computer Science", 35000),
			absent:  days(4, 5, 25),
			skip:    days(26, 27, 28),
		},
		{
			teacher: scenarioTeacher("t-divya", "Divya Pillai", "Music", 22000),
			skip:    days(1, 3, 10, 17, 24, 31),
		},
	}

	for _, p := range plans {
		if err := h.Store.SaveTeacher(ctx, p.teacher); err != nil {
			return err
		}
		if err := h.markMonth(ctx, p.teacher.ID, func(d calendar.DayInfo) attendance.Status {
			switch {
			case d.IsSunday, p.skip[d.DayNumber]:
				return ""
			case p.absent[d.DayNumber]:
				return attendance.StatusAbsent
			case p.late[d.DayNumber]:
				return attendance.StatusLate
			}
			return attendance.StatusPresent
		}); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func scenarioTeacher(id, name, designation string, base int64) attendance.Teacher {
	return attendance.Teacher{
		ID:          attendance.TeacherID(id),
		Name:        name,
		Designation: designation,
		BaseSalary:  decimal.NewFromInt(base),
		JoinDate:    calendar.NewDate(2022, time.June, 1),
	}
}

// markMonth writes status(d) for every day of the scenario month; an empty
// status leaves the day unmarked.
func (h *Handler) markMonth(ctx context.Context, id attendance.TeacherID, status func(calendar.DayInfo) attendance.Status) error {
	month, err := calendar.MonthDays(scenarioYear, scenarioMonth)
	if err != nil {
		return err
	}
	markedAt := time.Date(scenarioYear, scenarioMonth+1, 1, 9, 0, 0, 0, time.UTC)
	for _, d := range month {
		st := status(d)
		if st == "" {
			continue
		}
		if _, err := h.Store.MarkAttendance(ctx, attendance.RawRecord{
			TeacherID: id,
			Date:      d.Date,
			Status:    st,
			MarkedAt:  markedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

func days(ns ...int) map[int]bool {
	m := make(map[int]bool, len(ns))
	for _, n := range ns {
		m[n] = true
	}
	return m
}
