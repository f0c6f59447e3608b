/*
handlers.go - HTTP API handlers for the attendance and payroll system

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP request/response,
  JSON serialization and permission scoping, and delegates to the domain
  packages (attendance, payroll, report).

ENDPOINTS:
  Auth:
    POST   /api/auth/login                 Exchange credentials for a token
    GET    /api/auth/me                    Current user
    GET    /api/users                      List accounts
    POST   /api/users                      Create account

  Teachers:
    GET    /api/teachers                   List teachers
    POST   /api/teachers                   Create teacher
    GET    /api/teachers/{id}              Get teacher
    PUT    /api/teachers/{id}              Replace teacher
    DELETE /api/teachers/{id}              Delete teacher and their marks

  Attendance:
    GET    /api/attendance                 Raw marks (?teacher_id&from&to)
    POST   /api/attendance                 Upsert one mark
    POST   /api/attendance/toggle          Cycle a mark
    POST   /api/attendance/bulk            Mark everyone, or import records
    DELETE /api/attendance                 Clear a mark (?teacher_id&date)
    GET    /api/attendance/month           Effective statuses (?year&month)

  Holidays:
    GET    /api/holidays                   List (?year)
    POST   /api/holidays                   Create
    DELETE /api/holidays/{id}              Delete

  Payroll:
    GET    /api/payroll                    Month payroll (?year&month)
    GET    /api/payroll/{teacherID}        One teacher's month
    GET    /api/payroll/export.csv         CSV download
    GET    /api/payroll/runs               Closed months
    GET    /api/payroll/runs/{year}/{month} One closed month with results
    POST   /api/payroll/close              Close a month now

  Reports:
    GET    /api/reports/attendance         Range summary (?from&to&working_days)
    GET    /api/reports/trend              Monthly series (?year&from_month&to_month)
    GET    /api/reports/export.csv         CSV download

PERMISSIONS:
  Routes are guarded by RequirePermission in server.go. Teacher-role users
  hold self-scoped read permissions; handlers narrow their queries to the
  caller's own teacher ID with teacherScope.

INVALIDATION:
  Any attendance or holiday write deletes closed payroll runs for the months
  whose resolution it can change (the bracket rules reach one day into the
  neighbouring month).

  Teacher edits only invalidate the months around today. Earlier closed
  months are frozen against salary changes and deletes; POST
  /api/payroll/close recloses one on demand.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 401: Missing/invalid token, bad credentials
  - 403: Permission denied
  - 404: Resource not found
  - 409: Conflict (duplicate username)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and permission checks
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/payroll"
	"github.com/warp/attendance-engine/report"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Payroll *payroll.Service
	Tokens  *auth.TokenService

	// Policy is the working-day policy used when a report request does not
	// name one.
	Policy report.WorkingDayPolicy

	validate *validator.Validate
	now      func() time.Time

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, tokens *auth.TokenService, policy report.WorkingDayPolicy) *Handler {
	return &Handler{
		Store:    store,
		Payroll:  payroll.NewService(store),
		Tokens:   tokens,
		Policy:   policy,
		validate: newValidator(),
		now:      time.Now,
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login exchanges credentials for a bearer token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, exp, err := h.Tokens.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
		User:      toUserDTO(user),
	})
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	user, err := h.Store.GetUser(r.Context(), c.Subject)
	if err != nil {
		writeDomainError(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// ListUsers returns all accounts.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates an account.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role", err)
		return
	}
	if role == auth.RoleTeacher {
		if _, err := h.Store.GetTeacher(ctx, attendance.TeacherID(req.TeacherID)); err != nil {
			writeDomainError(w, "Unknown teacher", err)
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	user := auth.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		TeacherID:    req.TeacherID,
	}
	if err := h.Store.SaveUser(ctx, user); err != nil {
		writeDomainError(w, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns all teachers, or only the caller's own record for
// self-scoped roles.
// GET /api/teachers
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	own, err := teacherScope(r, auth.ReadTeachers, "")
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}

	var teachers []attendance.Teacher
	if own != "" {
		t, err := h.Store.GetTeacher(ctx, attendance.TeacherID(own))
		if err != nil {
			writeDomainError(w, "Failed to get teacher", err)
			return
		}
		teachers = []attendance.Teacher{t}
	} else if teachers, err = h.Store.Teachers(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = toTeacherDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTeacher returns a single teacher.
// GET /api/teachers/{id}
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := teacherScope(r, auth.ReadTeachers, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}

	t, err := h.Store.GetTeacher(r.Context(), attendance.TeacherID(id))
	if err != nil {
		writeDomainError(w, "Failed to get teacher", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeacherDTO(t))
}

// CreateTeacher creates a teacher.
// POST /api/teachers
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req TeacherRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := teacherFromRequest(attendance.TeacherID(uuid.NewString()), req)
	if err != nil {
		writeDomainError(w, "Invalid teacher", err)
		return
	}
	if err := h.Store.SaveTeacher(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create teacher", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeacherDTO(t))
}

// UpdateTeacher replaces a teacher's details.
// PUT /api/teachers/{id}
func (h *Handler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := attendance.TeacherID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetTeacher(ctx, id); err != nil {
		writeDomainError(w, "Failed to get teacher", err)
		return
	}

	var req TeacherRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := teacherFromRequest(id, req)
	if err != nil {
		writeDomainError(w, "Invalid teacher", err)
		return
	}
	if err := h.Store.SaveTeacher(ctx, t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update teacher", err)
		return
	}

	// Base salary may have changed. Earlier closed months stay frozen.
	h.invalidate(ctx, h.today())

	writeJSON(w, http.StatusOK, toTeacherDTO(t))
}

// DeleteTeacher removes a teacher and their attendance.
// DELETE /api/teachers/{id}
func (h *Handler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Store.DeleteTeacher(ctx, attendance.TeacherID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete teacher", err)
		return
	}
	h.invalidate(ctx, h.today())
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func teacherFromRequest(id attendance.TeacherID, req TeacherRequest) (attendance.Teacher, error) {
	if req.BaseSalary.IsNegative() {
		return attendance.Teacher{}, &calendar.ValidationError{
			Field:  "base_salary",
			Value:  req.BaseSalary.String(),
			Reason: "must not be negative",
			Err:    calendar.ErrValidation,
		}
	}

	t := attendance.Teacher{
		ID:          id,
		Name:        req.Name,
		Designation: req.Designation,
		BaseSalary:  req.BaseSalary,
		Contact:     req.Contact,
	}
	if req.JoinDate != "" {
		d, err := calendar.ParseDate(req.JoinDate)
		if err != nil {
			return attendance.Teacher{}, err
		}
		t.JoinDate = d
	}
	return t, nil
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns raw marks.
// GET /api/attendance?teacher_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	teacherID, err := teacherScope(r, auth.ReadAttendance, q.Get("teacher_id"))
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}

	var filter attendance.RecordFilter
	if teacherID != "" {
		id := attendance.TeacherID(teacherID)
		filter.TeacherID = &id
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		p, err := calendar.ParsePeriod(q.Get("from"), q.Get("to"))
		if err != nil {
			writeDomainError(w, "Invalid period", err)
			return
		}
		filter.Period = &p
	}

	records, err := h.Store.RawAttendance(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkAttendance upserts one raw mark.
// POST /api/attendance
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MarkAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := attendance.ParseRecord(attendance.RecordInput{TeacherID: req.TeacherID, Date: req.Date, Status: req.Status})
	if err != nil {
		writeDomainError(w, "Invalid record", err)
		return
	}
	rec.MarkedAt = h.now().UTC()

	created, err := h.Store.MarkAttendance(ctx, rec)
	if err != nil {
		writeDomainError(w, "Failed to mark attendance", err)
		return
	}
	h.invalidate(ctx, rec.Date)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toRecordDTO(rec))
}

// ToggleAttendance cycles the mark absent -> present -> late -> absent.
// POST /api/attendance/toggle
func (h *Handler) ToggleAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ToggleAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	st, err := h.Store.ToggleAttendance(ctx, attendance.TeacherID(req.TeacherID), d)
	if err != nil {
		writeDomainError(w, "Failed to toggle attendance", err)
		return
	}
	h.invalidate(ctx, d)

	writeJSON(w, http.StatusOK, RecordDTO{TeacherID: req.TeacherID, Date: d.String(), Status: string(st)})
}

// BulkAttendance marks every teacher on one date, or imports a batch of
// records. Imports are lenient unless strict is set.
// POST /api/attendance/bulk
func (h *Handler) BulkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BulkAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	if len(req.Records) == 0 {
		if req.Date == "" || req.Status == "" {
			writeError(w, http.StatusBadRequest, "Either records or date and status are required", nil)
			return
		}
		d, err := calendar.ParseDate(req.Date)
		if err != nil {
			writeDomainError(w, "Invalid date", err)
			return
		}
		st, err := attendance.ParseStatus(req.Status)
		if err != nil {
			writeDomainError(w, "Invalid status", err)
			return
		}

		n, err := h.Store.MarkAll(ctx, d, st)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to mark attendance", err)
			return
		}
		h.invalidate(ctx, d)
		writeJSON(w, http.StatusOK, BulkAttendanceResponse{Marked: n})
		return
	}

	mode := attendance.ModeLenient
	if req.Strict {
		mode = attendance.ModeStrict
	}
	inputs := make([]attendance.RecordInput, len(req.Records))
	for i, in := range req.Records {
		inputs[i] = attendance.RecordInput{TeacherID: in.TeacherID, Date: in.Date, Status: in.Status}
	}

	records, rejected, err := attendance.ParseRecords(inputs, mode)
	if err != nil {
		writeDomainError(w, "Invalid records", err)
		return
	}

	markedAt := h.now().UTC()
	for i := range records {
		records[i].MarkedAt = markedAt
	}

	// Strict imports are all or nothing.
	if req.Strict {
		n, err := h.Store.MarkBatch(ctx, records)
		if attendance.IsNotFound(err) {
			err = &calendar.ValidationError{Field: "teacher_id", Reason: err.Error(), Err: attendance.ErrInvalidRecord}
		}
		if err != nil {
			writeDomainError(w, "Failed to import records", err)
			return
		}
		dates := make([]calendar.Date, len(records))
		for i, rec := range records {
			dates[i] = rec.Date
		}
		h.invalidate(ctx, dates...)
		writeJSON(w, http.StatusOK, BulkAttendanceResponse{Marked: n})
		return
	}

	resp := BulkAttendanceResponse{}
	for _, e := range rejected {
		resp.Rejected = append(resp.Rejected, e.Error())
	}

	var dates []calendar.Date
	for _, rec := range records {
		if _, err := h.Store.MarkAttendance(ctx, rec); err != nil {
			if attendance.IsNotFound(err) {
				resp.Rejected = append(resp.Rejected, err.Error())
				continue
			}
			// Marks already written still invalidate their months.
			h.invalidate(ctx, dates...)
			writeDomainError(w, "Failed to mark attendance", err)
			return
		}
		resp.Marked++
		dates = append(dates, rec.Date)
	}
	h.invalidate(ctx, dates...)

	writeJSON(w, http.StatusOK, resp)
}

// ClearAttendance removes a mark, returning the day to unmarked.
// DELETE /api/attendance?teacher_id=...&date=YYYY-MM-DD
func (h *Handler) ClearAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if q.Get("teacher_id") == "" {
		writeError(w, http.StatusBadRequest, "teacher_id is required", nil)
		return
	}
	d, err := calendar.ParseDate(q.Get("date"))
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	if err := h.Store.ClearAttendance(ctx, attendance.TeacherID(q.Get("teacher_id")), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear attendance", err)
		return
	}
	h.invalidate(ctx, d)

	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

// MonthAttendance returns the effective status of every day of a month,
// with the rule that produced it.
// GET /api/attendance/month?year=2025&month=3[&teacher_id=...]
func (h *Handler) MonthAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	teacherID, err := teacherScope(r, auth.ReadAttendance, r.URL.Query().Get("teacher_id"))
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}
	year, month, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	p, err := calendar.MonthPeriod(year, month)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	snap, err := attendance.LoadSnapshot(ctx, h.Store, p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load attendance", err)
		return
	}

	teachers := snap.Teachers
	if teacherID != "" {
		t, err := snap.Teacher(attendance.TeacherID(teacherID))
		if err != nil {
			writeDomainError(w, "Failed to get teacher", err)
			return
		}
		teachers = []attendance.Teacher{t}
	}

	resp := MonthAttendanceDTO{Year: year, Month: int(month), Teachers: make([]TeacherMonthDTO, 0, len(teachers))}
	for _, t := range teachers {
		resolved := snap.Resolve(t.ID)
		days := make([]DayDTO, len(resolved))
		for i, res := range resolved {
			days[i] = toDayDTO(res, snap.Holidays)
		}
		resp.Teachers = append(resp.Teachers, TeacherMonthDTO{TeacherID: string(t.ID), TeacherName: t.Name, Days: days})
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns holidays, optionally for one year.
// GET /api/holidays[?year=2025]
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	var period *calendar.Period
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		p := calendar.Period{Start: calendar.NewDate(year, time.January, 1), End: calendar.NewDate(year, time.December, 31)}
		period = &p
	}

	holidays, err := h.Store.Holidays(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates a holiday, replacing any holiday on the same date.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}
	typ := calendar.HolidayFestival
	if req.Type != "" {
		if typ, err = calendar.ParseHolidayType(req.Type); err != nil {
			writeDomainError(w, "Invalid holiday type", err)
			return
		}
	}

	holiday := calendar.Holiday{ID: uuid.NewString(), Date: d, Name: req.Name, Type: typ}
	if err := h.Store.SaveHoliday(ctx, holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	h.invalidate(ctx, d)

	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holiday, err := h.Store.DeleteHoliday(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to delete holiday", err)
		return
	}
	h.invalidate(ctx, holiday.Date)

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// MonthPayroll computes the payroll for a month. Self-scoped callers only
// see their own result.
// GET /api/payroll?year=2025&month=3
func (h *Handler) MonthPayroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	own, err := teacherScope(r, auth.ReadSalary, "")
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}
	year, month, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	if own != "" {
		res, err := h.Payroll.TeacherMonth(ctx, attendance.TeacherID(own), year, month)
		if err != nil {
			writeDomainError(w, "Failed to compute payroll", err)
			return
		}
		results := []payroll.SalaryResult{res}
		writeJSON(w, http.StatusOK, payrollResponse(&payroll.MonthPayroll{
			Year: year, Month: month, Results: results, Summary: payroll.Summarize(results),
		}))
		return
	}

	mp, err := h.Payroll.Month(ctx, year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, payrollResponse(mp))
}

// TeacherPayroll computes one teacher's payroll for a month.
// GET /api/payroll/{teacherID}?year=2025&month=3
func (h *Handler) TeacherPayroll(w http.ResponseWriter, r *http.Request) {
	id, err := teacherScope(r, auth.ReadSalary, chi.URLParam(r, "teacherID"))
	if err != nil {
		writeDomainError(w, "Forbidden", err)
		return
	}
	year, month, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	res, err := h.Payroll.TeacherMonth(r.Context(), attendance.TeacherID(id), year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, salaryResponse(res))
}

// ExportPayroll streams a month's payroll as CSV.
// GET /api/payroll/export.csv?year=2025&month=3
func (h *Handler) ExportPayroll(w http.ResponseWriter, r *http.Request) {
	if !auth.Can(claimsFrom(r.Context()).Role, auth.ReadSalary) {
		writeDomainError(w, "Forbidden", auth.ErrForbidden)
		return
	}
	year, month, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	mp, err := h.Payroll.Month(r.Context(), year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute payroll", err)
		return
	}

	writeCSVHeaders(w, fmt.Sprintf("salary-%04d-%02d.csv", year, int(month)))
	if err := report.WriteSalaryCSV(w, mp); err != nil {
		log.Printf("[API] Payroll export failed: %v", err)
	}
}

// ListPayrollRuns returns closed months, newest first.
// GET /api/payroll/runs
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	if !auth.Can(claimsFrom(r.Context()).Role, auth.ReadSalary) {
		writeDomainError(w, "Forbidden", auth.ErrForbidden)
		return
	}

	runs, err := h.Store.ListPayrollRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payroll runs", err)
		return
	}

	dtos := make([]PayrollRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toPayrollRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// GetPayrollRun returns one closed month with its stored results.
// GET /api/payroll/runs/{year}/{month}
func (h *Handler) GetPayrollRun(w http.ResponseWriter, r *http.Request) {
	if !auth.Can(claimsFrom(r.Context()).Role, auth.ReadSalary) {
		writeDomainError(w, "Forbidden", auth.ErrForbidden)
		return
	}
	year, month, err := parseMonth(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	run, err := h.Store.GetPayrollRun(r.Context(), year, month)
	if err != nil {
		writeDomainError(w, "Failed to get payroll run", err)
		return
	}

	var results []payroll.SalaryResult
	if err := json.Unmarshal([]byte(run.ResultsJSON), &results); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt payroll run", err)
		return
	}

	out := make([]map[string]any, len(results))
	for i, res := range results {
		out[i] = salaryResponse(res)
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": toPayrollRunDTO(run), "results": out})
}

// ClosePayroll closes a month immediately, replacing any earlier run.
// POST /api/payroll/close?year=2025&month=3
func (h *Handler) ClosePayroll(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}

	run, err := closeMonth(r.Context(), h.Store, h.Payroll, year, month, h.now())
	if err != nil {
		writeDomainError(w, "Failed to close payroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayrollRunDTO(run))
}

// payrollResponse adds each result's net pay, which the domain type leaves
// to callers.
func payrollResponse(mp *payroll.MonthPayroll) map[string]any {
	results := make([]map[string]any, len(mp.Results))
	for i, res := range mp.Results {
		results[i] = salaryResponse(res)
	}
	return map[string]any{
		"year":    mp.Year,
		"month":   int(mp.Month),
		"results": results,
		"summary": mp.Summary,
	}
}

func salaryResponse(res payroll.SalaryResult) map[string]any {
	return map[string]any{
		"teacher_id":      res.TeacherID,
		"teacher_name":    res.TeacherName,
		"base_salary":     res.BaseSalary,
		"daily_wage":      res.DailyWage,
		"days_present":    res.Present,
		"days_absent":     res.Absent,
		"days_leave":      res.Leave,
		"bonus":           res.Bonus,
		"computed_salary": res.ComputedSalary,
		"deductions":      res.Deductions,
		"net_salary":      res.Net(),
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// AttendanceReport summarizes a date range.
// GET /api/reports/attendance?from=...&to=...&working_days=sundays
func (h *Handler) AttendanceReport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ExportAttendance streams a range summary as CSV.
// GET /api/reports/export.csv?from=...&to=...
func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeCSVHeaders(w, fmt.Sprintf("attendance-%s-%s.csv", s.From, s.To))
	if err := report.WriteAttendanceCSV(w, s); err != nil {
		log.Printf("[API] Attendance export failed: %v", err)
	}
}

// AttendanceTrend returns one point per month.
// GET /api/reports/trend?year=2025[&from_month=1&to_month=12]
func (h *Handler) AttendanceTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts, err := h.reportOptions(r)
	if err != nil {
		writeDomainError(w, "Invalid working day policy", err)
		return
	}

	year := h.now().Year()
	if q.Get("year") != "" {
		if year, err = strconv.Atoi(q.Get("year")); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
	}
	from, to := time.January, time.December
	if v := q.Get("from_month"); v != "" {
		if _, from, err = parseMonth(strconv.Itoa(year), v); err != nil {
			writeDomainError(w, "Invalid from_month", err)
			return
		}
	}
	if v := q.Get("to_month"); v != "" {
		if _, to, err = parseMonth(strconv.Itoa(year), v); err != nil {
			writeDomainError(w, "Invalid to_month", err)
			return
		}
	}

	points, err := report.Trend(r.Context(), h.Store, year, from, to, opts)
	if err != nil {
		writeDomainError(w, "Failed to build trend", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "points": points})
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (*report.Summary, bool) {
	q := r.URL.Query()

	opts, err := h.reportOptions(r)
	if err != nil {
		writeDomainError(w, "Invalid working day policy", err)
		return nil, false
	}

	var p calendar.Period
	if q.Get("from") == "" && q.Get("to") == "" {
		today := h.today()
		p, err = calendar.MonthPeriod(today.Year, today.Month)
	} else {
		p, err = calendar.ParsePeriod(q.Get("from"), q.Get("to"))
	}
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return nil, false
	}

	s, err := report.Range(r.Context(), h.Store, p, opts)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return nil, false
	}
	return s, true
}

func (h *Handler) reportOptions(r *http.Request) (report.Options, error) {
	policy := h.Policy
	if v := r.URL.Query().Get("working_days"); v != "" {
		p, err := report.ParsePolicy(v)
		if err != nil {
			return report.Options{}, err
		}
		policy = p
	}
	return report.Options{Policy: policy}, policy.Validate()
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it, writing a 400 and
// returning false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_error",
				Details: fieldErrors(verrs),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// invalidate drops closed payroll runs for every month whose resolution a
// change on any of dates can affect.
func (h *Handler) invalidate(ctx context.Context, dates ...calendar.Date) {
	seen := make(map[calendar.Date]bool)
	for _, d := range dates {
		affected := calendar.Period{Start: d, End: d}.Pad(1)
		for _, m := range affected.Months() {
			if seen[m.Start] {
				continue
			}
			seen[m.Start] = true

			deleted, err := h.Store.DeletePayrollRun(ctx, m.Start.Year, m.Start.Month)
			if err != nil {
				log.Printf("[Payroll] Failed to invalidate %04d-%02d: %v", m.Start.Year, int(m.Start.Month), err)
				continue
			}
			if deleted {
				log.Printf("[Payroll] Invalidated closed run %04d-%02d", m.Start.Year, int(m.Start.Month))
			}
		}
	}
}

func (h *Handler) today() calendar.Date { return calendar.FromTime(h.now()) }

// monthParam reads ?year=&month=, defaulting to the current month.
func (h *Handler) monthParam(r *http.Request) (int, time.Month, error) {
	today := h.today()
	y, m := r.URL.Query().Get("year"), r.URL.Query().Get("month")
	if y == "" {
		y = strconv.Itoa(today.Year)
	}
	if m == "" {
		m = strconv.Itoa(int(today.Month))
	}
	return parseMonth(y, m)
}

func parseMonth(y, m string) (int, time.Month, error) {
	year, err := strconv.Atoi(y)
	if err != nil || year < 1 {
		return 0, 0, &calendar.ValidationError{Field: "year", Value: y, Reason: "must be a positive integer", Err: calendar.ErrInvalidMonth}
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, &calendar.ValidationError{Field: "month", Value: m, Reason: "must be between 1 and 12", Err: calendar.ErrInvalidMonth}
	}
	return year, time.Month(month), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case isForbidden(err):
		status, code = http.StatusForbidden, "forbidden"
	case calendar.IsValidation(err):
		status, code = http.StatusBadRequest, "validation_error"
	case attendance.IsNotFound(err), errors.Is(err, auth.ErrUserNotFound), errors.Is(err, sqlite.ErrPayrollRunNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, attendance.ErrDuplicate):
		status, code = http.StatusConflict, "conflict"
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}
