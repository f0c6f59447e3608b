/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Login and bearer token checks
- Role permissions and teacher self-scope
- Teacher CRUD and validation
- Attendance marking, toggling, bulk import and the resolved month view
- Payroll, CSV export, reports
- Payroll run invalidation on attendance writes
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/report"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testEnv struct {
	t      *testing.T
	store  *sqlite.Store
	h      *Handler
	tokens *auth.TokenService
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenService("test-secret", time.Hour)
	h := NewHandler(store, tokens, report.ExcludeSundays)
	h.now = func() time.Time { return time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC) }

	return &testEnv{t: t, store: store, h: h, tokens: tokens, router: NewRouter(h, []string{"*"})}
}

func (e *testEnv) token(role auth.Role, teacherID string) string {
	e.t.Helper()
	tok, _, err := e.tokens.Issue(auth.User{ID: "u-" + string(role), Username: string(role), Role: role, TeacherID: teacherID})
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) admin() string { return e.token(auth.RoleAdmin, "") }

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) seedTeacher(id, name string, base int64) {
	e.t.Helper()
	require.NoError(e.t, e.store.SaveTeacher(context.Background(), attendance.Teacher{
		ID:         attendance.TeacherID(id),
		Name:       name,
		BaseSalary: decimal.NewFromInt(base),
	}))
}

func (e *testEnv) seedMark(id, date string, st attendance.Status) {
	e.t.Helper()
	_, err := e.store.MarkAttendance(context.Background(), attendance.RawRecord{
		TeacherID: attendance.TeacherID(id),
		Date:      calendar.MustParseDate(date),
		Status:    st,
	})
	require.NoError(e.t, err)
}

// seedFebruary marks Alice present every non-Sunday of February 2025 and
// Bob absent on Sat 1 and Mon 3, present otherwise.
func (e *testEnv) seedFebruary() {
	e.t.Helper()
	e.seedTeacher("alice", "Alice", 30000)
	e.seedTeacher("bob", "Bob", 24000)

	p, err := calendar.MonthPeriod(2025, time.February)
	require.NoError(e.t, err)
	for _, d := range p.DayInfos() {
		if d.IsSunday {
			continue
		}
		e.seedMark("alice", d.Date.String(), attendance.StatusPresent)
		st := attendance.StatusPresent
		if d.DayNumber == 1 || d.DayNumber == 3 {
			st = attendance.StatusAbsent
		}
		e.seedMark("bob", d.Date.String(), st)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	hash, err := auth.HashPassword("s3cret!")
	require.NoError(t, err)
	require.NoError(t, e.store.SaveUser(context.Background(), auth.User{
		ID: "u1", Username: "head", PasswordHash: hash, Role: auth.RoleManager,
	}))

	rec := e.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "head", Password: "s3cret!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[LoginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "manager", resp.User.Role)

	rec = e.do(http.MethodGet, "/api/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "head", decodeBody[UserDTO](t, rec).Username)

	rec = e.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "head", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "nobody", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/teachers", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/teachers", "not-a-token", nil).Code)

	other := auth.NewTokenService("other-secret", time.Hour)
	tok, _, err := other.Issue(auth.User{ID: "u1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/teachers", tok, nil).Code)
}

func TestCreateUser(t *testing.T) {
	e := newTestEnv(t)
	e.seedTeacher("alice", "Alice", 30000)

	rec := e.do(http.MethodPost, "/api/users", e.admin(), CreateUserRequest{
		Username: "alice", Password: "password", Role: "teacher", TeacherID: "alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decodeBody[UserDTO](t, rec).TeacherID)

	// Duplicate username
	rec = e.do(http.MethodPost, "/api/users", e.admin(), CreateUserRequest{
		Username: "alice", Password: "password", Role: "viewer",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Teacher role without a teacher
	rec = e.do(http.MethodPost, "/api/users", e.admin(), CreateUserRequest{
		Username: "bob", Password: "password", Role: "teacher",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Managers cannot manage users
	rec = e.do(http.MethodGet, "/api/users", e.token(auth.RoleManager, ""), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// PERMISSIONS
// =============================================================================

func TestRolePermissions(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.token(auth.RoleViewer, "")
	manager := e.token(auth.RoleManager, "")

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/attendance", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/teachers", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/attendance", viewer, MarkAttendanceRequest{}).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/reports/attendance", viewer, nil).Code)

	// Managers write attendance but see neither salaries nor settings.
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/attendance", manager, MarkAttendanceRequest{}).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/teachers", manager, TeacherRequest{Name: "X"}).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/payroll", manager, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/scenarios/reset", manager, nil).Code)
}

func TestTeacherSelfScope(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()
	tok := e.token(auth.RoleTeacher, "alice")

	rec := e.do(http.MethodGet, "/api/teachers", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	teachers := decodeBody[[]TeacherDTO](t, rec)
	require.Len(t, teachers, 1)
	assert.Equal(t, "alice", teachers[0].ID)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/teachers/alice", tok, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/teachers/bob", tok, nil).Code)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/payroll/alice?year=2025&month=2", tok, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/payroll/bob?year=2025&month=2", tok, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/payroll/export.csv?year=2025&month=2", tok, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/attendance?teacher_id=bob", tok, nil).Code)

	// The month payroll narrows to the caller.
	rec = e.do(http.MethodGet, "/api/payroll?year=2025&month=2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mp := decodeBody[struct {
		Results []struct {
			TeacherID string `json:"teacher_id"`
		} `json:"results"`
	}](t, rec)
	require.Len(t, mp.Results, 1)
	assert.Equal(t, "alice", mp.Results[0].TeacherID)

	// The month view too.
	rec = e.do(http.MethodGet, "/api/attendance/month?year=2025&month=2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[MonthAttendanceDTO](t, rec).Teachers, 1)

	// A teacher token without a linked teacher sees nothing.
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/teachers", e.token(auth.RoleTeacher, ""), nil).Code)
}

// =============================================================================
// TEACHERS
// =============================================================================

func TestTeacherCRUD(t *testing.T) {
	e := newTestEnv(t)
	tok := e.admin()

	rec := e.do(http.MethodPost, "/api/teachers", tok, TeacherRequest{
		Name:        "Asha",
		Designation: "Mathematics",
		BaseSalary:  decimal.NewFromInt(30000),
		JoinDate:    "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[TeacherDTO](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-06-01", created.JoinDate)

	rec = e.do(http.MethodPut, "/api/teachers/"+created.ID, tok, TeacherRequest{
		Name:       "Asha K",
		BaseSalary: decimal.NewFromInt(32000),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/teachers/"+created.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[TeacherDTO](t, rec)
	assert.Equal(t, "Asha K", got.Name)
	assert.True(t, got.BaseSalary.Equal(decimal.NewFromInt(32000)))

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/teachers/"+created.ID, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/teachers/"+created.ID, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/teachers/"+created.ID, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/teachers/missing", tok, TeacherRequest{Name: "X"}).Code)
}

func TestCreateTeacher_Validation(t *testing.T) {
	e := newTestEnv(t)
	tok := e.admin()

	rec := e.do(http.MethodPost, "/api/teachers", tok, TeacherRequest{Name: "", BaseSalary: decimal.NewFromInt(1)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Contains(t, resp.Details, "name")

	rec = e.do(http.MethodPost, "/api/teachers", tok, TeacherRequest{Name: "X", BaseSalary: decimal.NewFromInt(-5)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/teachers", tok, TeacherRequest{Name: "X", JoinDate: "2024-02-30"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestMarkAttendance(t *testing.T) {
	e := newTestEnv(t)
	e.seedTeacher("alice", "Alice", 30000)
	tok := e.admin()

	rec := e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "alice", Date: "2025-03-03", Status: "late"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "alice", Date: "2025-03-03", Status: "present"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/attendance?teacher_id=alice&from=2025-03-01&to=2025-03-31", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody[[]RecordDTO](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "present", records[0].Status)

	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "alice", Date: "2025-03-03", Status: "holiday"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "alice", Date: "03/03/2025", Status: "present"}).Code)
	assert.Equal(t, http.StatusNotFound,
		e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "ghost", Date: "2025-03-03", Status: "present"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodGet, "/api/attendance?from=2025-03-31&to=2025-03-01", tok, nil).Code)
}

func TestToggleAndClearAttendance(t *testing.T) {
	e := newTestEnv(t)
	e.seedTeacher("alice", "Alice", 30000)
	tok := e.admin()

	want := []string{"present", "late", "absent", "present"}
	for _, w := range want {
		rec := e.do(http.MethodPost, "/api/attendance/toggle", tok, ToggleAttendanceRequest{TeacherID: "alice", Date: "2025-03-04"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, w, decodeBody[RecordDTO](t, rec).Status)
	}

	rec := e.do(http.MethodDelete, "/api/attendance?teacher_id=alice&date=2025-03-04", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/attendance?teacher_id=alice", tok, nil)
	assert.Empty(t, decodeBody[[]RecordDTO](t, rec))

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodDelete, "/api/attendance?date=2025-03-04", tok, nil).Code)
}

func TestBulkAttendance(t *testing.T) {
	e := newTestEnv(t)
	e.seedTeacher("alice", "Alice", 30000)
	e.seedTeacher("bob", "Bob", 24000)
	tok := e.admin()

	t.Run("mark everyone", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Date: "2025-03-03", Status: "present"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, decodeBody[BulkAttendanceResponse](t, rec).Marked)
	})

	t.Run("lenient import skips bad records", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Records: []RecordInputDTO{
			{TeacherID: "alice", Date: "2025-03-04", Status: "late"},
			{TeacherID: "bob", Date: "2025-03-04", Status: "sick"},
			{TeacherID: "ghost", Date: "2025-03-04", Status: "present"},
		}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decodeBody[BulkAttendanceResponse](t, rec)
		assert.Equal(t, 1, resp.Marked)
		assert.Len(t, resp.Rejected, 2)
	})

	t.Run("strict import fails on first bad record", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Strict: true, Records: []RecordInputDTO{
			{TeacherID: "alice", Date: "2025-03-05", Status: "present"},
			{TeacherID: "bob", Date: "2025-13-05", Status: "present"},
		}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = e.do(http.MethodGet, "/api/attendance?from=2025-03-05&to=2025-03-05", tok, nil)
		assert.Empty(t, decodeBody[[]RecordDTO](t, rec))
	})

	t.Run("strict import with unknown teacher writes nothing", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/payroll/close?year=2025&month=3", tok, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Strict: true, Records: []RecordInputDTO{
			{TeacherID: "alice", Date: "2025-03-05", Status: "absent"},
			{TeacherID: "ghost", Date: "2025-03-05", Status: "present"},
		}})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "validation_error", decodeBody[ErrorResponse](t, rec).Code)

		rec = e.do(http.MethodGet, "/api/attendance?from=2025-03-05&to=2025-03-05", tok, nil)
		assert.Empty(t, decodeBody[[]RecordDTO](t, rec))

		_, err := e.store.GetPayrollRun(context.Background(), 2025, time.March)
		assert.NoError(t, err, "a rejected import must not touch the closed run")
	})

	t.Run("strict import writes all and reopens the month", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Strict: true, Records: []RecordInputDTO{
			{TeacherID: "alice", Date: "2025-03-05", Status: "absent"},
			{TeacherID: "bob", Date: "2025-03-05", Status: "present"},
		}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, decodeBody[BulkAttendanceResponse](t, rec).Marked)

		_, err := e.store.GetPayrollRun(context.Background(), 2025, time.March)
		assert.ErrorIs(t, err, sqlite.ErrPayrollRunNotFound)
	})

	t.Run("needs records or date and status", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Date: "2025-03-03"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mark everyone rejects a bad date or status", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Date: "2025-02-30", Status: "present"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = e.do(http.MethodPost, "/api/attendance/bulk", tok, BulkAttendanceRequest{Date: "2025-03-06", Status: "sick"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = e.do(http.MethodGet, "/api/attendance?from=2025-03-06&to=2025-03-06", tok, nil)
		assert.Empty(t, decodeBody[[]RecordDTO](t, rec))
	})
}

func TestMonthAttendance(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()

	rec := e.do(http.MethodGet, "/api/attendance/month?year=2025&month=2&teacher_id=bob", e.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[MonthAttendanceDTO](t, rec)
	require.Len(t, resp.Teachers, 1)

	days := resp.Teachers[0].Days
	require.Len(t, days, 28)

	sunday := days[1]
	assert.Equal(t, "2025-02-02", sunday.Date)
	assert.True(t, sunday.IsSunday)
	assert.Equal(t, "absent", sunday.Status)
	assert.Equal(t, string(attendance.RuleSundayBracket), sunday.Rule)

	next := days[8]
	assert.Equal(t, "present", next.Status)
	assert.Equal(t, string(attendance.RuleSundayDefault), next.Rule)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/attendance/month?year=2025&month=13", e.admin(), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/attendance/month?year=2025&month=2&teacher_id=ghost", e.admin(), nil).Code)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays(t *testing.T) {
	e := newTestEnv(t)
	tok := e.admin()

	rec := e.do(http.MethodPost, "/api/holidays", tok, CreateHolidayRequest{Date: "2025-03-14", Name: "Holi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[HolidayDTO](t, rec)
	assert.Equal(t, "festival", created.Type)

	// Same date replaces.
	rec = e.do(http.MethodPost, "/api/holidays", tok, CreateHolidayRequest{Date: "2025-03-14", Name: "Holi (school)", Type: "school"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodGet, "/api/holidays?year=2025", e.token(auth.RoleViewer, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]HolidayDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "school", list[0].Type)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/holidays", tok, CreateHolidayRequest{Date: "2025-03-15", Name: "X", Type: "bank"}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/holidays/"+created.ID, tok, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/holidays/"+list[0].ID, tok, nil).Code)
}

// =============================================================================
// PAYROLL
// =============================================================================

type salaryRow struct {
	TeacherID      string `json:"teacher_id"`
	DaysPresent    int    `json:"days_present"`
	DaysAbsent     int    `json:"days_absent"`
	DaysLeave      int    `json:"days_leave"`
	Bonus          int    `json:"bonus"`
	ComputedSalary int64  `json:"computed_salary"`
	Deductions     int64  `json:"deductions"`
	NetSalary      int64  `json:"net_salary"`
}

func TestMonthPayroll(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()

	rec := e.do(http.MethodGet, "/api/payroll?year=2025&month=2", e.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[struct {
		Results []salaryRow `json:"results"`
		Summary struct {
			Teachers int   `json:"teachers"`
			TotalNet int64 `json:"total_net"`
		} `json:"summary"`
	}](t, rec)

	require.Len(t, resp.Results, 2)
	byID := map[string]salaryRow{}
	for _, r := range resp.Results {
		byID[r.TeacherID] = r
	}

	alice := byID["alice"]
	assert.Equal(t, 28, alice.DaysPresent)
	assert.Equal(t, 1, alice.Bonus)
	assert.Equal(t, int64(29000), alice.NetSalary)

	// Sat 1 and Mon 3 absent, Sunday 2 bracketed: 3 absences, one becomes leave.
	bob := byID["bob"]
	assert.Equal(t, 25, bob.DaysPresent)
	assert.Equal(t, 2, bob.DaysAbsent)
	assert.Equal(t, 1, bob.DaysLeave)
	assert.Equal(t, int64(20800), bob.ComputedSalary)
	assert.Equal(t, int64(1600), bob.Deductions)
	assert.Equal(t, int64(19200), bob.NetSalary)

	assert.Equal(t, 2, resp.Summary.Teachers)
	assert.Equal(t, int64(48200), resp.Summary.TotalNet)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/payroll/ghost?year=2025&month=2", e.admin(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/payroll?year=2025&month=0", e.admin(), nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/payroll?year=2025&month=2", e.token(auth.RoleViewer, ""), nil).Code)
}

func TestExportPayroll(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()

	rec := e.do(http.MethodGet, "/api/payroll/export.csv?year=2025&month=2", e.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "salary-2025-02.csv")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Equal(t, 3, strings.Count(body, "\n"))
}

func TestClosePayroll_InvalidatedByAttendanceWrite(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()
	tok := e.admin()

	rec := e.do(http.MethodPost, "/api/payroll/close?year=2025&month=2", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decodeBody[PayrollRunDTO](t, rec)
	assert.Len(t, run.ID, 26)
	assert.Equal(t, int64(48200), run.TotalNet)

	rec = e.do(http.MethodGet, "/api/payroll/runs/2025/2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeBody[struct {
		Results []salaryRow `json:"results"`
	}](t, rec)
	assert.Len(t, stored.Results, 2)

	// A mark on 1 March can change how 28 February resolves.
	rec = e.do(http.MethodPost, "/api/attendance", tok, MarkAttendanceRequest{TeacherID: "alice", Date: "2025-03-01", Status: "absent"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodGet, "/api/payroll/runs", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[struct {
		Runs []PayrollRunDTO `json:"runs"`
	}](t, rec)
	assert.Empty(t, runs.Runs)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/payroll/runs/2025/2", tok, nil).Code)
}

func TestHolidayWrite_InvalidatesRun(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()
	tok := e.admin()

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/payroll/close?year=2025&month=2", tok, nil).Code)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/holidays", tok, CreateHolidayRequest{Date: "2025-02-14", Name: "Founders Day"}).Code)

	_, err := e.store.GetPayrollRun(context.Background(), 2025, time.February)
	assert.ErrorIs(t, err, sqlite.ErrPayrollRunNotFound)
}

func TestTeacherEdit_KeepsEarlierClosedRun(t *testing.T) {
	// GIVEN: February closed while "today" is 10 April
	e := newTestEnv(t)
	e.seedFebruary()
	tok := e.admin()
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/payroll/close?year=2025&month=2", tok, nil).Code)

	// WHEN: Alice's base salary changes
	rec := e.do(http.MethodPut, "/api/teachers/alice", tok, TeacherRequest{Name: "Alice", BaseSalary: decimal.NewFromInt(36000)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the February run keeps the figures it was closed with
	run, err := e.store.GetPayrollRun(context.Background(), 2025, time.February)
	require.NoError(t, err)
	assert.Equal(t, int64(48200), run.TotalNet)

	// Reclosing reprices it.
	rec = e.do(http.MethodPost, "/api/payroll/close?year=2025&month=2", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(54000), decodeBody[PayrollRunDTO](t, rec).TotalNet)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAttendanceReport(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()
	tok := e.admin()

	rec := e.do(http.MethodGet, "/api/reports/attendance?from=2025-02-01&to=2025-02-28", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decodeBody[struct {
		Policy      string `json:"working_day_policy"`
		WorkingDays int    `json:"working_days"`
		Teachers    []struct {
			TeacherID string          `json:"teacher_id"`
			Present   int             `json:"present"`
			Rate      decimal.Decimal `json:"rate"`
		} `json:"teachers"`
	}](t, rec)
	assert.Equal(t, "sundays", s.Policy)
	assert.Equal(t, 24, s.WorkingDays)
	require.Len(t, s.Teachers, 2)

	rec = e.do(http.MethodGet, "/api/reports/attendance?from=2025-02-01&to=2025-02-28&working_days=weekdays", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/reports/attendance?from=2025-02-01", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/reports/export.csv?from=2025-02-01&to=2025-02-28", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"))

	assert.Equal(t, http.StatusForbidden,
		e.do(http.MethodGet, "/api/reports/attendance", e.token(auth.RoleTeacher, "alice"), nil).Code)
}

func TestAttendanceTrend(t *testing.T) {
	e := newTestEnv(t)
	e.seedFebruary()

	rec := e.do(http.MethodGet, "/api/reports/trend?year=2025&from_month=1&to_month=3", e.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[struct {
		Points []report.TrendPoint `json:"points"`
	}](t, rec)
	require.Len(t, resp.Points, 3)
	assert.Equal(t, "Feb", resp.Points[1].Label)

	rec = e.do(http.MethodGet, "/api/reports/trend?year=2025&from_month=5&to_month=2", e.admin(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
