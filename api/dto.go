/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  Handler.decode before any handler logic runs. Custom tags:
    notblank: string is not only whitespace
    date:     YYYY-MM-DD calendar date
    status:   present, absent or late

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      UserDTO `json:"user"`
}

type UserDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TeacherID string `json:"teacher_id,omitempty"`
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"notblank,max=64"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"required,oneof=admin manager viewer teacher"`
	TeacherID string `json:"teacher_id" validate:"required_if=Role teacher"`
}

func toUserDTO(u auth.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Role: string(u.Role), TeacherID: u.TeacherID}
}

// =============================================================================
// TEACHERS
// =============================================================================

type TeacherDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Designation string          `json:"designation"`
	BaseSalary  decimal.Decimal `json:"base_salary"`
	JoinDate    string          `json:"join_date,omitempty"`
	Contact     string          `json:"contact,omitempty"`
}

// TeacherRequest creates or replaces a teacher.
type TeacherRequest struct {
	Name        string          `json:"name" validate:"notblank,max=120"`
	Designation string          `json:"designation" validate:"max=120"`
	BaseSalary  decimal.Decimal `json:"base_salary"`
	JoinDate    string          `json:"join_date" validate:"omitempty,date"`
	Contact     string          `json:"contact" validate:"max=120"`
}

func toTeacherDTO(t attendance.Teacher) TeacherDTO {
	dto := TeacherDTO{
		ID:          string(t.ID),
		Name:        t.Name,
		Designation: t.Designation,
		BaseSalary:  t.BaseSalary,
		Contact:     t.Contact,
	}
	if !t.JoinDate.IsZero() {
		dto.JoinDate = t.JoinDate.String()
	}
	return dto
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type RecordDTO struct {
	TeacherID string `json:"teacher_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	MarkedAt  string `json:"marked_at,omitempty"`
}

type MarkAttendanceRequest struct {
	TeacherID string `json:"teacher_id" validate:"notblank"`
	Date      string `json:"date" validate:"required,date"`
	Status    string `json:"status" validate:"required,status"`
}

type ToggleAttendanceRequest struct {
	TeacherID string `json:"teacher_id" validate:"notblank"`
	Date      string `json:"date" validate:"required,date"`
}

// BulkAttendanceRequest either marks every teacher on one date (Date +
// Status) or imports a list of records. Strict rejects the whole batch on the
// first bad record; otherwise bad records are skipped and reported.
type BulkAttendanceRequest struct {
	Date    string           `json:"date" validate:"omitempty,date"`
	Status  string           `json:"status" validate:"omitempty,status"`
	Records []RecordInputDTO `json:"records"`
	Strict  bool             `json:"strict"`
}

// RecordInputDTO is an unvalidated record in a bulk import.
type RecordInputDTO struct {
	TeacherID string `json:"teacher_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

type BulkAttendanceResponse struct {
	Marked   int      `json:"marked"`
	Rejected []string `json:"rejected,omitempty"`
}

// DayDTO is one resolved day for one teacher.
type DayDTO struct {
	Date      string `json:"date"`
	Day       int    `json:"day"`
	IsSunday  bool   `json:"is_sunday"`
	IsHoliday bool   `json:"is_holiday"`
	Raw       string `json:"raw,omitempty"`
	Status    string `json:"status"`
	Rule      string `json:"rule"`
}

type TeacherMonthDTO struct {
	TeacherID   string   `json:"teacher_id"`
	TeacherName string   `json:"teacher_name"`
	Days        []DayDTO `json:"days"`
}

type MonthAttendanceDTO struct {
	Year     int               `json:"year"`
	Month    int               `json:"month"`
	Teachers []TeacherMonthDTO `json:"teachers"`
}

func toRecordDTO(r attendance.RawRecord) RecordDTO {
	dto := RecordDTO{TeacherID: string(r.TeacherID), Date: r.Date.String(), Status: string(r.Status)}
	if !r.MarkedAt.IsZero() {
		dto.MarkedAt = r.MarkedAt.Format(time.RFC3339)
	}
	return dto
}

func toDayDTO(res attendance.Resolution, holidays calendar.Lookup) DayDTO {
	return DayDTO{
		Date:      res.Day.Date.String(),
		Day:       res.Day.DayNumber,
		IsSunday:  res.Day.IsSunday,
		IsHoliday: holidays.IsHoliday(res.Day.Date),
		Raw:       string(res.Raw),
		Status:    string(res.Status),
		Rule:      string(res.Rule),
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,date"`
	Name string `json:"name" validate:"notblank,max=120"`
	Type string `json:"type" validate:"omitempty,oneof=festival school"`
}

func toHolidayDTO(h calendar.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Date: h.Date.String(), Name: h.Name, Type: string(h.Type)}
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollRunDTO struct {
	ID              string `json:"id"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
	Teachers        int    `json:"teachers"`
	TotalComputed   int64  `json:"total_computed"`
	TotalDeductions int64  `json:"total_deductions"`
	TotalNet        int64  `json:"total_net"`
	ClosedAt        string `json:"closed_at"`
}

func toPayrollRunDTO(r sqlite.PayrollRun) PayrollRunDTO {
	return PayrollRunDTO{
		ID:              r.ID,
		Year:            r.Year,
		Month:           int(r.Month),
		Teachers:        r.Teachers,
		TotalComputed:   r.TotalComputed,
		TotalDeductions: r.TotalDeductions,
		TotalNet:        r.TotalNet,
		ClosedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := attendance.ParseStatus(fl.Field().String())
		return err == nil
	})
	return v
}

// fieldErrors maps each failing field to the rule it broke.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out[fe.Field()] = msg
	}
	return out
}
