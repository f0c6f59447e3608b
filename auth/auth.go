/*
Package auth holds roles, the static permission table, password hashing and
bearer tokens.

KEY CONCEPTS:
  - Role: admin, manager, viewer or teacher
  - Permission: a capability such as read_attendance
  - Scope: whether a role holds a permission for everything, only for its own
    teacher record, or not at all
  - TokenService: issues and verifies HS256 JWTs

The permission table is static. There is no policy engine.
*/
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)

// =============================================================================
// ROLES & PERMISSIONS
// =============================================================================

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
	RoleTeacher Role = "teacher"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := permissions[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

type Permission string

const (
	ReadTeachers    Permission = "read_teachers"
	WriteTeachers   Permission = "write_teachers"
	ReadAttendance  Permission = "read_attendance"
	WriteAttendance Permission = "write_attendance"
	ReadReports     Permission = "read_reports"
	ReadSalary      Permission = "read_salary"
	ManageUsers     Permission = "manage_users"
	ManageSettings  Permission = "manage_settings"
)

// self returns the own-record variant of a read permission.
func (p Permission) self() Permission { return p + "_self" }

var permissions = map[Role]map[Permission]bool{
	RoleAdmin: set(ReadTeachers, WriteTeachers, ReadAttendance, WriteAttendance,
		ReadReports, ReadSalary, ManageUsers, ManageSettings),
	RoleManager: set(ReadAttendance, WriteAttendance),
	RoleViewer:  set(ReadAttendance),
	RoleTeacher: set(ReadTeachers.self(), ReadAttendance.self(), ReadSalary.self()),
}

func set(ps ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}
	return m
}

// Can reports whether role holds p for every teacher.
func Can(role Role, p Permission) bool {
	return permissions[role][p]
}

// Scope is the reach of a permission for a role.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSelf
	ScopeAll
)

// ScopeOf returns how far role may exercise p.
func ScopeOf(role Role, p Permission) Scope {
	switch {
	case Can(role, p):
		return ScopeAll
	case permissions[role][p.self()]:
		return ScopeSelf
	default:
		return ScopeNone
	}
}

// =============================================================================
// USERS & PASSWORDS
// =============================================================================

// User is an account able to log in. TeacherID links teacher-role users to
// their own teacher record.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	TeacherID    string `json:"teacher_id,omitempty"`
}

// HashPassword hashes a password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password with a stored hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
