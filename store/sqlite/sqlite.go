/*
Package sqlite provides a SQLite-backed implementation of the attendance read
contracts together with the writes that feed them.

PURPOSE:
  Owns the persisted state: teachers, raw attendance marks, holidays, user
  accounts and closed payroll runs. The engine packages only read through
  attendance.Sources; every write goes through this store.

KEY TABLES:
  teachers:     roster with base salary (decimal text)
  attendance:   one row per (teacher_id, date); upsert, last write wins
  holidays:     at most one row per date
  users:        login accounts
  payroll_runs: closed months, results stored as JSON

DATES:
  Calendar dates are stored as YYYY-MM-DD text so range filters compare
  lexicographically. Timestamps are RFC3339 UTC.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The UNIQUE(teacher_id, date)
  constraint plus ON CONFLICT upserts give last-write-wins marking.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewService(store)

SEE ALSO:
  - attendance/source.go: the read contracts
  - store/memory/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/calendar"
)

// ErrPayrollRunNotFound is returned when no run exists for a month.
var ErrPayrollRunNotFound = errors.New("payroll run not found")

// Store implements attendance.Sources and the CRUD writes using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ attendance.Sources = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		designation TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL,
		join_date TEXT,
		contact TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_teachers_name ON teachers(name);

	-- Raw marks. No row means unmarked.
	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late')),
		marked_at TEXT NOT NULL,
		UNIQUE(teacher_id, date)
	);

	-- Month and report loads filter on date only (hot path)
	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		teacher_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		teachers INTEGER NOT NULL,
		total_computed INTEGER NOT NULL,
		total_deductions INTEGER NOT NULL,
		total_net INTEGER NOT NULL,
		results_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(year, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TEACHERS
// =============================================================================

// SaveTeacher inserts or updates a teacher.
func (s *Store) SaveTeacher(ctx context.Context, t attendance.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO teachers (id, name, designation, base_salary, join_date, contact, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			designation = excluded.designation,
			base_salary = excluded.base_salary,
			join_date = excluded.join_date,
			contact = excluded.contact,
			updated_at = excluded.updated_at
	`

	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx, query,
		string(t.ID), t.Name, t.Designation, t.BaseSalary.String(),
		nullDate(t.JoinDate), t.Contact, now, now,
	)
	if err != nil {
		return fmt.Errorf("save teacher %s: %w", t.ID, err)
	}
	return nil
}

// GetTeacher returns a teacher or attendance.ErrTeacherNotFound.
func (s *Store) GetTeacher(ctx context.Context, id attendance.TeacherID) (attendance.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, designation, base_salary, join_date, contact FROM teachers WHERE id = ?",
		string(id),
	)
	t, err := scanTeacher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Teacher{}, fmt.Errorf("%w: %s", attendance.ErrTeacherNotFound, id)
	}
	if err != nil {
		return attendance.Teacher{}, fmt.Errorf("get teacher %s: %w", id, err)
	}
	return t, nil
}

// Teachers returns all teachers ordered by name.
func (s *Store) Teachers(ctx context.Context) ([]attendance.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, designation, base_salary, join_date, contact FROM teachers ORDER BY name, id",
	)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []attendance.Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// DeleteTeacher removes a teacher. Their attendance goes with them.
func (s *Store) DeleteTeacher(ctx context.Context, id attendance.TeacherID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("delete teacher %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", attendance.ErrTeacherNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeacher(row scanner) (attendance.Teacher, error) {
	var t attendance.Teacher
	var id string
	var joinDate sql.NullString
	if err := row.Scan(&id, &t.Name, &t.Designation, &t.BaseSalary, &joinDate, &t.Contact); err != nil {
		return attendance.Teacher{}, err
	}
	t.ID = attendance.TeacherID(id)
	if joinDate.Valid {
		d, err := calendar.ParseDate(joinDate.String)
		if err != nil {
			return attendance.Teacher{}, fmt.Errorf("teacher %s join_date: %w", id, err)
		}
		t.JoinDate = d
	}
	return t, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// MarkAttendance upserts a raw mark keyed by (teacher, date). Last write
// wins. Reports whether a new row was created.
func (s *Store) MarkAttendance(ctx context.Context, r attendance.RawRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, found, err := currentStatus(ctx, tx, r.TeacherID, r.Date)
		if err != nil {
			return err
		}
		created = !found
		return upsertMark(ctx, tx, r)
	})
	return created, err
}

// MarkBatch upserts every record in one transaction. If any record fails,
// for example on an unknown teacher, nothing is written.
func (s *Store) MarkBatch(ctx context.Context, records []attendance.RawRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := upsertMark(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// ToggleAttendance advances the mark through absent -> present -> late ->
// absent. An unmarked day becomes present.
func (s *Store) ToggleAttendance(ctx context.Context, teacher attendance.TeacherID, d calendar.Date) (attendance.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := attendance.StatusPresent
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, found, err := currentStatus(ctx, tx, teacher, d)
		if err != nil {
			return err
		}
		if found {
			next = cur.Next()
		}
		return upsertMark(ctx, tx, attendance.RawRecord{TeacherID: teacher, Date: d, Status: next})
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// MarkAll sets the same status for every teacher on d and returns how many
// teachers were marked.
func (s *Store) MarkAll(ctx context.Context, d calendar.Date, st attendance.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// WHERE true disambiguates the upsert from a join constraint.
	query := `
		INSERT INTO attendance (teacher_id, date, status, marked_at)
		SELECT id, ?, ?, ? FROM teachers WHERE true
		ON CONFLICT(teacher_id, date) DO UPDATE SET
			status = excluded.status,
			marked_at = excluded.marked_at
	`
	res, err := s.db.ExecContext(ctx, query, d.String(), string(st), timestamp(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("mark all %s: %w", d, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ClearAttendance deletes the mark, returning the day to unmarked.
func (s *Store) ClearAttendance(ctx context.Context, teacher attendance.TeacherID, d calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM attendance WHERE teacher_id = ? AND date = ?",
		string(teacher), d.String(),
	)
	if err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	return nil
}

// RawAttendance returns marks matching the filter ordered by date, teacher.
func (s *Store) RawAttendance(ctx context.Context, f attendance.RecordFilter) ([]attendance.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.TeacherID != nil {
		where = append(where, "teacher_id = ?")
		args = append(args, string(*f.TeacherID))
	}
	if f.Period != nil {
		where = append(where, "date BETWEEN ? AND ?")
		args = append(args, f.Period.Start.String(), f.Period.End.String())
	}

	query := "SELECT teacher_id, date, status, marked_at FROM attendance"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, teacher_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.RawRecord
	for rows.Next() {
		var teacherID, date, status, markedAt string
		if err := rows.Scan(&teacherID, &date, &status, &markedAt); err != nil {
			return nil, err
		}
		d, err := calendar.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("attendance %s/%s: %w", teacherID, date, err)
		}
		r := attendance.RawRecord{
			TeacherID: attendance.TeacherID(teacherID),
			Date:      d,
			Status:    attendance.Status(status),
		}
		r.MarkedAt, _ = time.Parse(time.RFC3339, markedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func currentStatus(ctx context.Context, tx *sql.Tx, teacher attendance.TeacherID, d calendar.Date) (attendance.Status, bool, error) {
	var status string
	err := tx.QueryRowContext(ctx,
		"SELECT status FROM attendance WHERE teacher_id = ? AND date = ?",
		string(teacher), d.String(),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read attendance: %w", err)
	}
	return attendance.Status(status), true, nil
}

func upsertMark(ctx context.Context, tx *sql.Tx, r attendance.RawRecord) error {
	markedAt := r.MarkedAt
	if markedAt.IsZero() {
		markedAt = time.Now()
	}

	query := `
		INSERT INTO attendance (teacher_id, date, status, marked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(teacher_id, date) DO UPDATE SET
			status = excluded.status,
			marked_at = excluded.marked_at
	`
	_, err := tx.ExecContext(ctx, query, string(r.TeacherID), r.Date.String(), string(r.Status), timestamp(markedAt))
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: %s", attendance.ErrTeacherNotFound, r.TeacherID)
	}
	if err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday inserts or updates a holiday. A different holiday already on
// the same date is replaced.
func (s *Store) SaveHoliday(ctx context.Context, h calendar.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM holidays WHERE date = ? AND id != ?", h.Date.String(), h.ID,
		); err != nil {
			return fmt.Errorf("save holiday: %w", err)
		}

		query := `
			INSERT INTO holidays (id, date, name, type)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				name = excluded.name,
				type = excluded.type
		`
		if _, err := tx.ExecContext(ctx, query, h.ID, h.Date.String(), h.Name, string(h.Type)); err != nil {
			return fmt.Errorf("save holiday: %w", err)
		}
		return nil
	})
}

// DeleteHoliday removes a holiday and returns it so callers know which
// month changed.
func (s *Store) DeleteHoliday(ctx context.Context, id string) (calendar.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var h calendar.Holiday
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		h, err = scanHoliday(tx.QueryRowContext(ctx, "SELECT id, date, name, type FROM holidays WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", attendance.ErrHolidayNotFound, id)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
		return err
	})
	return h, err
}

// Holidays returns holidays within p (all when p is nil) ordered by date.
func (s *Store) Holidays(ctx context.Context, p *calendar.Period) ([]calendar.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, date, name, type FROM holidays"
	var args []any
	if p != nil {
		query += " WHERE date BETWEEN ? AND ?"
		args = append(args, p.Start.String(), p.End.String())
	}
	query += " ORDER BY date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func scanHoliday(row scanner) (calendar.Holiday, error) {
	var h calendar.Holiday
	var date, typ string
	if err := row.Scan(&h.ID, &date, &h.Name, &typ); err != nil {
		return calendar.Holiday{}, err
	}
	d, err := calendar.ParseDate(date)
	if err != nil {
		return calendar.Holiday{}, fmt.Errorf("holiday %s: %w", h.ID, err)
	}
	h.Date = d
	h.Type = calendar.HolidayType(typ)
	return h, nil
}

// =============================================================================
// USERS
// =============================================================================

// SaveUser inserts or updates an account. A username taken by another
// account returns attendance.ErrDuplicate.
func (s *Store) SaveUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, username, password_hash, role, teacher_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			password_hash = excluded.password_hash,
			role = excluded.role,
			teacher_id = excluded.teacher_id
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, string(u.Role), nullString(u.TeacherID), timestamp(time.Now()),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: username %q", attendance.ErrDuplicate, u.Username)
	}
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetUserByUsername returns an account or auth.ErrUserNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	return s.getUser(ctx, "username", username)
}

// GetUser returns an account by ID or auth.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) getUser(ctx context.Context, column, value string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, teacher_id FROM users WHERE "+column+" = ?",
		value,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, password_hash, role, teacher_id FROM users ORDER BY username",
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

func scanUser(row scanner) (auth.User, error) {
	var u auth.User
	var role string
	var teacherID sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &teacherID); err != nil {
		return auth.User{}, err
	}
	u.Role = auth.Role(role)
	u.TeacherID = teacherID.String
	return u, nil
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

// PayrollRun is a closed month. ResultsJSON holds the per-teacher results
// as computed when the month was closed.
type PayrollRun struct {
	ID              string
	Year            int
	Month           time.Month
	Teachers        int
	TotalComputed   int64
	TotalDeductions int64
	TotalNet        int64
	ResultsJSON     string
	CreatedAt       time.Time
}

// SavePayrollRun stores a run, replacing any earlier run for the month.
func (s *Store) SavePayrollRun(ctx context.Context, r PayrollRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_runs (id, year, month, teachers, total_computed, total_deductions,
			total_net, results_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			id = excluded.id,
			teachers = excluded.teachers,
			total_computed = excluded.total_computed,
			total_deductions = excluded.total_deductions,
			total_net = excluded.total_net,
			results_json = excluded.results_json,
			created_at = excluded.created_at
	`
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Year, int(r.Month), r.Teachers,
		r.TotalComputed, r.TotalDeductions, r.TotalNet,
		r.ResultsJSON, timestamp(createdAt),
	)
	if err != nil {
		return fmt.Errorf("save payroll run %04d-%02d: %w", r.Year, int(r.Month), err)
	}
	return nil
}

// GetPayrollRun returns the run for a month or ErrPayrollRunNotFound.
func (s *Store) GetPayrollRun(ctx context.Context, year int, month time.Month) (PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRun(s.db.QueryRowContext(ctx,
		payrollRunColumns+" WHERE year = ? AND month = ?", year, int(month),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return PayrollRun{}, fmt.Errorf("%w: %04d-%02d", ErrPayrollRunNotFound, year, int(month))
	}
	if err != nil {
		return PayrollRun{}, fmt.Errorf("get payroll run: %w", err)
	}
	return r, nil
}

// ListPayrollRuns returns all runs, newest month first.
func (s *Store) ListPayrollRuns(ctx context.Context) ([]PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, payrollRunColumns+" ORDER BY year DESC, month DESC")
	if err != nil {
		return nil, fmt.Errorf("list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []PayrollRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeletePayrollRun removes the run for a month, reporting whether one existed.
func (s *Store) DeletePayrollRun(ctx context.Context, year int, month time.Month) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM payroll_runs WHERE year = ? AND month = ?", year, int(month))
	if err != nil {
		return false, fmt.Errorf("delete payroll run: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const payrollRunColumns = `
	SELECT id, year, month, teachers, total_computed, total_deductions, total_net,
		results_json, created_at
	FROM payroll_runs`

func scanRun(row scanner) (PayrollRun, error) {
	var r PayrollRun
	var month int
	var createdAt string
	if err := row.Scan(&r.ID, &r.Year, &month, &r.Teachers,
		&r.TotalComputed, &r.TotalDeductions, &r.TotalNet,
		&r.ResultsJSON, &createdAt,
	); err != nil {
		return PayrollRun{}, err
	}
	r.Month = time.Month(month)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all domain data (for demo scenarios). Users are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"attendance", "holidays", "payroll_runs", "teachers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d calendar.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
