package employees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/db"
)

// Store provides CRUD operations for employees.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectEmployees = `SELECT id, employee_id, first_name, last_name, department, customer_type,
	mobile_number, email, is_active, is_admin, is_super_admin, created_at FROM employees`

// Create inserts e with the given password hash and fills in its id and
// creation time. The mobile number is normalized.
func (s *Store) Create(ctx context.Context, e *Employee, passwordHash string) error {
	defer s.db.Track("insert_employee")()

	if e.EmployeeID == "" {
		return errors.New("employee ID is required")
	}
	exists, err := s.exists(ctx, e.EmployeeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateEmployee
	}

	e.MobileNumber = NormalizeMobile(e.MobileNumber)
	e.CreatedAt = s.now().UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (employee_id, first_name, last_name, department, customer_type,
			mobile_number, email, password_hash, is_active, is_admin, is_super_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EmployeeID, e.FirstName, e.LastName, e.Department, e.CustomerType,
		e.MobileNumber, e.Email, passwordHash, e.IsActive, e.IsAdmin, e.IsSuperAdmin,
		db.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading employee id: %w", err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, employeeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employees WHERE employee_id = ?", employeeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking employee id: %w", err)
	}
	return n > 0, nil
}

// GetByID returns the employee with the given row id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Employee, error) {
	return s.getOne(ctx, selectEmployees+" WHERE id = ?", id)
}

// GetByEmployeeID returns the employee with the given business id.
func (s *Store) GetByEmployeeID(ctx context.Context, employeeID string) (*Employee, error) {
	defer s.db.Track("get_employee")()
	return s.getOne(ctx, selectEmployees+" WHERE employee_id = ?", employeeID)
}

// Principal returns the caller's current roles, refusing unknown and
// deactivated accounts.
func (s *Store) Principal(ctx context.Context, employeeID string) (auth.Principal, error) {
	e, err := s.GetByEmployeeID(ctx, employeeID)
	if errors.Is(err, ErrNotFound) {
		return auth.Principal{}, auth.ErrUnknownAccount
	}
	if err != nil {
		return auth.Principal{}, err
	}
	if !e.IsActive {
		return auth.Principal{}, auth.ErrInactiveAccount
	}
	return auth.Principal{EmployeeID: e.EmployeeID, Admin: e.IsAdmin, SuperAdmin: e.IsSuperAdmin}, nil
}

// GetByMobile looks an employee up by mobile number, with or without the
// country prefix.
func (s *Store) GetByMobile(ctx context.Context, mobile string) (*Employee, error) {
	raw := strings.TrimSpace(mobile)
	return s.getOne(ctx, selectEmployees+" WHERE mobile_number IN (?, ?) ORDER BY id LIMIT 1",
		NormalizeMobile(raw), raw)
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (*Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning employee: %w", err)
	}
	return e, nil
}

// PasswordHash returns the stored hash for employeeID.
func (s *Store) PasswordHash(ctx context.Context, employeeID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT password_hash FROM employees WHERE employee_id = ?", employeeID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying password hash: %w", err)
	}
	return hash, nil
}

// List returns employees matching filter, newest first. Super-admins are
// excluded unless IncludeSuperAdmins is set.
func (s *Store) List(ctx context.Context, filter Filter) ([]Employee, error) {
	defer s.db.Track("list_employees")()

	var (
		clauses []string
		args    []any
	)

	if !filter.IncludeSuperAdmins {
		clauses = append(clauses, "is_super_admin = 0")
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if filter.CustomerType != "" {
		clauses = append(clauses, "LOWER(customer_type) = LOWER(?)")
		args = append(args, filter.CustomerType)
	}
	if filter.Search != "" {
		clauses = append(clauses, `(LOWER(employee_id) LIKE ? OR LOWER(first_name) LIKE ?
			OR LOWER(last_name) LIKE ? OR LOWER(department) LIKE ? OR LOWER(customer_type) LIKE ?)`)
		like := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, like, like, like, like, like)
	}
	if c, a := s.rangeClause(filter); c != "" {
		clauses = append(clauses, c)
		args = append(args, a...)
	}

	query := selectEmployees
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	return s.query(ctx, query, args...)
}

// rangeClause converts a RangeType into a created_at condition. A custom
// range without both bounds matches everything.
func (s *Store) rangeClause(filter Filter) (string, []any) {
	now := s.now()
	var since time.Time
	switch RangeType(strings.ToLower(string(filter.RangeType))) {
	case RangeToday:
		y, m, d := now.Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		since = now.AddDate(0, 0, -7)
	case RangeMonth:
		since = now.AddDate(0, -1, 0)
	case RangeYear:
		since = now.AddDate(-1, 0, 0)
	case RangeCustom:
		if filter.Start.IsZero() || filter.End.IsZero() {
			return "", nil
		}
		return "created_at BETWEEN ? AND ?", []any{db.FormatTime(filter.Start), db.FormatTime(filter.End)}
	default:
		return "", nil
	}
	return "created_at > ?", []any{db.FormatTime(since)}
}

// ListCustomers returns active employees that are neither admins nor
// super-admins.
func (s *Store) ListCustomers(ctx context.Context) ([]Employee, error) {
	return s.query(ctx, selectEmployees+
		" WHERE is_admin = 0 AND is_super_admin = 0 AND is_active = 1 ORDER BY employee_id")
}

// WithTransactions returns the employees that have at least one transaction.
func (s *Store) WithTransactions(ctx context.Context) ([]IDName, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.employee_id, e.first_name, e.last_name
		FROM employees e JOIN transactions t ON t.employee_ref = e.id
		ORDER BY e.employee_id`)
	if err != nil {
		return nil, fmt.Errorf("querying employees with transactions: %w", err)
	}
	defer rows.Close()

	out := []IDName{}
	for rows.Next() {
		var id, first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		out = append(out, IDName{EmployeeID: id, FullName: first + " " + last})
	}
	return out, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying employees: %w", err)
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Update applies req to the employee with row id and returns the result.
// passwordHash replaces the stored hash when non-empty.
func (s *Store) Update(ctx context.Context, id int64, req UpdateRequest, passwordHash string) (*Employee, error) {
	defer s.db.Track("update_employee")()

	query := `UPDATE employees SET first_name = ?, last_name = ?, department = ?,
		mobile_number = ?, customer_type = ?, is_active = ?`
	args := []any{req.FirstName, req.LastName, req.Department,
		NormalizeMobile(req.MobileNumber), req.CustomerType, req.Active}
	if passwordHash != "" {
		query += ", password_hash = ?"
		args = append(args, passwordHash)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if err := s.execOne(ctx, query, args...); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetActive enables or disables the employee with row id.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) (*Employee, error) {
	if err := s.execOne(ctx, "UPDATE employees SET is_active = ? WHERE id = ?", active, id); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetAdmin grants or revokes admin rights.
func (s *Store) SetAdmin(ctx context.Context, employeeID string, admin bool) (*Employee, error) {
	if err := s.execOne(ctx, "UPDATE employees SET is_admin = ? WHERE employee_id = ?", admin, employeeID); err != nil {
		return nil, err
	}
	return s.GetByEmployeeID(ctx, employeeID)
}

// SetSuperAdmin grants or revokes super-admin rights.
func (s *Store) SetSuperAdmin(ctx context.Context, employeeID string, super bool) error {
	return s.execOne(ctx, "UPDATE employees SET is_super_admin = ? WHERE employee_id = ?", super, employeeID)
}

// UpdatePassword replaces the password hash of employeeID.
func (s *Store) UpdatePassword(ctx context.Context, employeeID, hash string) error {
	return s.execOne(ctx, "UPDATE employees SET password_hash = ? WHERE employee_id = ?", hash, employeeID)
}

// SetResetOTP stores a password reset code for the employee with the given
// mobile number.
func (s *Store) SetResetOTP(ctx context.Context, mobile, otp string, expiry time.Time) (*Employee, error) {
	e, err := s.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	err = s.execOne(ctx, "UPDATE employees SET reset_otp = ?, reset_otp_expiry = ? WHERE id = ?",
		otp, db.FormatTime(expiry), e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ResetPassword checks otp against the stored code and, when valid and not
// expired at now, stores newHash and clears the code.
func (s *Store) ResetPassword(ctx context.Context, mobile, otp, newHash string, now time.Time) (*Employee, error) {
	e, err := s.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}

	var stored, expiry sql.NullString
	err = s.db.QueryRowContext(ctx,
		"SELECT reset_otp, reset_otp_expiry FROM employees WHERE id = ?", e.ID).Scan(&stored, &expiry)
	if err != nil {
		return nil, fmt.Errorf("querying reset otp: %w", err)
	}
	if !stored.Valid || stored.String == "" || stored.String != otp {
		return nil, ErrInvalidOTP
	}
	if !expiry.Valid || now.After(db.ParseTime(expiry.String)) {
		return nil, ErrOTPExpired
	}

	err = s.execOne(ctx, `UPDATE employees SET password_hash = ?, reset_otp = NULL,
		reset_otp_expiry = NULL WHERE id = ?`, newHash, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating employee: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEmployee(sc db.Scanner) (*Employee, error) {
	var (
		e       Employee
		created string
	)
	err := sc.Scan(&e.ID, &e.EmployeeID, &e.FirstName, &e.LastName, &e.Department, &e.CustomerType,
		&e.MobileNumber, &e.Email, &e.IsActive, &e.IsAdmin, &e.IsSuperAdmin, &created)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = db.ParseTime(created)
	return &e, nil
}
