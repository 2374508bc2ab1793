package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/canteen/internal/db"
)

// Store persists transactions.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectTransactions = `SELECT t.id, t.transaction_id, t.order_ref, e.employee_id, e.first_name, e.last_name,
	m.menu_id, m.name, m.category, t.quantity, t.unit_price, t.total_price, t.status, t.remarks, t.responses,
	t.created_at, t.created_by, t.updated_at, t.updated_by
	FROM transactions t
	JOIN employees e ON e.id = t.employee_ref
	JOIN menu_items m ON m.id = t.menu_item_ref`

const orderBy = ` ORDER BY t.created_at DESC, t.id DESC`

// NewTransactionID returns a fresh business id.
func NewTransactionID() string {
	return "TXN-" + uuid.NewString()
}

// CreateForOrder records a transaction copied from order orderID. It
// reports false without error when the order already has one.
func (s *Store) CreateForOrder(ctx context.Context, orderID int64, status Status, by string) (bool, error) {
	return s.CreateForOrderTx(ctx, s.db, orderID, status, by)
}

// CreateForOrderTx is CreateForOrder run through q, so the insert can share
// a transaction with the order update that triggered it.
func (s *Store) CreateForOrderTx(ctx context.Context, q db.Querier, orderID int64, status Status, by string) (bool, error) {
	defer s.db.Track("insert_transaction")()

	var (
		employeeRef, itemRef int64
		qty                  int
		unit, total          float64
	)
	err := q.QueryRowContext(ctx, `
		SELECT employee_ref, menu_item_ref, quantity, price_at_order, total_price FROM orders WHERE id = ?`,
		orderID).Scan(&employeeRef, &itemRef, &qty, &unit, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrOrderNotFound
	}
	if err != nil {
		return false, fmt.Errorf("loading order %d: %w", orderID, err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, order_ref, employee_ref, menu_item_ref, quantity,
			unit_price, total_price, status, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_ref) DO NOTHING`,
		NewTransactionID(), orderID, employeeRef, itemRef, qty, unit, total, status,
		db.FormatTime(s.now()), by,
	)
	if err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking transaction insert: %w", err)
	}
	return n > 0, nil
}

// CreateForOrders backfills transactions for every order in orderStatus
// that has none yet, and returns how many were created.
func (s *Store) CreateForOrders(ctx context.Context, orderStatus string, status Status, by string) (int, error) {
	defer s.db.Track("backfill_transactions")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT o.id, o.employee_ref, o.menu_item_ref, o.quantity, o.price_at_order, o.total_price
		FROM orders o LEFT JOIN transactions t ON t.order_ref = o.id
		WHERE o.status = ? AND t.id IS NULL
		ORDER BY o.id`, orderStatus)
	if err != nil {
		return 0, fmt.Errorf("querying orders without transactions: %w", err)
	}
	type pending struct {
		order, employee, item int64
		qty                   int
		unit, total           float64
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.order, &p.employee, &p.item, &p.qty, &p.unit, &p.total); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning order: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	now := db.FormatTime(s.now())
	for _, p := range todo {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, order_ref, employee_ref, menu_item_ref, quantity,
				unit_price, total_price, status, created_at, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			NewTransactionID(), p.order, p.employee, p.item, p.qty, p.unit, p.total, status, now, by,
		); err != nil {
			return 0, fmt.Errorf("inserting transaction for order %d: %w", p.order, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transactions: %w", err)
	}
	return len(todo), nil
}

// Get returns the transaction with row id.
func (s *Store) Get(ctx context.Context, id int64) (*Transaction, error) {
	defer s.db.Track("get_transaction")()

	t, err := scanTransaction(s.db.QueryRowContext(ctx, selectTransactions+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transaction: %w", err)
	}
	return t, nil
}

// GetByOrder returns the transaction recorded for order orderID.
func (s *Store) GetByOrder(ctx context.Context, orderID int64) (*Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx, selectTransactions+` WHERE t.order_ref = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transaction: %w", err)
	}
	return t, nil
}

// List returns transactions matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Transaction, error) {
	defer s.db.Track("list_transactions")()

	var (
		clauses []string
		args    []any
	)
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		clauses = append(clauses, `(LOWER(t.transaction_id) LIKE ? OR LOWER(e.employee_id) LIKE ?
			OR LOWER(e.first_name || ' ' || e.last_name) LIKE ? OR LOWER(m.name) LIKE ? OR LOWER(m.menu_id) LIKE ?)`)
		args = append(args, like, like, like, like, like)
	}
	if f.EmployeeID != "" {
		clauses = append(clauses, "e.employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "t.status = ?")
		args = append(args, f.Status)
	}
	c, a := monthClause(f.Month, f.Year)
	clauses = append(clauses, c...)
	args = append(args, a...)
	return s.query(ctx, where(selectTransactions, clauses)+orderBy, args...)
}

// ByMenu returns every transaction for menu id menuID.
func (s *Store) ByMenu(ctx context.Context, menuID string) ([]Transaction, error) {
	list, err := s.query(ctx, selectTransactions+` WHERE m.menu_id = ?`+orderBy, menuID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w for menu %s", ErrNotFound, menuID)
	}
	return list, nil
}

// ByEmployee returns every transaction of employeeID.
func (s *Store) ByEmployee(ctx context.Context, employeeID string) ([]Transaction, error) {
	list, err := s.query(ctx, selectTransactions+` WHERE e.employee_id = ?`+orderBy, employeeID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w for employee %s", ErrNotFound, employeeID)
	}
	return list, nil
}

// Billable returns all transactions of employeeID created in the given
// month, whatever their status.
func (s *Store) Billable(ctx context.Context, employeeID string, month, year int) ([]Transaction, error) {
	defer s.db.Track("billable_transactions")()

	clauses, args := monthClause(month, year)
	clauses = append([]string{"e.employee_id = ?"}, clauses...)
	args = append([]any{employeeID}, args...)
	return s.query(ctx, where(selectTransactions, clauses)+` ORDER BY t.created_at, t.id`, args...)
}

// CountByStatus tallies all transactions per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	defer s.db.Track("count_transactions")()

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM transactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		out[st] = 0
	}
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

// AppendRemark adds line to the remarks thread and marks the transaction
// MODIFIED.
func (s *Store) AppendRemark(ctx context.Context, id int64, line, by string) error {
	defer s.db.Track("append_remark")()
	return s.execOne(ctx, `UPDATE transactions SET
		remarks = CASE WHEN remarks = '' THEN ? ELSE remarks || char(10) || ? END,
		status = 'MODIFIED', updated_at = ?, updated_by = ? WHERE id = ?`,
		line, line, db.FormatTime(s.now()), by, id)
}

// AppendResponse adds line to the responses thread.
func (s *Store) AppendResponse(ctx context.Context, id int64, line, by string) error {
	defer s.db.Track("append_response")()
	return s.execOne(ctx, `UPDATE transactions SET
		responses = CASE WHEN responses = '' THEN ? ELSE responses || char(10) || ? END,
		updated_at = ?, updated_by = ? WHERE id = ?`,
		line, line, db.FormatTime(s.now()), by, id)
}

// SetStatus overwrites the status of one transaction.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status, by string) error {
	defer s.db.Track("update_transaction_status")()
	return s.execOne(ctx, `UPDATE transactions SET status = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		status, db.FormatTime(s.now()), by, id)
}

// MoveStatus switches every transaction of employeeID in the month whose
// status is one of from to status to, and returns how many changed.
func (s *Store) MoveStatus(ctx context.Context, employeeID string, month, year int, from []Status, to Status, by string) (int, error) {
	defer s.db.Track("move_transaction_status")()

	if len(from) == 0 {
		return 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	clauses := []string{"e.employee_id = ?", "t.status IN (" + marks + ")"}
	args := []any{employeeID}
	for _, st := range from {
		args = append(args, st)
	}
	c, a := monthClause(month, year)
	clauses = append(clauses, c...)
	args = append(args, a...)

	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET status = ?, updated_at = ?, updated_by = ?
		WHERE id IN (SELECT t.id FROM transactions t JOIN employees e ON e.id = t.employee_ref
		WHERE `+strings.Join(clauses, " AND ")+`)`,
		append([]any{to, db.FormatTime(s.now()), by}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("updating transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking status update: %w", err)
	}
	return int(n), nil
}

// monthClause restricts t.created_at to a local calendar month. A month
// without a year matches that month in every year.
func monthClause(month, year int) ([]string, []any) {
	switch {
	case year != 0:
		start, end := db.MonthRange(month, year)
		return []string{"t.created_at >= ?", "t.created_at < ?"}, []any{start, end}
	case month != 0:
		return []string{"CAST(strftime('%m', t.created_at, 'localtime') AS INTEGER) = ?"}, []any{month}
	}
	return nil, nil
}

func where(query string, clauses []string) string {
	if len(clauses) == 0 {
		return query
	}
	return query + " WHERE " + strings.Join(clauses, " AND ")
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTransaction(sc db.Scanner) (*Transaction, error) {
	var (
		t                    Transaction
		first, last          string
		createdAt            string
		updatedAt, updatedBy sql.NullString
	)
	err := sc.Scan(&t.ID, &t.TransactionID, &t.OrderID, &t.EmployeeID, &first, &last,
		&t.MenuID, &t.MenuItemName, &t.Category, &t.Quantity, &t.UnitPrice, &t.TotalPrice, &t.Status,
		&t.Remarks, &t.Responses, &createdAt, &t.CreatedBy, &updatedAt, &updatedBy)
	if err != nil {
		return nil, err
	}
	t.EmployeeName = first + " " + last
	t.CreatedAt = db.ParseTime(createdAt)
	if updatedAt.Valid {
		t.UpdatedAt = db.ParseTime(updatedAt.String)
	}
	t.UpdatedBy = updatedBy.String
	return &t, nil
}
