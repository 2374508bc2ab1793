package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/db"
)

// Store persists orders. Reads join the employee and menu item so every
// Order carries display names alongside its business ids.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const selectOrders = `SELECT o.id, e.employee_id, e.first_name, e.last_name, e.department,
	m.menu_id, m.name, m.category, o.quantity, o.price_at_order, o.total_price, o.order_time,
	o.expected_delivery_date, o.status, o.remarks, o.created_by, o.updated_at,
	o.employee_ref, o.menu_item_ref
	FROM orders o
	JOIN employees e ON e.id = o.employee_ref
	JOIN menu_items m ON m.id = o.menu_item_ref`

const orderBy = " ORDER BY o.order_time DESC, o.id DESC"

// insert writes a new order row through q and sets its id.
func (s *Store) insert(ctx context.Context, q db.Querier, o *Order) error {
	defer s.db.Track("insert_order")()

	res, err := q.ExecContext(ctx, `
		INSERT INTO orders (employee_ref, menu_item_ref, quantity, price_at_order, total_price,
			order_time, expected_delivery_date, status, remarks, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.EmployeeRef, o.MenuItemRef, o.Quantity, o.PriceAtOrder, o.TotalPrice,
		db.FormatTime(o.OrderTime), db.FormatDate(o.ExpectedDeliveryDate), o.Status, o.Remarks, o.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading order id: %w", err)
	}
	return nil
}

// setStatus moves order id from one status to another. The update only
// applies while the order is still in from, so a concurrent change makes it
// fail with ErrInvalidTransition instead of overwriting a terminal status.
func (s *Store) setStatus(ctx context.Context, q db.Querier, id int64, from, to Status, remarks string, at time.Time) error {
	defer s.db.Track("update_order_status")()

	res, err := q.ExecContext(ctx,
		"UPDATE orders SET status = ?, remarks = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, remarks, db.FormatTime(at), id, from)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking order update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// Get returns the order with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrders+" WHERE o.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	return o, nil
}

// ListByEmployee returns an employee's orders, newest first, optionally
// restricted to one status.
func (s *Store) ListByEmployee(ctx context.Context, employeeID string, status Status) ([]Order, error) {
	defer s.db.Track("list_employee_orders")()

	query := selectOrders + " WHERE e.employee_id = ?"
	args := []any{employeeID}
	if status != "" {
		query += " AND o.status = ?"
		args = append(args, status)
	}
	return s.query(ctx, query+orderBy, args...)
}

// List returns orders matching f, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Order, error) {
	defer s.db.Track("list_orders")()

	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		clauses = append(clauses, "o.status = ?")
		args = append(args, f.Status)
	}
	if !f.Start.IsZero() {
		clauses = append(clauses, "o.expected_delivery_date >= ?")
		args = append(args, db.FormatDate(f.Start))
	}
	if !f.End.IsZero() {
		clauses = append(clauses, "o.expected_delivery_date <= ?")
		args = append(args, db.FormatDate(f.End))
	}
	return s.query(ctx, where(selectOrders, clauses)+orderBy, args...)
}

// History returns delivered and cancelled orders matching f, newest first.
func (s *Store) History(ctx context.Context, f HistoryFilter) ([]Order, error) {
	defer s.db.Track("order_history")()

	clauses := []string{"o.status IN ('DELIVERED', 'CANCELLED')"}
	var args []any
	if !f.Start.IsZero() {
		clauses = append(clauses, "o.expected_delivery_date >= ?")
		args = append(args, db.FormatDate(f.Start))
	}
	if !f.End.IsZero() {
		clauses = append(clauses, "o.expected_delivery_date <= ?")
		args = append(args, db.FormatDate(f.End))
	}
	if f.Department != "" {
		clauses = append(clauses, "e.department = ?")
		args = append(args, f.Department)
	}
	if f.Category != "" {
		clauses = append(clauses, "m.category = ?")
		args = append(args, strings.ToLower(string(f.Category)))
	}
	return s.query(ctx, where(selectOrders, clauses)+orderBy, args...)
}

// Search finds orders by free text over remarks, item name, employee name
// and both business ids, or by exact field matches when Term is empty.
func (s *Store) Search(ctx context.Context, p SearchParams) ([]Order, error) {
	defer s.db.Track("search_orders")()

	if p.Term != "" {
		like := "%" + strings.ToLower(p.Term) + "%"
		return s.query(ctx, selectOrders+` WHERE LOWER(o.remarks) LIKE ? OR LOWER(m.name) LIKE ?
			OR LOWER(e.first_name || ' ' || e.last_name) LIKE ? OR LOWER(e.employee_id) LIKE ?
			OR LOWER(m.menu_id) LIKE ?`+orderBy, like, like, like, like, like)
	}

	var (
		clauses []string
		args    []any
	)
	if p.EmployeeID != "" {
		clauses = append(clauses, "e.employee_id = ?")
		args = append(args, p.EmployeeID)
	}
	if p.MenuID != "" {
		clauses = append(clauses, "m.menu_id = ?")
		args = append(args, p.MenuID)
	}
	if p.Status != "" {
		clauses = append(clauses, "o.status = ?")
		args = append(args, p.Status)
	}
	return s.query(ctx, where(selectOrders, clauses)+orderBy, args...)
}

func where(query string, clauses []string) string {
	if len(clauses) == 0 {
		return query
	}
	return query + " WHERE " + strings.Join(clauses, " AND ")
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(sc db.Scanner) (*Order, error) {
	var (
		o                   Order
		first, last         string
		orderTime, delivery string
		updatedAt           sql.NullString
	)
	err := sc.Scan(&o.ID, &o.EmployeeID, &first, &last, &o.Department,
		&o.MenuID, &o.ItemName, &o.Category, &o.Quantity, &o.PriceAtOrder, &o.TotalPrice, &orderTime,
		&delivery, &o.Status, &o.Remarks, &o.CreatedBy, &updatedAt,
		&o.EmployeeRef, &o.MenuItemRef)
	if err != nil {
		return nil, err
	}
	o.EmployeeName = strings.TrimSpace(first + " " + last)
	o.OrderTime = db.ParseTime(orderTime)
	o.ExpectedDeliveryDate = db.ParseDate(delivery)
	if updatedAt.Valid {
		o.UpdatedAt = db.ParseTime(updatedAt.String)
	}
	return &o, nil
}
