package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/db"
)

// Store persists menu items.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectItems = `SELECT id, menu_id, name, description, quantity, unit, price, start_date, end_date,
	category, available, created_at, created_by, updated_at, updated_by FROM menu_items`

// Create inserts one row per requested category and returns the first.
func (s *Store) Create(ctx context.Context, req CreateRequest, createdBy string) (*Item, error) {
	defer s.db.Track("insert_menu_item")()

	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if len(req.Categories) == 0 {
		return nil, ErrNoCategory
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, ErrInvalidWindow
	}
	categories := make([]Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		parsed, err := ParseCategory(string(c))
		if err != nil {
			return nil, err
		}
		categories = append(categories, parsed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().Truncate(time.Second)
	var first *Item
	for _, c := range categories {
		it := &Item{
			Name:            strings.TrimSpace(req.Name),
			Description:     req.Description,
			Quantity:        req.Quantity,
			Unit:            req.Unit,
			Price:           req.Price,
			StartDate:       req.StartDate.UTC().Truncate(time.Second),
			EndDate:         req.EndDate.UTC().Truncate(time.Second),
			Category:        c,
			AvailableStatus: req.AvailableStatus == nil || *req.AvailableStatus,
			CreatedAt:       now,
			CreatedBy:       createdBy,
		}
		if err := insertItem(ctx, tx, it, s.now()); err != nil {
			return nil, err
		}
		if first == nil {
			first = it
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing menu items: %w", err)
	}
	first.Active = first.IsActive(s.now())
	return first, nil
}

// insertItem assigns a unique menu id to it and writes the row.
func insertItem(ctx context.Context, tx *sql.Tx, it *Item, at time.Time) error {
	base := MenuIDFor(it.Name, at)
	it.MenuID = base
	for n := 2; ; n++ {
		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM menu_items WHERE menu_id = ?", it.MenuID).Scan(&count); err != nil {
			return fmt.Errorf("checking menu id: %w", err)
		}
		if count == 0 {
			break
		}
		it.MenuID = fmt.Sprintf("%s-%d", base, n)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO menu_items (menu_id, name, description, quantity, unit, price, start_date, end_date,
			category, available, created_at, created_by, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.MenuID, it.Name, it.Description, it.Quantity, it.Unit, it.Price,
		db.FormatTime(it.StartDate), db.FormatTime(it.EndDate), it.Category, it.AvailableStatus,
		db.FormatTime(it.CreatedAt), it.CreatedBy, db.NullTime(it.UpdatedAt), nullString(it.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("inserting menu item: %w", err)
	}
	it.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading menu item id: %w", err)
	}
	return nil
}

// Update edits the item with the given id. A changed price is never written
// over the old one: a new row is inserted in the same category, keeping the
// previous price on record for past orders. priceChanged reports which
// path was taken; the returned item is the row now carrying the price.
func (s *Store) Update(ctx context.Context, id int64, req UpdateRequest, updatedBy string) (it *Item, priceChanged bool, err error) {
	defer s.db.Track("update_menu_item")()

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, false, ErrInvalidWindow
	}

	now := s.now().UTC().Truncate(time.Second)
	available := existing.AvailableStatus
	if req.AvailableStatus != nil {
		available = *req.AvailableStatus
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = existing.Name
	}

	if req.Price != existing.Price {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, false, fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		next := &Item{
			Name:            name,
			Description:     req.Description,
			Quantity:        req.Quantity,
			Unit:            req.Unit,
			Price:           req.Price,
			StartDate:       req.StartDate.UTC().Truncate(time.Second),
			EndDate:         req.EndDate.UTC().Truncate(time.Second),
			Category:        existing.Category,
			AvailableStatus: available,
			CreatedAt:       now,
			CreatedBy:       existing.CreatedBy,
			UpdatedAt:       now,
			UpdatedBy:       updatedBy,
		}
		if err := insertItem(ctx, tx, next, s.now()); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing price change: %w", err)
		}
		next.Active = next.IsActive(s.now())
		return next, true, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE menu_items SET name = ?, description = ?, quantity = ?, unit = ?, start_date = ?,
			end_date = ?, available = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`,
		name, req.Description, req.Quantity, req.Unit,
		db.FormatTime(req.StartDate), db.FormatTime(req.EndDate), available,
		db.FormatTime(now), updatedBy, id,
	)
	if err != nil {
		return nil, false, fmt.Errorf("updating menu item: %w", err)
	}
	it, err = s.Get(ctx, id)
	return it, false, err
}

// Get returns the item with the given row id.
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) {
	return s.getOne(ctx, selectItems+" WHERE id = ?", id)
}

// GetByMenuID returns the item with the given public id.
func (s *Store) GetByMenuID(ctx context.Context, menuID string) (*Item, error) {
	defer s.db.Track("get_menu_item")()
	return s.getOne(ctx, selectItems+" WHERE menu_id = ?", menuID)
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (*Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning menu item: %w", err)
	}
	it.Active = it.IsActive(s.now())
	return it, nil
}

// List returns every item ordered by name.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	defer s.db.Track("list_menu_items")()
	return s.query(ctx, selectItems+" ORDER BY name, id")
}

// Active returns the items whose validity window overlaps the calendar day
// of at, optionally restricted to one category.
func (s *Store) Active(ctx context.Context, at time.Time, category Category) ([]Item, error) {
	defer s.db.Track("active_menu_items")()

	y, m, d := at.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, at.Location())
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	query := selectItems + " WHERE start_date <= ? AND end_date >= ?"
	args := []any{db.FormatTime(dayEnd), db.FormatTime(dayStart)}
	if category != "" {
		query += " AND LOWER(category) = LOWER(?)"
		args = append(args, category)
	}
	return s.query(ctx, query+" ORDER BY name, id", args...)
}

// Filter returns items matching f ordered by name. ActiveOnly keeps items
// that are available and inside their window right now.
func (s *Store) Filter(ctx context.Context, f Filter) ([]Item, error) {
	defer s.db.Track("filter_menu_items")()

	var (
		clauses []string
		args    []any
	)
	if f.Name != "" {
		clauses = append(clauses, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Name)+"%")
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, Category(strings.ToLower(string(f.Category))))
	}
	if !f.Start.IsZero() {
		clauses = append(clauses, "start_date >= ?")
		args = append(args, db.FormatTime(f.Start))
	}
	if !f.End.IsZero() {
		clauses = append(clauses, "end_date <= ?")
		args = append(args, db.FormatTime(f.End))
	}
	if f.ActiveOnly {
		now := db.FormatTime(s.now())
		clauses = append(clauses, "available = 1 AND start_date <= ? AND end_date >= ?")
		args = append(args, now, now)
	}

	query := selectItems
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return s.query(ctx, query+" ORDER BY name, id", args...)
}

// PriceHistory returns every row named name, newest first, each carrying
// the full set of categories the item is offered in.
func (s *Store) PriceHistory(ctx context.Context, name string, category Category) ([]PriceVersion, error) {
	defer s.db.Track("menu_price_history")()

	query := selectItems + " WHERE LOWER(name) = LOWER(?)"
	args := []any{name}
	if category != "" {
		query += " AND category = ?"
		args = append(args, Category(strings.ToLower(string(category))))
	}
	items, err := s.query(ctx, query+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM menu_items WHERE LOWER(name) = LOWER(?) ORDER BY category", name)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()
	var all []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history := make([]PriceVersion, len(items))
	for i, it := range items {
		history[i] = PriceVersion{Item: it, AllCategories: all}
	}
	return history, nil
}

// SetAvailability toggles whether the item can be ordered.
func (s *Store) SetAvailability(ctx context.Context, id int64, available bool, updatedBy string) (*Item, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE menu_items SET available = ?, updated_at = ?, updated_by = ? WHERE id = ?",
		available, db.FormatTime(s.now()), updatedBy, id)
	if err != nil {
		return nil, fmt.Errorf("updating availability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes an item and its weekly menu slots. Items that were ever
// ordered are kept (ErrInUse) so order history stays intact.
func (s *Store) Delete(ctx context.Context, id int64) (*Item, error) {
	defer s.db.Track("delete_menu_item")()

	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var orders int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE menu_item_ref = ?", id).Scan(&orders); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}
	if orders > 0 {
		return nil, ErrInUse
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM menu_items WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("deleting menu item: %w", err)
	}
	return it, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	now := s.now()
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning menu item: %w", err)
		}
		it.Active = it.IsActive(now)
		items = append(items, *it)
	}
	return items, rows.Err()
}

func scanItem(sc db.Scanner) (*Item, error) {
	var (
		it                   Item
		start, end, created  string
		updatedAt, updatedBy sql.NullString
	)
	err := sc.Scan(&it.ID, &it.MenuID, &it.Name, &it.Description, &it.Quantity, &it.Unit, &it.Price,
		&start, &end, &it.Category, &it.AvailableStatus, &created, &it.CreatedBy, &updatedAt, &updatedBy)
	if err != nil {
		return nil, err
	}
	it.StartDate = db.ParseTime(start)
	it.EndDate = db.ParseTime(end)
	it.CreatedAt = db.ParseTime(created)
	if updatedAt.Valid {
		it.UpdatedAt = db.ParseTime(updatedAt.String)
	}
	it.UpdatedBy = updatedBy.String
	return &it, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
