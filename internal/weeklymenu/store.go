package weeklymenu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/menu"
)

// Store persists weekly menu entries. Menu items are resolved through the
// menu store.
type Store struct {
	db    *db.DB
	items *menu.Store
	now   func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB, items *menu.Store) *Store {
	return &Store{db: database, items: items, now: time.Now}
}

const selectEntries = `SELECT id, week_start_date, week_end_date, day_of_week, meal_category,
	menu_item_id, created_at, created_by FROM weekly_menus`

// Create schedules a menu item, looked up by its public id.
func (s *Store) Create(ctx context.Context, req CreateRequest, createdBy string) (*Entry, error) {
	defer s.db.Track("insert_weekly_menu")()

	day, err := ParseDay(string(req.DayOfWeek))
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByMenuID(ctx, req.MenuID)
	if errors.Is(err, menu.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, req.MenuID)
	}
	if err != nil {
		return nil, err
	}

	e := &Entry{
		WeekStartDate: req.WeekStartDate.UTC().Truncate(time.Second),
		WeekEndDate:   req.WeekEndDate.UTC().Truncate(time.Second),
		DayOfWeek:     day,
		MealCategory:  req.MealCategory,
		MenuItem:      item,
		CreatedAt:     s.now().UTC().Truncate(time.Second),
		CreatedBy:     createdBy,
	}
	if err := s.insert(ctx, s.db.DB, e); err != nil {
		return nil, err
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, e *Entry) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO weekly_menus (week_start_date, week_end_date, day_of_week, meal_category,
			menu_item_id, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		db.FormatTime(e.WeekStartDate), db.FormatTime(e.WeekEndDate), e.DayOfWeek, e.MealCategory,
		e.MenuItem.ID, db.FormatTime(e.CreatedAt), e.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting weekly menu entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading weekly menu id: %w", err)
	}
	return nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM weekly_menus WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting weekly menu entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ForDay returns the entries for day in the week containing date. An empty
// category matches every meal.
func (s *Store) ForDay(ctx context.Context, date time.Time, day DayOfWeek, category string) ([]Entry, error) {
	defer s.db.Track("weekly_menu_for_day")()

	at := db.FormatTime(date)
	query := selectEntries + " WHERE week_start_date <= ? AND week_end_date >= ? AND day_of_week = ?"
	args := []any{at, at, day}
	if category != "" {
		query += " AND LOWER(meal_category) = LOWER(?)"
		args = append(args, category)
	}
	return s.query(ctx, query+" ORDER BY meal_category, id", args...)
}

// Between returns entries of every week overlapping [start, end].
func (s *Store) Between(ctx context.Context, start, end time.Time) ([]Entry, error) {
	defer s.db.Track("weekly_menu_between")()
	return s.query(ctx, selectEntries+" WHERE week_start_date <= ? AND week_end_date >= ? ORDER BY week_start_date, id",
		db.FormatTime(end), db.FormatTime(start))
}

// CopyPreviousWeek duplicates the entries of the week starting seven days
// before currentWeekStart into the current week and returns how many were
// copied. Nothing is copied when that week starts after today or is empty.
func (s *Store) CopyPreviousWeek(ctx context.Context, currentWeekStart time.Time, user string, today time.Time) (int, error) {
	y, m, d := currentWeekStart.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, currentWeekStart.Location())
	prevStart := start.AddDate(0, 0, -7)

	ty, tm, td := today.Date()
	if prevStart.After(time.Date(ty, tm, td, 0, 0, 0, 0, today.Location())) {
		return 0, nil
	}

	prevEnd := prevStart.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute)
	previous, err := s.Between(ctx, prevStart, prevEnd)
	if err != nil {
		return 0, err
	}
	if len(previous) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().Truncate(time.Second)
	for _, prev := range previous {
		e := &Entry{
			WeekStartDate: start.UTC(),
			WeekEndDate:   start.AddDate(0, 0, 6).UTC(),
			DayOfWeek:     prev.DayOfWeek,
			MealCategory:  prev.MealCategory,
			MenuItem:      prev.MenuItem,
			CreatedAt:     now,
			CreatedBy:     user,
		}
		if err := s.insert(ctx, tx, e); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing copied week: %w", err)
	}
	return len(previous), nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying weekly menus: %w", err)
	}

	type row struct {
		Entry
		itemID int64
	}
	var scanned []row
	for rows.Next() {
		var (
			r                   row
			start, end, created string
		)
		if err := rows.Scan(&r.ID, &start, &end, &r.DayOfWeek, &r.MealCategory,
			&r.itemID, &created, &r.CreatedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning weekly menu: %w", err)
		}
		r.WeekStartDate = db.ParseTime(start)
		r.WeekEndDate = db.ParseTime(end)
		r.CreatedAt = db.ParseTime(created)
		scanned = append(scanned, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Resolve items after the cursor is closed; the test pool has a
	// single connection.
	cache := make(map[int64]*menu.Item)
	entries := make([]Entry, len(scanned))
	for i, r := range scanned {
		item, ok := cache[r.itemID]
		if !ok {
			item, err = s.items.Get(ctx, r.itemID)
			if err != nil {
				return nil, fmt.Errorf("loading menu item %d: %w", r.itemID, err)
			}
			cache[r.itemID] = item
		}
		r.MenuItem = item
		entries[i] = r.Entry
	}
	return entries, nil
}
