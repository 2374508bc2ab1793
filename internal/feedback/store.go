package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/db"
)

// Store persists suggestions and complaints.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectEntries = `SELECT id, type, title, content, sender_id, sender_name, status, response, created_at,
	response_at FROM feedback`

// Create inserts e as PENDING and fills in its id and creation time.
func (s *Store) Create(ctx context.Context, e *Entry) error {
	defer s.db.Track("insert_feedback")()

	e.Status = StatusPending
	e.CreatedAt = s.now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (type, title, content, sender_id, sender_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Type, e.Title, e.Content, e.SenderID, e.SenderName, e.Status, db.FormatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	return e, nil
}

// List returns entries matching the optional type and status, newest first.
func (s *Store) List(ctx context.Context, t Type, st Status) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if t != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, t)
	}
	if st != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, st)
	}
	query := selectEntries
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return s.query(ctx, query+" ORDER BY created_at DESC, id DESC", args...)
}

// ListBySender returns what employeeID raised, newest first.
func (s *Store) ListBySender(ctx context.Context, employeeID string) ([]Entry, error) {
	return s.query(ctx, selectEntries+` WHERE sender_id = ? ORDER BY created_at DESC, id DESC`, employeeID)
}

// Resolve stores the response and marks the entry RESOLVED.
func (s *Store) Resolve(ctx context.Context, id int64, response string) (*Entry, error) {
	defer s.db.Track("resolve_feedback")()

	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET response = ?, status = ?, response_at = ? WHERE id = ?`,
		response, StatusResolved, db.FormatTime(s.now()), id)
	if err != nil {
		return nil, fmt.Errorf("resolving feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	defer s.db.Track("list_feedback")()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(sc db.Scanner) (*Entry, error) {
	var (
		e          Entry
		createdAt  string
		responseAt sql.NullString
	)
	if err := sc.Scan(&e.ID, &e.Type, &e.Title, &e.Content, &e.SenderID, &e.SenderName, &e.Status,
		&e.Response, &createdAt, &responseAt); err != nil {
		return nil, err
	}
	e.CreatedAt = db.ParseTime(createdAt)
	if responseAt.Valid {
		e.ResponseAt = db.ParseTime(responseAt.String)
	}
	return &e, nil
}
