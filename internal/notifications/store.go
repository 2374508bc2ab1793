package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/canteen/internal/db"
)

// Store persists notifications.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const selectNotifications = `SELECT id, title, content, sender_id, sender_name, recipient_id, status, is_read,
	created_at FROM notifications`

// CreateAll inserts every notification in one transaction and fills in
// ids and creation times.
func (s *Store) CreateAll(ctx context.Context, list []*Notification) error {
	defer s.db.Track("insert_notifications")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().Truncate(time.Second)
	for _, n := range list {
		n.Status = StatusSent
		n.Read = false
		n.CreatedAt = now
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (title, content, sender_id, sender_name, recipient_id, status, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			n.Title, n.Content, n.SenderID, n.SenderName, n.RecipientID, n.Status, db.FormatTime(now))
		if err != nil {
			return fmt.Errorf("inserting notification: %w", err)
		}
		if n.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading notification id: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notifications: %w", err)
	}
	return nil
}

// Get returns the notification with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx, selectNotifications+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification: %w", err)
	}
	return n, nil
}

// MarkRead flags a notification as read.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	defer s.db.Track("mark_notification_read")()

	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET status = 'READ', is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("updating notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRecipient returns what employeeID received, newest first.
func (s *Store) ListByRecipient(ctx context.Context, employeeID string) ([]Notification, error) {
	return s.query(ctx, selectNotifications+` WHERE recipient_id = ? ORDER BY created_at DESC, id DESC`, employeeID)
}

// ListBySender returns what employeeID sent, newest first.
func (s *Store) ListBySender(ctx context.Context, employeeID string) ([]Notification, error) {
	return s.query(ctx, selectNotifications+` WHERE sender_id = ? ORDER BY created_at DESC, id DESC`, employeeID)
}

// UnreadCount counts the unread notifications of employeeID.
func (s *Store) UnreadCount(ctx context.Context, employeeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, employeeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Notification, error) {
	defer s.db.Track("list_notifications")()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNotification(sc db.Scanner) (*Notification, error) {
	var (
		n         Notification
		createdAt string
	)
	if err := sc.Scan(&n.ID, &n.Title, &n.Content, &n.SenderID, &n.SenderName, &n.RecipientID,
		&n.Status, &n.Read, &createdAt); err != nil {
		return nil, err
	}
	n.CreatedAt = db.ParseTime(createdAt)
	return &n, nil
}
