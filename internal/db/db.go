package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/ziadkadry99/canteen/internal/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sql.DB with canteen-specific helpers.
type DB struct {
	*sql.DB
	path    string
	metrics *metrics.Metrics
}

// Open creates or opens a SQLite database at the given path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
// The pool is pinned to one connection so every query sees the same database.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Querier is satisfied by both *DB and *sql.Tx, so store helpers can run
// inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn inside a transaction and commits when fn returns nil.
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// SetMetrics enables query latency recording for Track.
func (d *DB) SetMetrics(m *metrics.Metrics) { d.metrics = m }

// Track starts timing a query and returns the func that records it:
//
//	defer s.db.Track("insert_order")()
func (d *DB) Track(queryType string) func() {
	start := time.Now()
	return func() { d.metrics.ObserveQuery(queryType, start) }
}

// Ping satisfies the health checker's pinger interface.
func (d *DB) Ping(ctx context.Context) error {
	return d.PingContext(ctx)
}

// Version reports the applied schema version and whether the last
// migration left the schema dirty.
func (d *DB) Version() (uint, bool, error) {
	m, err := d.migrator()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Migrate applies all pending embedded migrations. Running it on an
// up-to-date schema is a no-op.
func (d *DB) Migrate() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// migrator is never closed: closing it would close the shared *sql.DB.
func (d *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(d.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Timestamps are stored as UTC text so that string comparison orders them.
const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = time.DateOnly
)

// FormatTime renders t in the stored timestamp layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a stored timestamp. Values written by SQLite's
// datetime('now') and RFC 3339 strings are accepted too.
func ParseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FormatDate renders the calendar date of t in its own location.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a stored calendar date in the local zone.
func ParseDate(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NullTime formats t, or returns NULL for the zero time.
func NullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(t), Valid: true}
}

// MonthRange returns the UTC bounds [start, end) of a calendar month in
// the server's local zone. A zero month spans the whole year and a zero
// year spans everything.
func MonthRange(month, year int) (string, string) {
	if year == 0 {
		return "", ""
	}
	if month == 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
		return FormatTime(start), FormatTime(start.AddDate(1, 0, 0))
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return FormatTime(start), FormatTime(start.AddDate(0, 1, 0))
}

// Scanner is implemented by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}
