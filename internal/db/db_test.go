package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by counting rows in each one.
	tables := []string{
		"employees", "menu_items", "weekly_menus", "orders",
		"transactions", "notifications", "feedback", "audit_entries",
	}

	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running Migrate again should not fail.
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}

	v, dirty, err := d.Version()
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("Version() = %d dirty=%v, want 1 clean", v, dirty)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "canteen.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
	d.Close()

	// Reopening an existing database must not re-apply migrations.
	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer d.Close()
}

func TestForeignKeysEnforced(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	_, err = d.Exec(`INSERT INTO orders (employee_ref, menu_item_ref, quantity, price_at_order, total_price, order_time, expected_delivery_date)
		VALUES (999, 999, 1, 10, 10, '2025-01-01 10:00:00', '2025-01-01')`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2025, time.March, 4, 12, 30, 15, 0, time.UTC)
	got := ParseTime(FormatTime(in))
	if !got.Equal(in) {
		t.Errorf("ParseTime(FormatTime) = %v, want %v", got, in)
	}

	if got := ParseTime("2025-03-04T12:30:15Z"); !got.Equal(in) {
		t.Errorf("ParseTime(RFC3339) = %v, want %v", got, in)
	}
	if !ParseTime("garbage").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(12, 2024)
	wantStart := FormatTime(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.Local))
	wantEnd := FormatTime(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.Local))
	if start != wantStart || end != wantEnd {
		t.Errorf("MonthRange(12, 2024) = [%s, %s), want [%s, %s)", start, end, wantStart, wantEnd)
	}

	start, end = MonthRange(0, 0)
	if start != "" || end != "" {
		t.Errorf("MonthRange(0, 0) = [%q, %q), want empty bounds", start, end)
	}
}

func TestInTx(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	insert := func(id string) func(tx *sql.Tx) error {
		return func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO employees (employee_id, first_name, last_name, department, password_hash, is_active, created_at)
				VALUES (?, 'A', 'B', 'IT', 'x', 1, '2025-01-01 00:00:00')`, id)
			return err
		}
	}
	boom := errors.New("boom")

	err = d.InTx(ctx, func(tx *sql.Tx) error {
		if err := insert("E1")(tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if err := d.InTx(ctx, insert("E2")); err != nil {
		t.Fatalf("InTx() error: %v", err)
	}

	var ids []string
	rows, err := d.Query("SELECT employee_id FROM employees ORDER BY employee_id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}
	if len(ids) != 1 || ids[0] != "E2" {
		t.Errorf("expected only the committed row E2, got %v", ids)
	}
}
