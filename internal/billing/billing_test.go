package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth/authtest"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/events"
	"github.com/ziadkadry99/canteen/internal/mail"
	"github.com/ziadkadry99/canteen/internal/progress"
	"github.com/ziadkadry99/canteen/internal/transactions"
)

type fixture struct {
	svc    *Service
	txns   *transactions.Store
	audit  *audit.Store
	events *events.Recorder
	outbox *mail.Outbox
}

// setupTestStore seeds E1 (with an email) and E2 (without) and these
// transactions: E1 tea 20 ACTIVE and samosa 12.5 INACTIVE in March 2025,
// E1 tea 10 ACTIVE in April 2025, E2 tea 30 MODIFIED in March 2025.
func setupTestStore(t *testing.T) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	seed := []string{
		`INSERT INTO employees (employee_id, first_name, last_name, email) VALUES ('E1', 'Asha', 'Rao', 'asha@example.com')`,
		`INSERT INTO employees (employee_id, first_name, last_name) VALUES ('E2', 'Ravi', 'Kumar')`,
		`INSERT INTO menu_items (menu_id, name, price, start_date, end_date, category)
			VALUES ('tea-1', 'Tea', 10, '2025-01-01', '2025-12-31', 'beverages')`,
		`INSERT INTO menu_items (menu_id, name, price, start_date, end_date, category)
			VALUES ('samosa-1', 'Samosa | large', 12.5, '2025-01-01', '2025-12-31', 'snacks')`,
	}
	txns := []struct {
		employee, item, qty int
		unit, total         float64
		status, created     string
	}{
		{1, 1, 2, 10, 20, "ACTIVE", "2025-03-10 06:00:00"},
		{1, 2, 1, 12.5, 12.5, "INACTIVE", "2025-03-11 06:00:00"},
		{1, 1, 1, 10, 10, "ACTIVE", "2025-04-10 06:00:00"},
		{2, 1, 3, 10, 30, "MODIFIED", "2025-03-12 06:00:00"},
	}
	for _, q := range seed {
		if _, err := database.Exec(q); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	for i, tx := range txns {
		if _, err := database.Exec(`INSERT INTO orders (employee_ref, menu_item_ref, quantity, price_at_order, total_price,
			order_time, expected_delivery_date, status) VALUES (?, ?, ?, ?, ?, ?, '2025-03-10', 'DELIVERED')`,
			tx.employee, tx.item, tx.qty, tx.unit, tx.total, tx.created); err != nil {
			t.Fatalf("seeding order: %v", err)
		}
		if _, err := database.Exec(`INSERT INTO transactions (transaction_id, order_ref, employee_ref, menu_item_ref,
			quantity, unit_price, total_price, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			"TXN-"+string(rune('A'+i)), i+1, tx.employee, tx.item, tx.qty, tx.unit, tx.total, tx.status, tx.created); err != nil {
			t.Fatalf("seeding transaction: %v", err)
		}
	}

	f := &fixture{
		txns:   transactions.NewStore(database),
		audit:  audit.NewStore(database),
		events: &events.Recorder{},
		outbox: &mail.Outbox{},
	}
	f.svc = NewService(Deps{
		Transactions: f.txns,
		Employees:    employees.NewStore(database),
		Mail:         f.outbox,
		Audit:        f.audit,
		Events:       f.events,
	})
	return f
}

func TestPreview(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	b, err := f.svc.Preview(ctx, "E1", 3, 2025)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if b.EmployeeName != "Asha Rao" || len(b.Transactions) != 2 || b.TotalAmount != 20 {
		t.Errorf("unexpected bill: %+v", b)
	}
	if b.ActiveCount != 1 || b.InactiveCount != 1 || b.GeneratedCount != 0 {
		t.Errorf("unexpected counts: %+v", b)
	}

	whole, _ := f.svc.Preview(ctx, "E1", 0, 2025)
	if len(whole.Transactions) != 3 || whole.TotalAmount != 30 {
		t.Errorf("year preview = %d transactions, total %.2f", len(whole.Transactions), whole.TotalAmount)
	}

	empty, err := f.svc.Preview(ctx, "E2", 1, 2025)
	if err != nil || empty.Transactions == nil || len(empty.Transactions) != 0 {
		t.Errorf("empty preview = %v %+v", err, empty)
	}

	if _, err := f.svc.Preview(ctx, "E9", 3, 2025); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, err := f.svc.Preview(ctx, "E1", 13, 2025); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	if done, _ := f.svc.HasGenerated(ctx, "E1", 3, 2025); done {
		t.Fatal("HasGenerated before generating")
	}
	if _, err := f.svc.Generate(ctx, "E1", 0, 2025, "ADMIN1"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod for a whole-year bill, got %v", err)
	}

	b, err := f.svc.Generate(ctx, "E1", 3, 2025, "ADMIN1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if b.GeneratedCount != 1 || b.ActiveCount != 0 || b.TotalAmount != 20 {
		t.Errorf("unexpected bill: %+v", b)
	}
	if done, _ := f.svc.HasGenerated(ctx, "E1", 3, 2025); !done {
		t.Error("HasGenerated after generating = false")
	}

	april, _ := f.svc.Preview(ctx, "E1", 4, 2025)
	if april.ActiveCount != 1 {
		t.Errorf("April transactions must stay ACTIVE: %+v", april)
	}

	entries, _ := f.audit.Query(ctx, audit.QueryFilter{Action: audit.ActionBillGenerated})
	if len(entries) != 1 || entries[0].ScopeID != "E1/2025-03" || entries[0].NewValue != "20.00" {
		t.Errorf("audit entries = %+v", entries)
	}
	if subjects := f.events.Subjects(); len(subjects) != 1 || subjects[0] != events.SubjectBillGenerated {
		t.Errorf("events = %v", subjects)
	}
}

func TestSend(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, "E2", 3, 2025, "ADMIN1"); !errors.Is(err, ErrUnresolvedRemarks) {
		t.Fatalf("expected ErrUnresolvedRemarks, got %v", err)
	}

	if _, err := f.svc.Generate(ctx, "E1", 3, 2025, "ADMIN1"); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Send(ctx, "E1", 3, 2025, "ADMIN1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Paid != 1 || !res.Mailed || res.Bill.TotalAmount != 20 {
		t.Errorf("unexpected result: %+v", res)
	}
	sent := f.outbox.Sent()
	if len(sent) != 1 || sent[0].To != "asha@example.com" || sent[0].Subject != "Canteen bill for March 2025" {
		t.Fatalf("unexpected mail: %+v", sent)
	}
	if !strings.Contains(sent[0].Text, "**Amount due:** 20.00") || !strings.Contains(sent[0].HTML, "<table>") {
		t.Errorf("statement is missing content:\n%s", sent[0].Text)
	}

	after, _ := f.svc.Preview(ctx, "E1", 3, 2025)
	if after.PaidCount != 1 || after.InactiveCount != 1 || after.TotalAmount != 0 {
		t.Errorf("unexpected bill after send: %+v", after)
	}

	// Resolving the remark lets E2's bill through; E2 has no email.
	list, _ := f.txns.Billable(ctx, "E2", 3, 2025)
	if err := f.txns.SetStatus(ctx, list[0].ID, transactions.StatusActive, "ADMIN1"); err != nil {
		t.Fatal(err)
	}
	res, err = f.svc.Send(ctx, "E2", 3, 2025, "ADMIN1")
	if err != nil {
		t.Fatalf("Send(E2): %v", err)
	}
	if res.Mailed || res.Paid != 1 {
		t.Errorf("unexpected result for E2: %+v", res)
	}
}

func TestGenerateAll(t *testing.T) {
	f := setupTestStore(t)
	var out bytes.Buffer
	reporter := &progress.CIReporter{Task: "Generating bills", Out: &out}

	bills, err := f.svc.GenerateAll(context.Background(), 4, 2025, "ADMIN1", reporter)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(bills) != 1 || bills[0].EmployeeID != "E1" || bills[0].TotalAmount != 10 {
		t.Errorf("unexpected bills: %+v", bills)
	}
	for _, line := range []string{"Generating bills: 2 to process", "[1/2] Asha Rao", "[2/2] Ravi Kumar", "Generating bills: done"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("progress output missing %q:\n%s", line, out.String())
		}
	}
}

func TestGenerateWithoutActiveTransactions(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	bills, err := f.svc.GenerateAll(ctx, 6, 2025, "ADMIN1", nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("expected no bills for an empty month, got %+v", bills)
	}

	if _, err := f.svc.Generate(ctx, "E1", 3, 2025, "ADMIN1"); err != nil {
		t.Fatal(err)
	}
	again, err := f.svc.Generate(ctx, "E1", 3, 2025, "ADMIN1")
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if again.GeneratedCount != 1 {
		t.Errorf("regenerating must still return the bill: %+v", again)
	}

	entries, _ := f.audit.Query(ctx, audit.QueryFilter{Action: audit.ActionBillGenerated})
	if len(entries) != 1 {
		t.Errorf("expected one bill_generated entry, got %d", len(entries))
	}
	if subjects := f.events.Subjects(); len(subjects) != 1 {
		t.Errorf("expected one bill event, got %v", subjects)
	}
}

// --- HTTP handler tests ---

func TestRoutes(t *testing.T) {
	f := setupTestStore(t)
	tokens := authtest.Tokens()
	r := chi.NewRouter()
	RegisterRoutes(r, f.svc, tokens)

	t.Run("GET /api/bills/preview", func(t *testing.T) {
		req := authtest.Authorize(t, tokens, httptest.NewRequest("GET", "/api/bills/preview?month=3&year=2025", nil), authtest.Employee("E1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var b Bill
		json.NewDecoder(w.Body).Decode(&b)
		if b.EmployeeID != "E1" || b.TotalAmount != 20 {
			t.Errorf("unexpected bill: %+v", b)
		}

		req = authtest.Authorize(t, tokens, httptest.NewRequest("GET", "/api/bills/preview?employeeId=E2", nil), authtest.Employee("E1"))
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("POST /api/bills/generate", func(t *testing.T) {
		body := strings.NewReader(`{"employeeId":"E1","month":3,"year":2025}`)
		req := authtest.Authorize(t, tokens, httptest.NewRequest("POST", "/api/bills/generate", body), authtest.Employee("E1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403 for employee, got %d", w.Code)
		}

		body = strings.NewReader(`{"employeeId":"E1","month":3,"year":2025}`)
		req = authtest.Authorize(t, tokens, httptest.NewRequest("POST", "/api/bills/generate", body), authtest.Admin)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("GET /api/bills/check", func(t *testing.T) {
		req := authtest.Authorize(t, tokens, httptest.NewRequest("GET", "/api/bills/check?employeeId=E1&month=3&year=2025", nil), authtest.Admin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var got map[string]bool
		json.NewDecoder(w.Body).Decode(&got)
		if !got["generated"] {
			t.Errorf("expected generated bill, got %v", got)
		}
	})

	t.Run("POST /api/bills/send", func(t *testing.T) {
		body := strings.NewReader(`{"employeeId":"E2","month":3,"year":2025}`)
		req := authtest.Authorize(t, tokens, httptest.NewRequest("POST", "/api/bills/send", body), authtest.Admin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409 for unresolved remarks, got %d", w.Code)
		}
	})

	t.Run("GET /api/bills/statement", func(t *testing.T) {
		req := authtest.Authorize(t, tokens, httptest.NewRequest("GET", "/api/bills/statement?month=3&year=2025", nil), authtest.Employee("E1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
			t.Fatalf("unexpected response %d %q", w.Code, w.Header().Get("Content-Type"))
		}
		if !strings.Contains(w.Body.String(), "Canteen bill March 2025") {
			t.Errorf("statement title missing:\n%s", w.Body.String())
		}
	})
}
