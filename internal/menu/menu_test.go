package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/auth/authtest"
	"github.com/ziadkadry99/canteen/internal/db"
)

var march10 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

func setupTestStore(t *testing.T) (*Store, *db.DB, *time.Time) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	clock := march10
	store := NewStore(database)
	store.now = func() time.Time { return clock }
	return store, database, &clock
}

func marchRequest(name string, price float64, categories ...Category) CreateRequest {
	return CreateRequest{
		Name:       name,
		Price:      price,
		Quantity:   1,
		Unit:       "plate",
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local),
		EndDate:    time.Date(2025, 3, 31, 23, 59, 59, 0, time.Local),
		Categories: categories,
	}
}

func mustCreate(t *testing.T, store *Store, req CreateRequest) *Item {
	t.Helper()
	it, err := store.Create(context.Background(), req, "ADMIN1")
	if err != nil {
		t.Fatalf("Create(%s): %v", req.Name, err)
	}
	return it
}

func TestCreateOneRowPerCategory(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, store, marchRequest("Veg Biryani", 80, Lunch, "THALI"))
	wantID := "veg-biryani-" + strconv.FormatInt(march10.UnixMilli(), 10)
	if first.MenuID != wantID {
		t.Errorf("MenuID = %q, want %q", first.MenuID, wantID)
	}
	if first.Category != Lunch || !first.AvailableStatus || !first.Active {
		t.Errorf("unexpected first item: %+v", first)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	if items[1].Category != Thali || items[1].MenuID != wantID+"-2" {
		t.Errorf("second row = %s %s", items[1].Category, items[1].MenuID)
	}

	got, err := store.GetByMenuID(ctx, wantID+"-2")
	if err != nil || got.Price != 80 {
		t.Errorf("GetByMenuID: %v %+v", err, got)
	}
}

func TestCreateValidation(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, marchRequest("Tea", 10), "A"); !errors.Is(err, ErrNoCategory) {
		t.Errorf("expected ErrNoCategory, got %v", err)
	}
	if _, err := store.Create(ctx, marchRequest("Tea", 10, "dinner"), "A"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := store.Create(ctx, marchRequest(" ", 10, Beverages), "A"); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	req := marchRequest("Tea", 10, Beverages)
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	if _, err := store.Create(ctx, req, "A"); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestUpdateVersionsPrice(t *testing.T) {
	store, _, clock := setupTestStore(t)
	ctx := context.Background()
	orig := mustCreate(t, store, marchRequest("Idli", 30, Breakfast))

	req := UpdateRequest{
		Name: "Idli", Description: "two pieces", Quantity: 2, Unit: "pcs", Price: 30,
		StartDate: orig.StartDate, EndDate: orig.EndDate,
	}
	same, changed, err := store.Update(ctx, orig.ID, req, "ADMIN2")
	if err != nil {
		t.Fatalf("Update same price: %v", err)
	}
	if changed || same.ID != orig.ID || same.Description != "two pieces" || same.UpdatedBy != "ADMIN2" {
		t.Errorf("expected in-place update, got changed=%v %+v", changed, same)
	}

	*clock = clock.Add(time.Hour)
	req.Price = 35
	next, changed, err := store.Update(ctx, orig.ID, req, "ADMIN2")
	if err != nil {
		t.Fatalf("Update new price: %v", err)
	}
	if !changed || next.ID == orig.ID {
		t.Fatalf("expected a new row, got changed=%v id=%d", changed, next.ID)
	}
	if next.Category != Breakfast || next.CreatedBy != "ADMIN1" || next.UpdatedBy != "ADMIN2" {
		t.Errorf("unexpected versioned row: %+v", next)
	}

	old, err := store.Get(ctx, orig.ID)
	if err != nil || old.Price != 30 {
		t.Errorf("old row must keep its price: %v %+v", err, old)
	}

	history, err := store.PriceHistory(ctx, "idli", "")
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(history) != 2 || history[0].Price != 35 || history[1].Price != 30 {
		t.Errorf("unexpected history: %+v", history)
	}
	if len(history[0].AllCategories) != 1 || history[0].AllCategories[0] != Breakfast {
		t.Errorf("AllCategories = %v", history[0].AllCategories)
	}

	if _, err := store.PriceHistory(ctx, "nothing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Update(ctx, 999, req, "A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveAndFilter(t *testing.T) {
	store, _, _ := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, marchRequest("Tea", 10, Beverages))
	mustCreate(t, store, marchRequest("Poha", 25, Breakfast))
	april := marchRequest("Mango Lassi", 40, Beverages)
	april.StartDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)
	april.EndDate = time.Date(2025, 4, 30, 0, 0, 0, 0, time.Local)
	mustCreate(t, store, april)

	active, err := store.Active(ctx, time.Date(2025, 3, 31, 0, 0, 0, 0, time.Local), "")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 2 || active[0].Name != "Poha" || active[1].Name != "Tea" {
		t.Errorf("Active(Mar 31) = %+v", active)
	}

	active, _ = store.Active(ctx, time.Date(2025, 4, 30, 18, 0, 0, 0, time.Local), "BEVERAGES")
	if len(active) != 1 || active[0].Name != "Mango Lassi" {
		t.Errorf("Active(Apr 30, beverages) = %+v", active)
	}

	filtered, err := store.Filter(ctx, Filter{Name: "a", Category: Beverages})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(filtered) != 2 || filtered[0].Name != "Mango Lassi" {
		t.Errorf("Filter(name=a, beverages) = %+v", filtered)
	}

	filtered, _ = store.Filter(ctx, Filter{ActiveOnly: true})
	if len(filtered) != 2 {
		t.Errorf("Filter(activeOnly) returned %d items, want 2", len(filtered))
	}

	filtered, _ = store.Filter(ctx, Filter{Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)})
	if len(filtered) != 1 || filtered[0].Name != "Mango Lassi" {
		t.Errorf("Filter(start>=Apr 1) = %+v", filtered)
	}
}

func TestAvailabilityAndDelete(t *testing.T) {
	store, database, _ := setupTestStore(t)
	ctx := context.Background()
	tea := mustCreate(t, store, marchRequest("Tea", 10, Beverages))
	coffee := mustCreate(t, store, marchRequest("Coffee", 15, Beverages))

	got, err := store.SetAvailability(ctx, tea.ID, false, "ADMIN1")
	if err != nil || got.AvailableStatus {
		t.Fatalf("SetAvailability: %v %+v", err, got)
	}
	if filtered, _ := store.Filter(ctx, Filter{ActiveOnly: true}); len(filtered) != 1 {
		t.Errorf("unavailable items must not be active, got %d", len(filtered))
	}
	if _, err := store.SetAvailability(ctx, 999, true, "A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := database.Exec(`INSERT INTO employees (employee_id) VALUES ('E1')`); err != nil {
		t.Fatal(err)
	}
	if _, err := database.Exec(`INSERT INTO orders (employee_ref, menu_item_ref, quantity, price_at_order, total_price, order_time, expected_delivery_date)
		VALUES (1, ?, 1, 15, 15, '2025-03-10 09:00:00', '2025-03-10')`, coffee.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Delete(ctx, coffee.ID); !errors.Is(err, ErrInUse) {
		t.Errorf("expected ErrInUse, got %v", err)
	}
	if _, err := store.Delete(ctx, tea.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, tea.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRank(t *testing.T) {
	items := []Item{{Name: "Tea"}, {Name: "Plain Dosa"}, {Name: "Dose"}, {Name: "Masala Dosa"}, {Name: "Dosa Combo Special"}}

	got := rank(items, "dosa", 0)
	var names []string
	for _, m := range got {
		names = append(names, m.Name)
	}
	want := []string{"Dosa Combo Special", "Masala Dosa", "Plain Dosa", "Dose"}
	if len(names) != len(want) {
		t.Fatalf("rank = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("rank[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if got[3].Distance != 1 {
		t.Errorf("Dose distance = %d, want 1", got[3].Distance)
	}

	if got := rank(items, "dosa", 2); len(got) != 2 {
		t.Errorf("limit not applied: %d results", len(got))
	}
}

func TestSearch(t *testing.T) {
	store, _, _ := setupTestStore(t)
	mustCreate(t, store, marchRequest("Masala Chai", 12, Beverages))
	mustCreate(t, store, marchRequest("Samosa", 15, Snacks))

	got, err := store.Search(context.Background(), "chay", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Masala Chai" {
		t.Errorf("Search(chay) = %+v", got)
	}
	if got, _ := store.Search(context.Background(), "  ", 5); got != nil {
		t.Errorf("blank term should return nothing, got %+v", got)
	}
}

// --- HTTP handler tests ---

func do(t *testing.T, r http.Handler, tokens *auth.Tokens, p auth.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := authtest.Authorize(t, tokens, httptest.NewRequest(method, path, &buf), p)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	store, database, _ := setupTestStore(t)
	auditStore := audit.NewStore(database)
	tokens := authtest.Tokens()
	r := chi.NewRouter()
	RegisterRoutes(r, store, auditStore, tokens)
	ctx := context.Background()

	var created Item
	t.Run("POST /api/menu/items", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Admin, "POST", "/api/menu/items", map[string]any{
			"name": "Paneer Thali", "price": 120, "quantity": 1, "unit": "plate",
			"startDate": "2025-03-01", "endDate": "2025-03-31", "categories": []string{"thali", "lunch"},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		json.NewDecoder(w.Body).Decode(&created)
		if created.Category != Thali || created.CreatedBy != "ADMIN1" {
			t.Errorf("unexpected item: %+v", created)
		}
		if !created.EndDate.Equal(time.Date(2025, 3, 31, 23, 59, 59, 0, time.Local)) {
			t.Errorf("EndDate = %v, want end of day", created.EndDate)
		}
	})

	t.Run("POST /api/menu/items requires admin", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Employee("E1"), "POST", "/api/menu/items", map[string]any{"name": "x"})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("POST /api/menu/items without category", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Admin, "POST", "/api/menu/items", map[string]any{
			"name": "Tea", "price": 10, "startDate": "2025-03-01", "endDate": "2025-03-31",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("GET /api/menu/items/active", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Employee("E1"), "GET", "/api/menu/items/active?date=2025-03-15&category=lunch", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var items []Item
		json.NewDecoder(w.Body).Decode(&items)
		if len(items) != 1 || items[0].Category != Lunch {
			t.Errorf("unexpected items: %+v", items)
		}
	})

	t.Run("PUT /api/menu/items/{id} reprices", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Admin, "PUT", "/api/menu/items/"+strconv.FormatInt(created.ID, 10), map[string]any{
			"name": "Paneer Thali", "price": 130, "quantity": 1, "unit": "plate",
			"startDate": "2025-03-01", "endDate": "2025-03-31",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		entries, _ := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionPriceChanged})
		if len(entries) != 1 || entries[0].PreviousValue != "120.00" || entries[0].NewValue != "130.00" {
			t.Errorf("expected one price audit entry, got %+v", entries)
		}
	})

	t.Run("GET /api/menu/items/price-history", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Employee("E1"), "GET", "/api/menu/items/price-history?name=Paneer+Thali&category=thali", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var history []PriceVersion
		json.NewDecoder(w.Body).Decode(&history)
		if len(history) != 2 || history[0].Price != 130 || len(history[0].AllCategories) != 2 {
			t.Errorf("unexpected history: %+v", history)
		}
	})

	t.Run("GET /api/menu/items/search", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Employee("E1"), "GET", "/api/menu/items/search?q=paneer", nil)
		var matches []Match
		json.NewDecoder(w.Body).Decode(&matches)
		if w.Code != http.StatusOK || len(matches) != 3 {
			t.Errorf("expected 3 matches, got %d (%d)", len(matches), w.Code)
		}
	})

	t.Run("PATCH /api/menu/items/{id}/availability", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Admin, "PATCH", "/api/menu/items/"+strconv.FormatInt(created.ID, 10)+"/availability?available=false", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		it, _ := store.Get(ctx, created.ID)
		if it.AvailableStatus {
			t.Error("expected item to be unavailable")
		}
	})

	t.Run("DELETE /api/menu/items/{id}", func(t *testing.T) {
		w := do(t, r, tokens, authtest.Admin, "DELETE", "/api/menu/items/"+strconv.FormatInt(created.ID, 10), nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
		}
		w = do(t, r, tokens, authtest.Employee("E1"), "GET", "/api/menu/items/"+strconv.FormatInt(created.ID, 10), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("GET /api/menu/items unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/menu/items", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}
