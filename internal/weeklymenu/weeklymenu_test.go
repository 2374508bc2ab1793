package weeklymenu

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
	"github.com/ziadkadry99/canteen/internal/auth/authtest"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/menu"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func setupTestStore(t *testing.T) (*Store, *db.DB, *menu.Item, *menu.Item) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	items := menu.NewStore(database)
	mk := func(name string, c menu.Category) *menu.Item {
		it, err := items.Create(context.Background(), menu.CreateRequest{
			Name: name, Price: 50, StartDate: day(2025, 1, 1), EndDate: day(2025, 12, 31),
			Categories: []menu.Category{c},
		}, "ADMIN1")
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		return it
	}
	return NewStore(database, items), database, mk("Rajma Chawal", menu.Lunch), mk("Upma", menu.Breakfast)
}

func schedule(t *testing.T, store *Store, weekStart time.Time, d DayOfWeek, meal string, it *menu.Item) *Entry {
	t.Helper()
	e, err := store.Create(context.Background(), CreateRequest{
		WeekStartDate: weekStart,
		WeekEndDate:   weekStart.AddDate(0, 0, 6),
		DayOfWeek:     d,
		MealCategory:  meal,
		MenuID:        it.MenuID,
	}, "ADMIN1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func TestCreate(t *testing.T) {
	store, _, rajma, _ := setupTestStore(t)
	ctx := context.Background()

	e := schedule(t, store, day(2025, 3, 3), "monday", "lunch", rajma)
	if e.ID == 0 || e.DayOfWeek != Monday || e.MenuItem.Name != "Rajma Chawal" {
		t.Errorf("unexpected entry: %+v", e)
	}

	_, err := store.Create(ctx, CreateRequest{DayOfWeek: Monday, MenuID: "nope"}, "A")
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Errorf("expected ErrMenuItemNotFound, got %v", err)
	}
	_, err = store.Create(ctx, CreateRequest{DayOfWeek: "FUNDAY", MenuID: rajma.MenuID}, "A")
	if !errors.Is(err, ErrInvalidDay) {
		t.Errorf("expected ErrInvalidDay, got %v", err)
	}
}

func TestForDayAndBetween(t *testing.T) {
	store, _, rajma, upma := setupTestStore(t)
	ctx := context.Background()

	schedule(t, store, day(2025, 3, 3), Monday, "lunch", rajma)
	schedule(t, store, day(2025, 3, 3), Monday, "breakfast", upma)
	schedule(t, store, day(2025, 3, 3), Tuesday, "lunch", rajma)
	schedule(t, store, day(2025, 3, 17), Monday, "lunch", rajma)

	got, err := store.ForDay(ctx, day(2025, 3, 5).Add(12*time.Hour), Monday, "")
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if len(got) != 2 || got[0].MealCategory != "breakfast" || got[0].MenuItem.Name != "Upma" {
		t.Errorf("ForDay(Mar 5, MONDAY) = %+v", got)
	}

	got, _ = store.ForDay(ctx, day(2025, 3, 5), Monday, "LUNCH")
	if len(got) != 1 || got[0].MenuItem.ID != rajma.ID {
		t.Errorf("ForDay(lunch) = %+v", got)
	}

	got, _ = store.ForDay(ctx, day(2025, 3, 12), Monday, "")
	if len(got) != 0 {
		t.Errorf("expected nothing scheduled for the week of Mar 10, got %d", len(got))
	}

	got, err = store.Between(ctx, day(2025, 3, 8), day(2025, 3, 18))
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("Between = %d entries, want 4", len(got))
	}
}

func TestCopyPreviousWeek(t *testing.T) {
	store, _, rajma, upma := setupTestStore(t)
	ctx := context.Background()
	schedule(t, store, day(2025, 3, 3), Monday, "lunch", rajma)
	schedule(t, store, day(2025, 3, 3), Friday, "breakfast", upma)

	n, err := store.CopyPreviousWeek(ctx, day(2025, 3, 10), "ADMIN2", day(2025, 3, 12))
	if err != nil {
		t.Fatalf("CopyPreviousWeek: %v", err)
	}
	if n != 2 {
		t.Fatalf("copied %d, want 2", n)
	}
	got, _ := store.ForDay(ctx, day(2025, 3, 14), Friday, "")
	if len(got) != 1 || got[0].CreatedBy != "ADMIN2" || !got[0].WeekStartDate.Equal(day(2025, 3, 10)) {
		t.Errorf("copied entry = %+v", got)
	}
	if !got[0].WeekEndDate.Equal(day(2025, 3, 16)) {
		t.Errorf("WeekEndDate = %v, want Mar 16", got[0].WeekEndDate)
	}

	// Source week in the future.
	if n, _ := store.CopyPreviousWeek(ctx, day(2025, 3, 24), "A", day(2025, 3, 12)); n != 0 {
		t.Errorf("expected future source week to be skipped, copied %d", n)
	}
	// Empty source week.
	if n, _ := store.CopyPreviousWeek(ctx, day(2025, 3, 3), "A", day(2025, 3, 12)); n != 0 {
		t.Errorf("expected empty source week to be skipped, copied %d", n)
	}
}

func TestDelete(t *testing.T) {
	store, _, rajma, _ := setupTestStore(t)
	e := schedule(t, store, day(2025, 3, 3), Monday, "lunch", rajma)

	if err := store.Delete(context.Background(), e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDayOf(t *testing.T) {
	if got := DayOf(day(2025, 3, 9)); got != Sunday {
		t.Errorf("DayOf(Mar 9 2025) = %s, want SUNDAY", got)
	}
}

// --- HTTP handler tests ---

func TestRoutes(t *testing.T) {
	store, database, rajma, _ := setupTestStore(t)
	auditStore := audit.NewStore(database)
	tokens := authtest.Tokens()
	r := chi.NewRouter()
	RegisterRoutes(r, store, auditStore, tokens)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req := authtest.Authorize(t, tokens, httptest.NewRequest(method, path, &buf), authtest.Admin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	var created Entry
	t.Run("POST /api/menu/weekly", func(t *testing.T) {
		w := do("POST", "/api/menu/weekly", map[string]any{
			"weekStartDate": "2025-03-03T00:00:00", "weekEndDate": "2025-03-09T00:00:00",
			"dayOfWeek": "MONDAY", "mealCategory": "lunch",
			"menuItem": map[string]string{"menuId": rajma.MenuID},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		json.NewDecoder(w.Body).Decode(&created)
		if created.MenuItem == nil || created.MenuItem.MenuID != rajma.MenuID {
			t.Errorf("unexpected entry: %+v", created)
		}
	})

	t.Run("POST /api/menu/weekly unknown item", func(t *testing.T) {
		w := do("POST", "/api/menu/weekly", map[string]any{
			"weekStartDate": "2025-03-03", "weekEndDate": "2025-03-09",
			"dayOfWeek": "MONDAY", "mealCategory": "lunch", "menuId": "missing",
		})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("GET /api/menu/weekly/day", func(t *testing.T) {
		w := do("GET", "/api/menu/weekly/day?date=2025-03-03T10:00:00&dayOfWeek=MONDAY&category=", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var entries []Entry
		json.NewDecoder(w.Body).Decode(&entries)
		if len(entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(entries))
		}
	})

	t.Run("POST /api/menu/weekly/copy-previous", func(t *testing.T) {
		w := do("POST", "/api/menu/weekly/copy-previous?currentWeekStart=2025-03-10", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]int
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["copied"] != 1 {
			t.Errorf("copied = %d, want 1", resp["copied"])
		}
		entries, _ := auditStore.Query(context.Background(), audit.QueryFilter{Scope: audit.ScopeWeeklyMenu})
		if len(entries) != 1 {
			t.Errorf("expected one audit entry, got %d", len(entries))
		}
	})

	t.Run("GET /api/menu/weekly/range", func(t *testing.T) {
		w := do("GET", "/api/menu/weekly/range?startDate=2025-03-01&endDate=2025-03-31", nil)
		var entries []Entry
		json.NewDecoder(w.Body).Decode(&entries)
		if w.Code != http.StatusOK || len(entries) != 2 {
			t.Errorf("expected 2 entries, got %d (%d)", len(entries), w.Code)
		}
	})

	t.Run("DELETE /api/menu/weekly/{id}", func(t *testing.T) {
		w := do("DELETE", "/api/menu/weekly/"+strconv.FormatInt(created.ID, 10), nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", w.Code)
		}
	})
}
