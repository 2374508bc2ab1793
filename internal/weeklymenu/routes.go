package weeklymenu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/lib/timeparse"
)

// RegisterRoutes mounts the weekly menu planner under /api/menu/weekly.
func RegisterRoutes(r chi.Router, store *Store, auditStore *audit.Store, tokens *auth.Tokens) {
	r.Route("/api/menu/weekly", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Get("/day", handleForDay(store))
		r.Get("/range", handleRange(store))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/", handleCreate(store))
			r.Post("/copy-previous", handleCopyPrevious(store, auditStore))
			r.Delete("/{id}", handleDelete(store))
		})
	})
}

type createBody struct {
	WeekStartDate string    `json:"weekStartDate"`
	WeekEndDate   string    `json:"weekEndDate"`
	DayOfWeek     DayOfWeek `json:"dayOfWeek"`
	MealCategory  string    `json:"mealCategory"`
	MenuID        string    `json:"menuId"`
	MenuItem      *struct {
		MenuID string `json:"menuId"`
	} `json:"menuItem"`
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req := CreateRequest{DayOfWeek: body.DayOfWeek, MealCategory: body.MealCategory, MenuID: body.MenuID}
		if req.MenuID == "" && body.MenuItem != nil {
			req.MenuID = body.MenuItem.MenuID
		}
		var ok bool
		if req.WeekStartDate, ok = timeparse.Parse(body.WeekStartDate); !ok {
			http.Error(w, "invalid weekStartDate", http.StatusBadRequest)
			return
		}
		if req.WeekEndDate, ok = timeparse.Parse(body.WeekEndDate); !ok {
			http.Error(w, "invalid weekEndDate", http.StatusBadRequest)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		e, err := store.Create(r.Context(), req, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleForDay(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		date, ok := timeparse.Parse(q.Get("date"))
		if !ok {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		day := DayOf(date)
		if raw := q.Get("dayOfWeek"); raw != "" {
			var err error
			if day, err = ParseDay(raw); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		entries, err := store.ForDay(r.Context(), date, day, q.Get("category"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(entries))
	}
}

func handleRange(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, ok := timeparse.Parse(r.URL.Query().Get("startDate"))
		if !ok {
			http.Error(w, "invalid startDate", http.StatusBadRequest)
			return
		}
		end, ok := timeparse.ParseEnd(r.URL.Query().Get("endDate"))
		if !ok {
			http.Error(w, "invalid endDate", http.StatusBadRequest)
			return
		}
		entries, err := store.Between(r.Context(), start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(entries))
	}
}

func handleCopyPrevious(store *Store, auditStore *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("weekStart")
		if raw == "" {
			raw = r.URL.Query().Get("currentWeekStart")
		}
		weekStart, ok := timeparse.Date(raw)
		if !ok {
			http.Error(w, "invalid weekStart", http.StatusBadRequest)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		n, err := store.CopyPreviousWeek(r.Context(), weekStart, p.EmployeeID, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if n > 0 {
			if err := auditStore.Log(r.Context(), audit.Entry{
				ActorID:  p.EmployeeID,
				Action:   audit.ActionWeeklyMenuCopied,
				Scope:    audit.ScopeWeeklyMenu,
				ScopeID:  weekStart.Format(time.DateOnly),
				Summary:  fmt.Sprintf("copied %d entries from the previous week", n),
				NewValue: strconv.Itoa(n),
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]int{"copied": n})
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func orEmpty(entries []Entry) []Entry {
	if entries == nil {
		return []Entry{}
	}
	return entries
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMenuItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidDay):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
