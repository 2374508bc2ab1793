package menu

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

// RegisterRoutes mounts the menu item API under /api/menu/items.
func RegisterRoutes(r chi.Router, store *Store, auditStore *audit.Store, tokens *auth.Tokens) {
	r.Route("/api/menu/items", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Get("/", handleList(store))
		r.Get("/active", handleActive(store))
		r.Get("/filter", handleFilter(store))
		r.Get("/price-history", handlePriceHistory(store))
		r.Get("/search", handleSearch(store))
		r.Get("/{id}", handleGet(store))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/", handleCreate(store))
			r.Put("/{id}", handleUpdate(store, auditStore))
			r.Patch("/{id}/availability", handleAvailability(store))
			r.Delete("/{id}", handleDelete(store, auditStore))
		})
	})
}

// itemBody is the wire form of create and update requests. Dates arrive
// as strings in whatever form the browser produced.
type itemBody struct {
	CreateRequest
	Category  Category `json:"category"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
}

func (b *itemBody) window() (time.Time, time.Time, error) {
	start, ok := timeparse.Parse(b.StartDate)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate %q", b.StartDate)
	}
	end, ok := timeparse.ParseEnd(b.EndDate)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate %q", b.EndDate)
	}
	return start, end, nil
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			items []Item
			err   error
		)
		if name := r.URL.Query().Get("name"); name != "" {
			items, err = store.Filter(r.Context(), Filter{Name: name})
		} else {
			items, err = store.List(r.Context())
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleActive(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := time.Now()
		if raw := r.URL.Query().Get("date"); raw != "" {
			var ok bool
			if at, ok = timeparse.Parse(raw); !ok {
				http.Error(w, "invalid date", http.StatusBadRequest)
				return
			}
		}
		var category Category
		if raw := r.URL.Query().Get("category"); raw != "" {
			c, err := ParseCategory(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			category = c
		}

		items, err := store.Active(r.Context(), at, category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleFilter(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := Filter{
			Name:       q.Get("name"),
			Category:   Category(q.Get("category")),
			ActiveOnly: q.Get("activeOnly") == "true",
		}
		f.Start, _ = timeparse.Parse(q.Get("startDate"))
		f.End, _ = timeparse.ParseEnd(q.Get("endDate"))

		items, err := store.Filter(r.Context(), f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handlePriceHistory(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		history, err := store.PriceHistory(r.Context(), name, Category(r.URL.Query().Get("category")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func handleSearch(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		matches, err := store.Search(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if matches == nil {
			matches = []Match{}
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		it, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body itemBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req := body.CreateRequest
		if len(req.Categories) == 0 && body.Category != "" {
			req.Categories = []Category{body.Category}
		}
		var err error
		if req.StartDate, req.EndDate, err = body.window(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		it, err := store.Create(r.Context(), req, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, it)
	}
}

func handleUpdate(store *Store, auditStore *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var body itemBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req := UpdateRequest{
			Name:            body.Name,
			Description:     body.Description,
			Quantity:        body.Quantity,
			Unit:            body.Unit,
			Price:           body.Price,
			AvailableStatus: body.AvailableStatus,
		}
		var err error
		if req.StartDate, req.EndDate, err = body.window(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		before, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		it, priceChanged, err := store.Update(r.Context(), id, req, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}

		if priceChanged {
			if err := auditStore.Log(r.Context(), audit.Entry{
				ActorID:       p.EmployeeID,
				Action:        audit.ActionPriceChanged,
				Scope:         audit.ScopeMenuItem,
				ScopeID:       it.MenuID,
				Summary:       fmt.Sprintf("%s (%s) repriced, replacing %s", it.Name, it.Category, before.MenuID),
				PreviousValue: formatPrice(before.Price),
				NewValue:      formatPrice(it.Price),
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleAvailability(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		available, err := strconv.ParseBool(r.URL.Query().Get("available"))
		if err != nil {
			http.Error(w, "available must be true or false", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		it, err := store.SetAvailability(r.Context(), id, available, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleDelete(store *Store, auditStore *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		it, err := store.Delete(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		if err := auditStore.Log(r.Context(), audit.Entry{
			ActorID:       p.EmployeeID,
			Action:        audit.ActionMenuItemDeleted,
			Scope:         audit.ScopeMenuItem,
			ScopeID:       it.MenuID,
			Summary:       fmt.Sprintf("%s (%s) deleted", it.Name, it.Category),
			PreviousValue: formatPrice(it.Price),
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNoCategory), errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrNameRequired):
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
