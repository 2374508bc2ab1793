package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/lib/timeparse"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// RegisterRoutes mounts the audit trail under /api/audit. Reading needs an
// admin, purging a super-admin.
func RegisterRoutes(r chi.Router, store *Store, tokens *auth.Tokens) {
	r.Route("/api/audit", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens), auth.RequireAdmin)
		r.Get("/", handleQuery(store))
		r.Get("/{id}", handleGetByID(store))
		r.Get("/{scope}/{scopeId}", handleHistory(store))
		r.With(auth.RequireSuperAdmin).Delete("/", handlePurge(store))
	})
}

// parseFilter reads actor, scope, scopeId, action, since, until, limit and
// offset from the query string.
func parseFilter(r *http.Request) (QueryFilter, error) {
	q := r.URL.Query()
	f := QueryFilter{
		ActorID: q.Get("actor"),
		ScopeID: q.Get("scopeId"),
		Action:  Action(q.Get("action")),
		Limit:   defaultLimit,
	}
	if v := q.Get("scope"); v != "" {
		sc, err := ParseScope(v)
		if err != nil {
			return f, err
		}
		f.Scope = sc
	}
	if v := q.Get("since"); v != "" {
		t, ok := timeparse.Parse(v)
		if !ok {
			return f, fmt.Errorf("invalid since %q", v)
		}
		f.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, ok := timeparse.ParseEnd(v)
		if !ok {
			return f, fmt.Errorf("invalid until %q", v)
		}
		f.Until = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = min(n, maxLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = n
	}
	return f, nil
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries, err := store.Query(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// handleHistory lists everything recorded against one order, bill,
// transaction or other record.
func handleHistory(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := ParseScope(chi.URLParam(r, "scope"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		// Bill keys contain a slash and arrive escaped.
		scopeID, err := url.PathUnescape(chi.URLParam(r, "scopeId"))
		if err != nil {
			http.Error(w, "invalid scope id", http.StatusBadRequest)
			return
		}
		entries, err := store.Query(r.Context(), QueryFilter{
			Scope:   scope,
			ScopeID: scopeID,
			Limit:   maxLimit,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// handlePurge deletes entries older than ?before=.
func handlePurge(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		before, ok := timeparse.Parse(r.URL.Query().Get("before"))
		if !ok {
			http.Error(w, "before is required", http.StatusBadRequest)
			return
		}
		n, err := store.DeleteBefore(r.Context(), before)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
