package employees

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/lib/timeparse"
)

// RegisterRoutes mounts employee management under /api/employee and /api/admin.
func RegisterRoutes(r chi.Router, store *Store, auditStore *audit.Store, tokens *auth.Tokens) {
	r.Route("/api/employee", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens), auth.RequireAdmin)
		r.Post("/", handleCreate(store))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSuperAdmin)
			r.Get("/employees", handleListAll(store))
			r.Post("/promote", handleSetAdmin(store, auditStore, true))
			r.Post("/demote", handleSetAdmin(store, auditStore, false))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/customers", handleFilter(store))
			r.Get("/customers/filter", handleFilter(store))
			r.Post("/customers", handleCreate(store))
			r.Get("/customers/{id}", handleGet(store))
			r.Put("/customers/{id}", handleUpdate(store))
			r.Patch("/customers/{id}/status", handleSetStatus(store, auditStore))
		})
	})
}

type createRequest struct {
	Employee
	Active   *bool  `json:"active"`
	Password string `json:"password"`
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.EmployeeID == "" || req.Password == "" {
			http.Error(w, "employeeId and password are required", http.StatusBadRequest)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		e := req.Employee
		e.IsActive = req.Active == nil || *req.Active
		e.IsAdmin, e.IsSuperAdmin = false, false
		if err := store.Create(r.Context(), &e, hash); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, e)
	}
}

func handleListAll(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), Filter{IncludeSuperAdmins: true})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSetAdmin(store *Store, auditStore *audit.Store, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmployeeID string `json:"employeeId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EmployeeID == "" {
			http.Error(w, "employeeId is required", http.StatusBadRequest)
			return
		}

		e, err := store.SetAdmin(r.Context(), req.EmployeeID, admin)
		if err != nil {
			writeError(w, err)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		entry := audit.Entry{
			ActorID:       p.EmployeeID,
			Action:        audit.ActionEmployeeDemoted,
			Scope:         audit.ScopeEmployee,
			ScopeID:       e.EmployeeID,
			Summary:       fmt.Sprintf("%s demoted to regular employee", e.FullName()),
			PreviousValue: "admin",
			NewValue:      "employee",
		}
		msg := "Admin demoted to regular employee"
		if admin {
			entry.Action = audit.ActionEmployeePromoted
			entry.Summary = fmt.Sprintf("%s promoted to admin", e.FullName())
			entry.PreviousValue, entry.NewValue = "employee", "admin"
			msg = "Employee promoted to admin"
		}
		if err := auditStore.Log(r.Context(), entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	}
}

func handleFilter(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := Filter{
			Search:       q.Get("search"),
			CustomerType: q.Get("customerType"),
			RangeType:    RangeType(q.Get("rangeType")),
		}
		if v := q.Get("isActive"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, "isActive must be true or false", http.StatusBadRequest)
				return
			}
			filter.IsActive = &b
		}
		filter.Start, _ = timeparse.Parse(q.Get("startDate"))
		filter.End, _ = timeparse.ParseEnd(q.Get("endDate"))

		list, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		e, err := store.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleUpdate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var hash string
		if req.Password != "" {
			var err error
			if hash, err = auth.HashPassword(req.Password); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		e, err := store.Update(r.Context(), id, req, hash)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleSetStatus(store *Store, auditStore *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		active, err := strconv.ParseBool(r.URL.Query().Get("active"))
		if err != nil {
			http.Error(w, "active must be true or false", http.StatusBadRequest)
			return
		}

		before, err := store.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		e, err := store.SetActive(r.Context(), id, active)
		if err != nil {
			writeError(w, err)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		if err := auditStore.Log(r.Context(), audit.Entry{
			ActorID:       p.EmployeeID,
			Action:        audit.ActionCustomerStatusChanged,
			Scope:         audit.ScopeEmployee,
			ScopeID:       e.EmployeeID,
			Summary:       fmt.Sprintf("%s marked active=%t", e.FullName(), active),
			PreviousValue: strconv.FormatBool(before.IsActive),
			NewValue:      strconv.FormatBool(active),
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, e)
	}
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
	case errors.Is(err, ErrDuplicateEmployee):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
