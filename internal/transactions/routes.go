package transactions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
)

// RegisterRoutes mounts the transaction API under /api/transactions.
func RegisterRoutes(r chi.Router, svc *Service, tokens *auth.Tokens) {
	r.Route("/api/transactions", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Get("/billable", handleBillable(svc))
		r.Get("/employee/{employeeId}", handleByEmployee(svc))
		r.Get("/{id}", handleGet(svc))
		r.Get("/{id}/conversation", handleConversation(svc))
		r.Post("/remark", handleRemark(svc))
		r.Post("/payment-request", handlePaymentRequest(svc))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", handleList(svc))
			r.Get("/employees", handleEmployees(svc))
			r.Get("/summary", handleSummary(svc))
			r.Get("/menu/{menuId}", handleByMenu(svc))
			r.Post("/response", handleResponse(svc))
			r.Post("/status", handleStatus(svc))
			r.Post("/create-transactions", handleBackfill(svc))
		})
	})
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := Filter{Search: q.Get("search"), EmployeeID: q.Get("employeeId")}
		if raw := q.Get("status"); raw != "" && !strings.EqualFold(raw, "all") {
			st, err := ParseStatus(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.Status = st
		}
		var ok bool
		if f.Month, f.Year, ok = monthYear(w, r); !ok {
			return
		}
		list, err := svc.store.List(r.Context(), f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleBillable(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, ok := selfOrAdmin(w, r, r.URL.Query().Get("employeeId"))
		if !ok {
			return
		}
		month, year, ok := monthYear(w, r)
		if !ok {
			return
		}
		list, err := svc.store.Billable(r.Context(), employeeID, month, year)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleEmployees(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Employees(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSummary(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.store.CountByStatus(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func handleByMenu(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.store.ByMenu(r.Context(), chi.URLParam(r, "menuId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleByEmployee(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, ok := selfOrAdmin(w, r, chi.URLParam(r, "employeeId"))
		if !ok {
			return
		}
		list, err := svc.store.ByEmployee(r.Context(), employeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type detail struct {
	*Transaction
	NextStatusOptions []Status `json:"nextStatusOptions"`
}

func handleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := visible(svc, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, detail{Transaction: t, NextStatusOptions: NextStatusOptions(t.Status)})
	}
}

func handleConversation(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := visible(svc, w, r)
		if !ok {
			return
		}
		msgs := ParseConversation(t.Remarks, t.Responses)
		if msgs == nil {
			msgs = []Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// visible loads the transaction in the path and hides it from employees
// other than its owner.
func visible(svc *Service, w http.ResponseWriter, r *http.Request) (*Transaction, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	t, err := svc.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	p, _ := auth.PrincipalFrom(r.Context())
	if !p.IsAdmin() && p.EmployeeID != t.EmployeeID {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return nil, false
	}
	return t, true
}

func handleRemark(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := formID(w, r)
		if !ok {
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		if !p.IsAdmin() {
			t, err := svc.store.Get(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			if t.EmployeeID != p.EmployeeID {
				writeError(w, ErrNotOwner)
				return
			}
		}
		t, err := svc.AddRemark(r.Context(), id, r.FormValue("remark"), p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleResponse(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := formID(w, r)
		if !ok {
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		t, err := svc.AddResponse(r.Context(), id, r.FormValue("response"), p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleStatus(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := formID(w, r)
		if !ok {
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		t, err := svc.UpdateStatus(r.Context(), id, Status(r.FormValue("status")), p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleBackfill(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delivered, err := svc.CreateForDeliveredOrders(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		cancelled, err := svc.CreateForCancelledOrders(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered, "cancelled": cancelled})
	}
}

func handlePaymentRequest(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, ok := selfOrAdmin(w, r, r.FormValue("employeeId"))
		if !ok {
			return
		}
		month, year, ok := monthYear(w, r)
		if !ok {
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		n, err := svc.RequestPayment(r.Context(), employeeID, month, year, p.EmployeeID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": n})
	}
}

// selfOrAdmin resolves the employee a request is about. Employees may only
// ask about themselves; an empty id means the caller.
func selfOrAdmin(w http.ResponseWriter, r *http.Request, employeeID string) (string, bool) {
	p, _ := auth.PrincipalFrom(r.Context())
	if employeeID == "" {
		employeeID = p.EmployeeID
	}
	if !p.IsAdmin() && employeeID != p.EmployeeID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return employeeID, true
}

func monthYear(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	month, err := intParam(r, "month")
	if err != nil || month < 0 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return 0, 0, false
	}
	year, err := intParam(r, "year")
	if err != nil || year < 0 {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return 0, 0, false
	}
	return month, year, true
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func formID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.FormValue("transactionId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transactionId", http.StatusBadRequest)
		return 0, false
	}
	return id, true
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
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
