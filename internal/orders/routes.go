package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/lib/timeparse"
	"github.com/ziadkadry99/canteen/internal/menu"
)

// RegisterRoutes mounts the order API under /api/orders.
func RegisterRoutes(r chi.Router, svc *Service, tokens *auth.Tokens) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Post("/", handlePlace(svc))
		r.Get("/employee/{employeeId}", handleByEmployee(svc))
		r.Get("/{id}", handleGet(svc))
		r.Delete("/{id}", handleCancel(svc))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", handleList(svc))
			r.Get("/history", handleHistory(svc))
			r.Get("/history.csv", handleHistoryCSV(svc))
			r.Get("/board", handleBoard(svc))
			r.Get("/search", handleSearch(svc))
			r.Get("/{id}/employee-details", handleEmployeeDetails(svc))
			r.Get("/{id}/menu-item-details", handleMenuItemDetails(svc))
			r.Get("/{id}/price-history", handlePriceHistory(svc))
			r.Patch("/{id}/status", handleUpdateStatus(svc))
		})
	})
}

type placeBody struct {
	EmployeeID           string `json:"employeeId"`
	MenuID               string `json:"menuId"`
	Quantity             int    `json:"quantity"`
	Remarks              string `json:"remarks"`
	ExpectedDeliveryDate string `json:"expectedDeliveryDate"`
	Status               Status `json:"status"`
}

func handlePlace(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body placeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		p, _ := auth.PrincipalFrom(r.Context())
		if body.EmployeeID == "" {
			body.EmployeeID = p.EmployeeID
		}
		if !p.IsAdmin() {
			if body.EmployeeID != p.EmployeeID {
				http.Error(w, "cannot order on behalf of another employee", http.StatusForbidden)
				return
			}
			if body.Status != "" && !strings.EqualFold(string(body.Status), string(StatusPending)) {
				http.Error(w, "only admins can place delivered orders", http.StatusForbidden)
				return
			}
		}

		req := PlaceRequest{
			EmployeeID: body.EmployeeID,
			MenuID:     body.MenuID,
			Quantity:   body.Quantity,
			Remarks:    body.Remarks,
			Status:     body.Status,
		}
		if body.ExpectedDeliveryDate != "" {
			d, ok := timeparse.Date(body.ExpectedDeliveryDate)
			if !ok {
				http.Error(w, "invalid expectedDeliveryDate", http.StatusBadRequest)
				return
			}
			req.ExpectedDeliveryDate = d
		}

		o, err := svc.Place(r.Context(), req, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	}
}

func handleByEmployee(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID := chi.URLParam(r, "employeeId")
		if p, _ := auth.PrincipalFrom(r.Context()); !p.IsAdmin() && p.EmployeeID != employeeID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		status, ok := queryStatus(w, r)
		if !ok {
			return
		}
		list, err := svc.store.ListByEmployee(r.Context(), employeeID, status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))
	}
}

func handleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		o, err := svc.store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if p, _ := auth.PrincipalFrom(r.Context()); !p.IsAdmin() && p.EmployeeID != o.EmployeeID {
			http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func handleCancel(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		if _, err := svc.Cancel(r.Context(), id, p.EmployeeID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := queryStatus(w, r)
		if !ok {
			return
		}
		f := ListFilter{Status: status}
		f.Start, _ = timeparse.Date(r.URL.Query().Get("startDate"))
		f.End, _ = timeparse.Date(r.URL.Query().Get("endDate"))

		list, err := svc.store.List(r.Context(), f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))
	}
}

func historyFilter(r *http.Request) HistoryFilter {
	q := r.URL.Query()
	f := HistoryFilter{Department: q.Get("department"), Category: menu.Category(q.Get("category"))}
	f.Start, _ = timeparse.Date(q.Get("startDate"))
	f.End, _ = timeparse.Date(q.Get("endDate"))
	return f
}

func handleHistory(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.store.History(r.Context(), historyFilter(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))
	}
}

func handleHistoryCSV(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.store.History(r.Context(), historyFilter(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="order-history.csv"`)
		if err := WriteCSV(w, list); err != nil {
			svc.log.Error("failed to write order history csv", sl.Err(err))
		}
	}
}

// boardResponse is the kitchen board: filtered active orders plus the
// summary over every order.
type boardResponse struct {
	Orders  []Order `json:"orders"`
	Summary Summary `json:"summary"`
}

func handleBoard(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		all, err := svc.store.List(r.Context(), ListFilter{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		c := Criteria{ActiveOnly: true, Search: q.Get("search"), Department: q.Get("department")}
		if st := q.Get("status"); st != "" && st != "all" {
			c.Status = Status(st)
		}
		if dept := q.Get("department"); dept == "all" {
			c.Department = ""
		}
		active := Filter(all, c)

		key := q.Get("sort")
		if key == "" {
			key = "priority"
		}
		Sort(active, key, q.Get("direction") == "desc")

		writeJSON(w, http.StatusOK, boardResponse{Orders: active, Summary: Summarize(all, time.Now())})
	}
}

func handleSearch(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		status, ok := queryStatus(w, r)
		if !ok {
			return
		}
		list, err := svc.store.Search(r.Context(), SearchParams{
			Term:       q.Get("term"),
			EmployeeID: q.Get("employeeId"),
			MenuID:     q.Get("menuId"),
			Status:     status,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))
	}
}

func handleEmployeeDetails(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		e, err := svc.EmployeeDetails(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleMenuItemDetails(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		it, err := svc.MenuItemDetails(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handlePriceHistory(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		history, err := svc.PriceHistory(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func handleUpdateStatus(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		var remarks *string
		if q.Has("remarks") {
			v := q.Get("remarks")
			remarks = &v
		}
		p, _ := auth.PrincipalFrom(r.Context())
		o, err := svc.UpdateStatus(r.Context(), id, Status(q.Get("status")), remarks, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func queryStatus(w http.ResponseWriter, r *http.Request) (Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	st, err := ParseStatus(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return st, true
}

func orEmpty(list []Order) []Order {
	if list == nil {
		return []Order{}
	}
	return list
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
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEmployeeNotFound), errors.Is(err, ErrMenuItemNotFound),
		errors.Is(err, employees.ErrNotFound), errors.Is(err, menu.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrUnavailable), errors.Is(err, ErrCancelWindowExpired):
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
