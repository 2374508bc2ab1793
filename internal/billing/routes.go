package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
)

// RegisterRoutes mounts the billing API under /api/bills.
func RegisterRoutes(r chi.Router, svc *Service, tokens *auth.Tokens) {
	r.Route("/api/bills", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Get("/preview", handlePreview(svc))
		r.Get("/check", handleCheck(svc))
		r.Get("/statement", handleStatement(svc))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/generate", handleGenerate(svc))
			r.Post("/send", handleSend(svc))
		})
	})
}

type billRequest struct {
	EmployeeID string `json:"employeeId"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
}

func handlePreview(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := queryRequest(w, r)
		if !ok {
			return
		}
		b, err := svc.Preview(r.Context(), req.EmployeeID, req.Month, req.Year)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleCheck(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := queryRequest(w, r)
		if !ok {
			return
		}
		generated, err := svc.HasGenerated(r.Context(), req.EmployeeID, req.Month, req.Year)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"generated": generated})
	}
}

func handleStatement(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := queryRequest(w, r)
		if !ok {
			return
		}
		b, err := svc.Preview(r.Context(), req.EmployeeID, req.Month, req.Year)
		if err != nil {
			writeError(w, err)
			return
		}
		_, html, err := Render(*b)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}
}

func handleGenerate(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req billRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		b, err := svc.Generate(r.Context(), req.EmployeeID, req.Month, req.Year, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleSend(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req billRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		res, err := svc.Send(r.Context(), req.EmployeeID, req.Month, req.Year, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// queryRequest reads employeeId, month and year from the query. Employees
// may only look at their own bills; a missing employeeId means the caller.
func queryRequest(w http.ResponseWriter, r *http.Request) (billRequest, bool) {
	q := r.URL.Query()
	p, _ := auth.PrincipalFrom(r.Context())
	req := billRequest{EmployeeID: q.Get("employeeId")}
	if req.EmployeeID == "" {
		req.EmployeeID = p.EmployeeID
	}
	if !p.IsAdmin() && req.EmployeeID != p.EmployeeID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return req, false
	}
	var err error
	for name, dst := range map[string]*int{"month": &req.Month, "year": &req.Year} {
		if raw := q.Get(name); raw != "" {
			if *dst, err = strconv.Atoi(raw); err != nil {
				http.Error(w, "invalid "+name, http.StatusBadRequest)
				return req, false
			}
		}
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidPeriod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnresolvedRemarks):
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
