package feedback

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/employees"
)

// RegisterRoutes mounts feedback endpoints under /api/feedback.
func RegisterRoutes(r chi.Router, svc *Service, tokens *auth.Tokens) {
	r.Route("/api/feedback", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Post("/suggestions", handleSubmit(svc, TypeSuggestion))
		r.Post("/complaints", handleSubmit(svc, TypeComplaint))
		r.Get("/my", handleMine(svc))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", handleList(svc))
			r.Post("/{id}/respond", handleRespond(svc))
		})
	})
}

type contentRequest struct {
	Content  string `json:"content"`
	Response string `json:"response"`
}

// readText accepts either a JSON object or a plain text body.
func readText(r *http.Request) (contentRequest, error) {
	var req contentRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return req, err
	}
	if strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
		err = json.Unmarshal(body, &req)
		return req, err
	}
	req.Content = string(body)
	req.Response = string(body)
	return req, nil
}

func handleSubmit(svc *Service, t Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readText(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		e, err := svc.Submit(r.Context(), t, p.EmployeeID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleMine(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		list, err := svc.Mine(r.Context(), p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		t, err := ParseType(q.Get("type"))
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := ParseStatus(q.Get("status"))
		if err != nil {
			writeError(w, err)
			return
		}
		list, err := svc.List(r.Context(), t, st)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleRespond(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		req, err := readText(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		e, err := svc.Respond(r.Context(), id, req.Response, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, employees.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrContentRequired), errors.Is(err, ErrResponseRequired),
		errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidStatus):
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
