package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/orders"
)

// RegisterRoutes mounts notification endpoints under /api/notifications.
func RegisterRoutes(r chi.Router, dispatcher *Dispatcher, hub *Hub, tokens *auth.Tokens) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens))

		r.Get("/my", handleMine(dispatcher))
		r.Get("/unread-count", handleUnreadCount(dispatcher))
		r.Patch("/{id}/read", handleMarkRead(dispatcher))
		r.Get("/ws", handleWS(hub))

		r.With(auth.RequireAdmin).Post("/", handleSend(dispatcher))
	})
}

func handleSend(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		req.SenderID = p.EmployeeID
		sent, err := d.Send(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sent)
	}
}

func handleMine(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		list, err := d.Mine(r.Context(), p.EmployeeID, p.IsAdmin())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleUnreadCount(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		n, err := d.store.UnreadCount(r.Context(), p.EmployeeID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"unread": n})
	}
}

func handleMarkRead(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		p, _ := auth.PrincipalFrom(r.Context())
		n, err := d.MarkRead(r.Context(), id, p.EmployeeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// handleWS streams the caller's notifications, or the order board for
// admins asking for ?topic=board.
func handleWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		topic := p.EmployeeID
		if r.URL.Query().Get("topic") == orders.BoardTopic {
			if !p.IsAdmin() {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			topic = orders.BoardTopic
		}
		hub.ServeWS(w, r, topic)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRecipientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrContentRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrNoRecipients):
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
