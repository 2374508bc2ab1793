package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/canteen/internal/employees"
)

// RegisterRoutes mounts the public auth endpoints under /api/auth.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signin", handleSignIn(svc))
		r.Post("/signup", handleSignUp(svc))
		r.Post("/forgot-password", handleForgotPassword(svc))
		r.Post("/reset-password", handleResetPassword(svc))
	})
}

func handleSignIn(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmployeeID string `json:"employeeId"`
			Password   string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		resp, err := svc.SignIn(r.Context(), req.EmployeeID, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSignUp(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if _, err := svc.SignUp(r.Context(), req); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Employee registered successfully"})
	}
}

func handleForgotPassword(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mobile := r.FormValue("mobileNumber")
		if mobile == "" {
			http.Error(w, "mobileNumber is required", http.StatusBadRequest)
			return
		}

		if err := svc.ForgotPassword(r.Context(), mobile, r.FormValue("email")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to registered email"})
	}
}

func handleResetPassword(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := svc.ResetPassword(r.Context(), req); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrNoAccount),
		errors.Is(err, ErrMissingFields),
		errors.Is(err, employees.ErrDuplicateEmployee),
		errors.Is(err, employees.ErrInvalidOTP),
		errors.Is(err, employees.ErrOTPExpired):
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
