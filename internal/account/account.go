// Package account serves sign-in, sign-up and password reset.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/mail"
)

var (
	ErrInvalidCredentials = errors.New("Invalid employee ID or password")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrNoAccount          = errors.New("No account found with this mobile number")
	ErrMissingFields      = errors.New("missing required fields")
)

// SignInResponse is returned on successful sign-in.
type SignInResponse struct {
	EmployeeID   string `json:"employeeId"`
	Token        string `json:"token"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Department   string `json:"department"`
	CustomerType string `json:"customerType"`
	Active       bool   `json:"active"`
	Admin        bool   `json:"admin"`
	SuperAdmin   bool   `json:"superAdmin"`
}

// SignUpRequest registers a new employee.
type SignUpRequest struct {
	EmployeeID      string `json:"employeeId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Department      string `json:"department"`
	CustomerType    string `json:"customerType"`
	MobileNumber    string `json:"mobileNumber"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Active          *bool  `json:"active"`
}

// ResetRequest completes a password reset.
type ResetRequest struct {
	MobileNumber string `json:"mobileNumber"`
	OTP          string `json:"otp"`
	NewPassword  string `json:"newPassword"`
	Email        string `json:"email"`
}

// Service implements the account flows.
type Service struct {
	employees *employees.Store
	tokens    *auth.Tokens
	mail      mail.Sender
	otpTTL    time.Duration
	log       *slog.Logger
	now       func() time.Time
	newOTP    func() (string, error)
}

func NewService(store *employees.Store, tokens *auth.Tokens, sender mail.Sender, otpTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		employees: store,
		tokens:    tokens,
		mail:      sender,
		otpTTL:    otpTTL,
		log:       log,
		now:       time.Now,
		newOTP:    generateOTP,
	}
}

// SignIn verifies credentials and issues a token. Inactive accounts are
// rejected with the same error as a wrong password.
func (s *Service) SignIn(ctx context.Context, employeeID, password string) (*SignInResponse, error) {
	log := s.log.With(sl.Op("account.SignIn"), slog.String("employee_id", employeeID))

	hash, err := s.employees.PasswordHash(ctx, employeeID)
	if errors.Is(err, employees.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(hash, password) {
		log.Info("sign-in rejected: wrong password")
		return nil, ErrInvalidCredentials
	}

	e, err := s.employees.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		log.Info("sign-in rejected: account inactive")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Principal{
		EmployeeID: e.EmployeeID,
		Admin:      e.IsAdmin,
		SuperAdmin: e.IsSuperAdmin,
	})
	if err != nil {
		return nil, err
	}

	return &SignInResponse{
		EmployeeID:   e.EmployeeID,
		Token:        token,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Department:   e.Department,
		CustomerType: e.CustomerType,
		Active:       e.IsActive,
		Admin:        e.IsAdmin,
		SuperAdmin:   e.IsSuperAdmin,
	}, nil
}

// SignUp registers a regular, non-admin employee.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*employees.Employee, error) {
	if strings.TrimSpace(req.EmployeeID) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: employeeId and password", ErrMissingFields)
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	e := &employees.Employee{
		EmployeeID:   strings.TrimSpace(req.EmployeeID),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Department:   req.Department,
		CustomerType: req.CustomerType,
		MobileNumber: req.MobileNumber,
		Email:        req.Email,
		IsActive:     req.Active == nil || *req.Active,
	}
	if err := s.employees.Create(ctx, e, hash); err != nil {
		return nil, err
	}
	s.log.Info("employee registered", sl.Op("account.SignUp"), slog.String("employee_id", e.EmployeeID))
	return e, nil
}

// ForgotPassword stores a fresh one-time code for the account with the
// given mobile number and mails it to email, or to the address on file
// when email is empty.
func (s *Service) ForgotPassword(ctx context.Context, mobile, email string) error {
	otp, err := s.newOTP()
	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}
	e, err := s.employees.SetResetOTP(ctx, mobile, otp, s.now().Add(s.otpTTL))
	if errors.Is(err, employees.ErrNotFound) {
		return ErrNoAccount
	}
	if err != nil {
		return err
	}

	to := email
	if to == "" {
		to = e.Email
	}
	if to == "" {
		return fmt.Errorf("%w: email", ErrMissingFields)
	}
	if err := s.mail.Send(ctx, mail.OTPMessage(to, otp)); err != nil {
		return err
	}
	return nil
}

// ResetPassword checks the one-time code and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetRequest) error {
	if req.NewPassword == "" {
		return fmt.Errorf("%w: newPassword", ErrMissingFields)
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	now := s.now()
	e, err := s.employees.ResetPassword(ctx, req.MobileNumber, req.OTP, hash, now)
	if errors.Is(err, employees.ErrNotFound) {
		return ErrNoAccount
	}
	if err != nil {
		return err
	}

	to := req.Email
	if to == "" {
		to = e.Email
	}
	if to != "" {
		if err := s.mail.Send(ctx, mail.PasswordResetMessage(to, now)); err != nil {
			// The password is already changed; a lost confirmation is not fatal.
			s.log.Warn("sending reset confirmation failed", sl.Op("account.ResetPassword"), sl.Err(err))
		}
	}
	return nil
}

// generateOTP returns a random six-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
