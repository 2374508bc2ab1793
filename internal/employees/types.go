package employees

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("employee not found")
	ErrDuplicateEmployee = errors.New("employee ID already exists")
	ErrInvalidOTP        = errors.New("invalid OTP")
	ErrOTPExpired        = errors.New("OTP expired")
)

// Employee is a canteen customer. Admin flags grant access to the
// management endpoints.
type Employee struct {
	ID           int64     `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Department   string    `json:"department"`
	CustomerType string    `json:"customerType"`
	MobileNumber string    `json:"mobileNumber"`
	Email        string    `json:"email,omitempty"`
	IsActive     bool      `json:"active"`
	IsAdmin      bool      `json:"admin"`
	IsSuperAdmin bool      `json:"superAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// NormalizeMobile prefixes numbers with the +91 country code.
func NormalizeMobile(n string) string {
	n = strings.TrimSpace(n)
	if n == "" || strings.HasPrefix(n, "+91") {
		return n
	}
	return "+91" + n
}

// RangeType selects a created-at window for List.
type RangeType string

const (
	RangeToday  RangeType = "today"
	RangeWeek   RangeType = "week"
	RangeMonth  RangeType = "month"
	RangeYear   RangeType = "year"
	RangeCustom RangeType = "custom"
)

// Filter controls which employees are returned by List.
type Filter struct {
	Search             string
	IsActive           *bool
	CustomerType       string
	RangeType          RangeType
	Start              time.Time
	End                time.Time
	IncludeSuperAdmins bool
}

// UpdateRequest carries the editable fields of an employee. An empty
// Password leaves the current one in place.
type UpdateRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Department   string `json:"department"`
	MobileNumber string `json:"mobileNumber"`
	CustomerType string `json:"customerType"`
	Active       bool   `json:"active"`
	Password     string `json:"password,omitempty"`
}

// IDName pairs a business id with a display name.
type IDName struct {
	EmployeeID string `json:"employeeId"`
	FullName   string `json:"fullName"`
}
