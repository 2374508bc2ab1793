package transactions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid transaction status")
	ErrEmptyText     = errors.New("text is required")
	ErrNotOwner      = errors.New("transaction belongs to another employee")
)

// Status is the billing state of a transaction.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusModified  Status = "MODIFIED"
	StatusGenerated Status = "GENERATED"
	StatusPaid      Status = "PAID"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusModified, StatusGenerated, StatusPaid}

// ParseStatus accepts any letter case.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// NextStatusOptions returns the statuses an admin may pick from current.
func NextStatusOptions(current Status) []Status {
	switch current {
	case StatusActive:
		return []Status{StatusModified, StatusInactive}
	case StatusModified:
		return []Status{StatusActive, StatusInactive}
	case StatusInactive:
		return []Status{StatusActive, StatusModified}
	}
	return []Status{StatusActive, StatusModified, StatusInactive}
}

// Transaction is the billing record of one order.
type Transaction struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transactionId"`
	OrderID       int64     `json:"orderId"`
	EmployeeID    string    `json:"employeeId"`
	EmployeeName  string    `json:"employeeName"`
	MenuID        string    `json:"menuId"`
	MenuItemName  string    `json:"menuItemName"`
	Category      string    `json:"category"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unitPrice"`
	TotalPrice    float64   `json:"totalPrice"`
	Status        Status    `json:"status"`
	Remarks       string    `json:"remarks"`
	Responses     string    `json:"responses"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
	UpdatedBy     string    `json:"updatedBy,omitempty"`
}

// Filter narrows List. Month and Year use the server's local calendar;
// zero means any.
type Filter struct {
	Search     string
	EmployeeID string
	Status     Status
	Month      int
	Year       int
}

// Count tallies transactions per status. Every status is present.
func Count(txns []Transaction) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		out[st] = 0
	}
	for _, t := range txns {
		out[t.Status]++
	}
	return out
}

// Total sums TotalPrice over the transactions in any of statuses.
func Total(txns []Transaction, statuses ...Status) float64 {
	var sum float64
	for _, t := range txns {
		for _, st := range statuses {
			if t.Status == st {
				sum += t.TotalPrice
				break
			}
		}
	}
	return sum
}
