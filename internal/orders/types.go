package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/menu"
)

var (
	ErrNotFound            = errors.New("order not found")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrUnavailable         = errors.New("menu item is not available")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotOwner            = errors.New("not authorized to cancel this order")
	ErrCancelWindowExpired = errors.New("cancellation window expired")
)

// Status is an order's position in the kitchen workflow.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Active reports whether the kitchen still has work to do on the order.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusReady
}

// Priority orders statuses on the kitchen board, most urgent first.
func (s Status) Priority() int {
	switch s {
	case StatusPending:
		return 1
	case StatusPreparing:
		return 2
	case StatusReady:
		return 3
	case StatusDelivered:
		return 4
	case StatusCancelled:
		return 5
	}
	return 0
}

var next = map[Status]Status{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
}

// CanTransition reports whether an order may move from one status to
// another. Staying on the same status is always allowed.
func CanTransition(from, to Status) bool {
	switch {
	case from == to:
		return true
	case from.Terminal():
		return false
	case to == StatusCancelled:
		return true
	}
	return next[from] == to
}

// Order is an employee's request for a quantity of one menu item, with the
// price captured when it was placed.
type Order struct {
	ID                   int64         `json:"id"`
	EmployeeID           string        `json:"employeeId"`
	EmployeeName         string        `json:"employeeName"`
	Department           string        `json:"department"`
	MenuID               string        `json:"menuId"`
	ItemName             string        `json:"itemName"`
	Category             menu.Category `json:"category"`
	Quantity             int           `json:"quantity"`
	PriceAtOrder         float64       `json:"priceAtOrder"`
	TotalPrice           float64       `json:"totalPrice"`
	OrderTime            time.Time     `json:"orderTime"`
	ExpectedDeliveryDate time.Time     `json:"expectedDeliveryDate"`
	Status               Status        `json:"status"`
	Remarks              string        `json:"remarks"`
	CreatedBy            string        `json:"createdBy"`
	UpdatedAt            time.Time     `json:"updatedAt,omitzero"`

	EmployeeRef int64 `json:"-"`
	MenuItemRef int64 `json:"-"`
}

// PlaceRequest is an order as submitted. Zero ExpectedDeliveryDate means
// today; empty Status means PENDING.
type PlaceRequest struct {
	EmployeeID           string
	MenuID               string
	Quantity             int
	Remarks              string
	ExpectedDeliveryDate time.Time
	Status               Status
}

// ListFilter narrows Store.List. Start and End bound the expected delivery
// date, inclusive.
type ListFilter struct {
	Status Status
	Start  time.Time
	End    time.Time
}

// HistoryFilter narrows Store.History to finished orders.
type HistoryFilter struct {
	Start      time.Time
	End        time.Time
	Department string
	Category   menu.Category
}

// SearchParams drives Store.Search. A non-empty Term overrides the other
// fields.
type SearchParams struct {
	Term       string
	EmployeeID string
	MenuID     string
	Status     Status
}
