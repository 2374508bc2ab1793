package audit

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("audit entry not found")
	ErrInvalidScope = errors.New("invalid audit scope")
)

// Action describes what was done.
type Action string

const (
	ActionOrderPlaced              Action = "order_placed"
	ActionOrderStatusChanged       Action = "order_status_changed"
	ActionOrderCancelled           Action = "order_cancelled"
	ActionPriceChanged             Action = "price_changed"
	ActionMenuItemDeleted          Action = "menu_item_deleted"
	ActionWeeklyMenuCopied         Action = "weekly_menu_copied"
	ActionEmployeePromoted         Action = "employee_promoted"
	ActionEmployeeDemoted          Action = "employee_demoted"
	ActionCustomerStatusChanged    Action = "customer_status_changed"
	ActionTransactionStatusChanged Action = "transaction_status_changed"
	ActionPaymentRequested         Action = "payment_requested"
	ActionBillGenerated            Action = "bill_generated"
	ActionBillSent                 Action = "bill_sent"
)

// Scope names the kind of record an action touched.
type Scope string

const (
	ScopeEmployee    Scope = "employee"
	ScopeMenuItem    Scope = "menu_item"
	ScopeWeeklyMenu  Scope = "weekly_menu"
	ScopeOrder       Scope = "order"
	ScopeTransaction Scope = "transaction"
	ScopeBill        Scope = "bill"
)

// Scopes lists every scope an entry may carry.
var Scopes = []Scope{ScopeEmployee, ScopeMenuItem, ScopeWeeklyMenu, ScopeOrder, ScopeTransaction, ScopeBill}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	for _, sc := range Scopes {
		if Scope(s) == sc {
			return sc, nil
		}
	}
	return "", ErrInvalidScope
}

// ActorSystem is recorded for changes made by background jobs and the CLI.
const ActorSystem = "SYSTEM"

// Entry is a single audit trail record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actorId"`
	Action        Action    `json:"action"`
	Scope         Scope     `json:"scope"`
	ScopeID       string    `json:"scopeId"`
	Summary       string    `json:"summary"`
	PreviousValue string    `json:"previousValue,omitempty"`
	NewValue      string    `json:"newValue,omitempty"`
}
