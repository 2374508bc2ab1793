package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/events"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/menu"
	"github.com/ziadkadry99/canteen/internal/metrics"
)

// DefaultCancelWindow is how long after placing an order its owner may
// still cancel it.
const DefaultCancelWindow = 5 * time.Minute

// BoardTopic is the live-update topic the kitchen board listens on.
const BoardTopic = "board"

// TransactionCreator records the billing transaction for a delivered
// order. RecordDelivery runs inside the transaction that delivers the order
// and must be idempotent per order; Announce runs after it commits.
type TransactionCreator interface {
	RecordDelivery(ctx context.Context, q db.Querier, orderID int64, by string) (bool, error)
	Announce(ctx context.Context, orderID int64)
}

// Board receives live order updates.
type Board interface {
	Push(topic string, v any)
}

// BoardEvent is what the kitchen board receives for every change.
type BoardEvent struct {
	Type  string `json:"type"`
	Order *Order `json:"order"`
}

// Deps are the collaborators of a Service. Store, Employees and Menu are
// required; the rest fall back to no-ops.
type Deps struct {
	Store        *Store
	Employees    *employees.Store
	Menu         *menu.Store
	Transactions TransactionCreator
	Audit        *audit.Store
	Events       events.Publisher
	Metrics      *metrics.Metrics
	Board        Board
	CancelWindow time.Duration
	Log          *slog.Logger
}

// Service runs the order workflow on top of the stores.
type Service struct {
	store        *Store
	employees    *employees.Store
	items        *menu.Store
	txns         TransactionCreator
	audit        *audit.Store
	events       events.Publisher
	metrics      *metrics.Metrics
	board        Board
	cancelWindow time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// NewService wires a Service from d.
func NewService(d Deps) *Service {
	s := &Service{
		store:        d.Store,
		employees:    d.Employees,
		items:        d.Menu,
		txns:         d.Transactions,
		audit:        d.Audit,
		events:       d.Events,
		metrics:      d.Metrics,
		board:        d.Board,
		cancelWindow: d.CancelWindow,
		log:          d.Log,
		now:          time.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.cancelWindow <= 0 {
		s.cancelWindow = DefaultCancelWindow
	}
	return s
}

// Store exposes the underlying order store for read-only queries.
func (s *Service) Store() *Store { return s.store }

// Place records a new order for req.EmployeeID at the item's current
// price. Orders placed directly as DELIVERED (counter sales) get their
// transaction immediately.
func (s *Service) Place(ctx context.Context, req PlaceRequest, by string) (*Order, error) {
	const op = "orders.Place"
	log := s.log.With(sl.Op(op))

	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	status := StatusPending
	if req.Status != "" {
		st, err := ParseStatus(string(req.Status))
		if err != nil {
			return nil, err
		}
		if st != StatusPending && st != StatusDelivered {
			return nil, fmt.Errorf("%w: orders are placed as PENDING or DELIVERED", ErrInvalidStatus)
		}
		status = st
	}

	emp, err := s.employees.GetByEmployeeID(ctx, req.EmployeeID)
	if errors.Is(err, employees.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, req.EmployeeID)
	}
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByMenuID(ctx, req.MenuID)
	if errors.Is(err, menu.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, req.MenuID)
	}
	if err != nil {
		return nil, err
	}
	if !item.AvailableStatus {
		return nil, ErrUnavailable
	}

	now := s.now()
	delivery := req.ExpectedDeliveryDate
	if delivery.IsZero() {
		delivery = now
	}
	o := &Order{
		EmployeeRef:          emp.ID,
		MenuItemRef:          item.ID,
		Quantity:             req.Quantity,
		PriceAtOrder:         item.Price,
		TotalPrice:           item.Price * float64(req.Quantity),
		OrderTime:            now.UTC().Truncate(time.Second),
		ExpectedDeliveryDate: delivery,
		Status:               status,
		Remarks:              req.Remarks,
		CreatedBy:            by,
	}
	var billed bool
	err = s.store.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.insert(ctx, tx, o); err != nil {
			return err
		}
		created, err := s.recordDelivery(ctx, tx, o.ID, status, by)
		billed = created
		return err
	})
	if err != nil {
		return nil, err
	}
	if billed {
		s.txns.Announce(ctx, o.ID)
	}

	placed, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	log.Info("order placed", slog.Int64("id", placed.ID), slog.String("employee", placed.EmployeeID),
		slog.String("status", string(placed.Status)))

	s.record(ctx, audit.Entry{
		ActorID:  by,
		Action:   audit.ActionOrderPlaced,
		Scope:    audit.ScopeOrder,
		ScopeID:  fmt.Sprint(placed.ID),
		Summary:  fmt.Sprintf("%d x %s for %s", placed.Quantity, placed.ItemName, placed.EmployeeName),
		NewValue: string(placed.Status),
	})
	s.metrics.OrderStatus(string(placed.Status))
	s.announce(ctx, events.SubjectOrderPlaced, "order_placed", placed)
	return placed, nil
}

// UpdateStatus moves an order along its lifecycle. A nil remarks keeps the
// current remarks. Moving to DELIVERED creates the order's transaction.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, remarks *string, by string) (*Order, error) {
	const op = "orders.UpdateStatus"
	log := s.log.With(sl.Op(op))

	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, to)
	}

	newRemarks := o.Remarks
	if remarks != nil {
		newRemarks = *remarks
	}
	var billed bool
	err = s.store.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.setStatus(ctx, tx, id, o.Status, to, newRemarks, s.now()); err != nil {
			return err
		}
		created, err := s.recordDelivery(ctx, tx, id, to, by)
		billed = created
		return err
	})
	if err != nil {
		return nil, err
	}
	if billed {
		s.txns.Announce(ctx, id)
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return updated, nil
	}

	log.Info("order status changed", slog.Int64("id", id),
		slog.String("from", string(o.Status)), slog.String("to", string(to)))
	s.record(ctx, audit.Entry{
		ActorID:       by,
		Action:        audit.ActionOrderStatusChanged,
		Scope:         audit.ScopeOrder,
		ScopeID:       fmt.Sprint(id),
		Summary:       fmt.Sprintf("order %d moved to %s", id, to),
		PreviousValue: string(o.Status),
		NewValue:      string(to),
	})
	s.metrics.OrderStatus(string(to))
	s.announce(ctx, events.SubjectOrderStatus, "order_status", updated)
	return updated, nil
}

// Cancel lets the employee who owns an order withdraw it within the cancel
// window.
func (s *Service) Cancel(ctx context.Context, id int64, employeeID string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.EmployeeID != employeeID {
		return nil, ErrNotOwner
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
	}
	if s.now().Sub(o.OrderTime) > s.cancelWindow {
		return nil, fmt.Errorf("%w (%s)", ErrCancelWindowExpired, s.cancelWindow)
	}

	if err := s.store.setStatus(ctx, s.store.db, id, o.Status, StatusCancelled, o.Remarks, s.now()); err != nil {
		return nil, err
	}
	cancelled, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("order cancelled", sl.Op("orders.Cancel"), slog.Int64("id", id))
	s.record(ctx, audit.Entry{
		ActorID:       employeeID,
		Action:        audit.ActionOrderCancelled,
		Scope:         audit.ScopeOrder,
		ScopeID:       fmt.Sprint(id),
		Summary:       fmt.Sprintf("order %d cancelled by its owner", id),
		PreviousValue: string(o.Status),
		NewValue:      string(StatusCancelled),
	})
	s.metrics.OrderStatus(string(StatusCancelled))
	s.announce(ctx, events.SubjectOrderStatus, "order_status", cancelled)
	return cancelled, nil
}

// EmployeeDetails returns the employee who placed order id.
func (s *Service) EmployeeDetails(ctx context.Context, id int64) (*employees.Employee, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.employees.GetByEmployeeID(ctx, o.EmployeeID)
}

// MenuItemDetails returns the exact menu row order id was placed against.
func (s *Service) MenuItemDetails(ctx context.Context, id int64) (*menu.Item, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.items.Get(ctx, o.MenuItemRef)
}

// PriceHistory returns the price history of the ordered item in its
// category.
func (s *Service) PriceHistory(ctx context.Context, id int64) ([]menu.PriceVersion, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.items.PriceHistory(ctx, o.ItemName, o.Category)
}

// recordDelivery creates the transaction of a DELIVERED order through tx
// and reports whether a new one was written.
func (s *Service) recordDelivery(ctx context.Context, tx *sql.Tx, id int64, status Status, by string) (bool, error) {
	if status != StatusDelivered || s.txns == nil {
		return false, nil
	}
	created, err := s.txns.RecordDelivery(ctx, tx, id, by)
	if err != nil {
		return false, fmt.Errorf("creating transaction for order %d: %w", id, err)
	}
	return created, nil
}

// record writes an audit entry. Failures are logged and not returned.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, e); err != nil {
		s.log.Error("failed to write audit entry", slog.String("action", string(e.Action)), sl.Err(err))
	}
}

func (s *Service) announce(ctx context.Context, subject, kind string, o *Order) {
	if err := s.events.Publish(ctx, subject, o); err != nil {
		s.log.Warn("failed to publish order event", slog.String("subject", subject), sl.Err(err))
	}
	if s.board != nil {
		s.board.Push(BoardTopic, BoardEvent{Type: kind, Order: o})
	}
}
