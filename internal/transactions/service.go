package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/events"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
)

// SystemUser is recorded as the creator of backfilled transactions.
const SystemUser = audit.ActorSystem

// Deps are the collaborators of a Service. Store and Employees are
// required.
type Deps struct {
	Store     *Store
	Employees *employees.Store
	Audit     *audit.Store
	Events    events.Publisher
	Log       *slog.Logger
}

// Service adds auditing and events on top of the transaction store.
type Service struct {
	store     *Store
	employees *employees.Store
	audit     *audit.Store
	events    events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		employees: d.Employees,
		audit:     d.Audit,
		events:    d.Events,
		log:       d.Log,
		now:       time.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

func (s *Service) Store() *Store { return s.store }

// CreateForDeliveredOrder records the ACTIVE transaction of a delivered
// order. Calling it again for the same order is a no-op.
func (s *Service) CreateForDeliveredOrder(ctx context.Context, orderID int64, by string) error {
	created, err := s.RecordDelivery(ctx, s.store.db, orderID, by)
	if err != nil {
		return err
	}
	if created {
		s.Announce(ctx, orderID)
	}
	return nil
}

// RecordDelivery inserts the ACTIVE transaction of a delivered order
// through q and reports whether it was new. Callers running inside a
// database transaction call Announce once it commits.
func (s *Service) RecordDelivery(ctx context.Context, q db.Querier, orderID int64, by string) (bool, error) {
	return s.store.CreateForOrderTx(ctx, q, orderID, StatusActive, by)
}

// Announce logs and publishes the transaction of orderID.
func (s *Service) Announce(ctx context.Context, orderID int64) {
	t, err := s.store.GetByOrder(ctx, orderID)
	if err != nil {
		s.log.Error("failed to load new transaction", sl.Op("transactions.Announce"),
			slog.Int64("order", orderID), sl.Err(err))
		return
	}
	s.log.Info("transaction created", sl.Op("transactions.Announce"),
		slog.String("transaction", t.TransactionID), slog.Int64("order", orderID))
	s.publish(ctx, t)
}

// CreateForDeliveredOrders backfills ACTIVE transactions for delivered
// orders that have none.
func (s *Service) CreateForDeliveredOrders(ctx context.Context) (int, error) {
	return s.backfill(ctx, "DELIVERED", StatusActive)
}

// CreateForCancelledOrders backfills INACTIVE transactions for cancelled
// orders that have none.
func (s *Service) CreateForCancelledOrders(ctx context.Context) (int, error) {
	return s.backfill(ctx, "CANCELLED", StatusInactive)
}

func (s *Service) backfill(ctx context.Context, orderStatus string, status Status) (int, error) {
	n, err := s.store.CreateForOrders(ctx, orderStatus, status, SystemUser)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("transactions backfilled", sl.Op("transactions.backfill"),
			slog.String("orders", orderStatus), slog.Int("count", n))
		s.publish(ctx, map[string]any{"orderStatus": orderStatus, "status": status, "count": n})
	}
	return n, nil
}

// AddRemark appends a timestamped remark by user and marks the transaction
// MODIFIED.
func (s *Service) AddRemark(ctx context.Context, id int64, text, user string) (*Transaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendRemark(ctx, id, stamp(s.now(), user, text), user); err != nil {
		return nil, err
	}
	if before.Status != StatusModified {
		s.record(ctx, user, before, StatusModified, "remark added")
	}
	return s.store.Get(ctx, id)
}

// AddResponse appends a timestamped response by user. The status is left
// alone.
func (s *Service) AddResponse(ctx context.Context, id int64, text, user string) (*Transaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := s.store.AppendResponse(ctx, id, stamp(s.now(), user, text), user); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// UpdateStatus sets any status on one transaction.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status, user string) (*Transaction, error) {
	to, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetStatus(ctx, id, to, user); err != nil {
		return nil, err
	}
	if before.Status != to {
		s.record(ctx, user, before, to, "status updated")
	}
	return s.store.Get(ctx, id)
}

// RequestPayment flags the employee's ACTIVE transactions of the month as
// MODIFIED so they show up for review, and returns how many changed.
func (s *Service) RequestPayment(ctx context.Context, employeeID string, month, year int, user string) (int, error) {
	n, err := s.store.MoveStatus(ctx, employeeID, month, year, []Status{StatusActive}, StatusModified, user)
	if err != nil {
		return 0, err
	}
	s.log.Info("payment requested", sl.Op("transactions.RequestPayment"),
		slog.String("employee", employeeID), slog.Int("month", month), slog.Int("year", year), slog.Int("count", n))
	if s.audit != nil && n > 0 {
		err := s.audit.Log(ctx, audit.Entry{
			ActorID: user,
			Action:  audit.ActionPaymentRequested,
			Scope:   audit.ScopeTransaction,
			ScopeID: employeeID,
			Summary: fmt.Sprintf("%d transactions of %02d/%d flagged for payment", n, month, year),
		})
		if err != nil {
			s.log.Error("failed to write audit entry", sl.Err(err))
		}
	}
	return n, nil
}

// Employees lists everyone who has at least one transaction.
func (s *Service) Employees(ctx context.Context) ([]employees.IDName, error) {
	return s.employees.WithTransactions(ctx)
}

func (s *Service) record(ctx context.Context, user string, t *Transaction, to Status, why string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Log(ctx, audit.Entry{
		ActorID:       user,
		Action:        audit.ActionTransactionStatusChanged,
		Scope:         audit.ScopeTransaction,
		ScopeID:       t.TransactionID,
		Summary:       why,
		PreviousValue: string(t.Status),
		NewValue:      string(to),
	})
	if err != nil {
		s.log.Error("failed to write audit entry", sl.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, payload any) {
	if err := s.events.Publish(ctx, events.SubjectTransactionCreated, payload); err != nil {
		s.log.Warn("failed to publish transaction event", sl.Err(err))
	}
}
