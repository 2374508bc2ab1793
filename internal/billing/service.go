package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/events"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/mail"
	"github.com/ziadkadry99/canteen/internal/metrics"
	"github.com/ziadkadry99/canteen/internal/progress"
	"github.com/ziadkadry99/canteen/internal/transactions"
)

// Deps are the collaborators of a Service. Transactions and Employees are
// required.
type Deps struct {
	Transactions *transactions.Store
	Employees    *employees.Store
	Mail         mail.Sender
	Audit        *audit.Store
	Events       events.Publisher
	Metrics      *metrics.Metrics
	Log          *slog.Logger
}

// Service runs the monthly billing workflow.
type Service struct {
	txns      *transactions.Store
	employees *employees.Store
	mail      mail.Sender
	audit     *audit.Store
	events    events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		txns:      d.Transactions,
		employees: d.Employees,
		mail:      d.Mail,
		audit:     d.Audit,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Log,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.mail == nil {
		s.mail = mail.NewLogSender(s.log)
	}
	return s
}

// Preview aggregates the bill without changing any transaction. A zero
// month covers the whole year and a zero year covers everything.
func (s *Service) Preview(ctx context.Context, employeeID string, month, year int) (*Bill, error) {
	if err := checkPeriod(month, year, false); err != nil {
		return nil, err
	}
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	txns, err := s.txns.Billable(ctx, employeeID, month, year)
	if err != nil {
		return nil, err
	}
	b := Aggregate(employeeID, emp.FullName(), month, year, txns)
	return &b, nil
}

// HasGenerated reports whether any transaction of the period was already
// billed or paid.
func (s *Service) HasGenerated(ctx context.Context, employeeID string, month, year int) (bool, error) {
	b, err := s.Preview(ctx, employeeID, month, year)
	if err != nil {
		return false, err
	}
	return b.GeneratedCount > 0 || b.PaidCount > 0, nil
}

// Generate moves the period's ACTIVE transactions to GENERATED and returns
// the resulting bill.
func (s *Service) Generate(ctx context.Context, employeeID string, month, year int, user string) (*Bill, error) {
	const op = "billing.Generate"
	log := s.log.With(sl.Op(op))

	if err := checkPeriod(month, year, true); err != nil {
		return nil, err
	}
	if _, err := s.employee(ctx, employeeID); err != nil {
		return nil, err
	}
	n, err := s.txns.MoveStatus(ctx, employeeID, month, year,
		[]transactions.Status{transactions.StatusActive}, transactions.StatusGenerated, user)
	if err != nil {
		return nil, fmt.Errorf("generating bill: %w", err)
	}
	b, err := s.Preview(ctx, employeeID, month, year)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Debug("nothing to bill", slog.String("employee", employeeID), slog.String("period", b.Period()))
		return b, nil
	}

	log.Info("bill generated", slog.String("employee", employeeID), slog.String("period", b.Period()),
		slog.Int("transactions", n), slog.Float64("total", b.TotalAmount))
	s.record(ctx, audit.Entry{
		ActorID:  user,
		Action:   audit.ActionBillGenerated,
		Scope:    audit.ScopeBill,
		ScopeID:  b.Key(),
		Summary:  fmt.Sprintf("%d transactions billed for %s", n, b.Period()),
		NewValue: fmt.Sprintf("%.2f", b.TotalAmount),
	})
	s.metrics.BillGenerated()
	if err := s.events.Publish(ctx, events.SubjectBillGenerated, b); err != nil {
		log.Warn("failed to publish bill event", sl.Err(err))
	}
	return b, nil
}

// SendResult describes a sent bill.
type SendResult struct {
	Bill   *Bill `json:"bill"`
	Paid   int   `json:"paid"`
	Mailed bool  `json:"mailed"`
}

// Send settles the period: GENERATED and ACTIVE transactions become PAID
// and the statement is mailed to the employee when an address is on file.
// Bills with MODIFIED transactions are refused until the remarks are
// resolved.
func (s *Service) Send(ctx context.Context, employeeID string, month, year int, user string) (*SendResult, error) {
	const op = "billing.Send"
	log := s.log.With(sl.Op(op))

	if err := checkPeriod(month, year, true); err != nil {
		return nil, err
	}
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	b, err := s.Preview(ctx, employeeID, month, year)
	if err != nil {
		return nil, err
	}
	if b.ModifiedCount > 0 {
		return nil, fmt.Errorf("%w: %d modified", ErrUnresolvedRemarks, b.ModifiedCount)
	}

	res := &SendResult{Bill: b}
	if emp.Email != "" {
		markdown, html, err := Render(*b)
		if err != nil {
			return nil, err
		}
		msg := mail.StatementMessage(emp.Email, time.Month(month), year, markdown, html)
		if err := s.mail.Send(ctx, msg); err != nil {
			return nil, fmt.Errorf("mailing statement: %w", err)
		}
		res.Mailed = true
	}

	res.Paid, err = s.txns.MoveStatus(ctx, employeeID, month, year,
		[]transactions.Status{transactions.StatusGenerated, transactions.StatusActive}, transactions.StatusPaid, user)
	if err != nil {
		return nil, fmt.Errorf("marking bill paid: %w", err)
	}

	log.Info("bill sent", slog.String("employee", employeeID), slog.String("period", b.Period()),
		slog.Int("paid", res.Paid), slog.Bool("mailed", res.Mailed))
	s.record(ctx, audit.Entry{
		ActorID:  user,
		Action:   audit.ActionBillSent,
		Scope:    audit.ScopeBill,
		ScopeID:  b.Key(),
		Summary:  fmt.Sprintf("%d transactions paid for %s", res.Paid, b.Period()),
		NewValue: fmt.Sprintf("%.2f", b.TotalAmount),
	})
	return res, nil
}

// GenerateAll generates the period's bill for every employee with
// transactions and returns the non-empty ones. Failures for one employee
// are logged and skipped.
func (s *Service) GenerateAll(ctx context.Context, month, year int, user string, reporter progress.Reporter) ([]Bill, error) {
	if err := checkPeriod(month, year, true); err != nil {
		return nil, err
	}
	people, err := s.employees.WithTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}

	reporter.Start(len(people))
	defer reporter.Finish()

	var bills []Bill
	for i, p := range people {
		if err := ctx.Err(); err != nil {
			return bills, err
		}
		b, err := s.Generate(ctx, p.EmployeeID, month, year, user)
		if err != nil {
			s.log.Error("failed to generate bill", slog.String("employee", p.EmployeeID), sl.Err(err))
			continue
		}
		reporter.Update(i+1, p.FullName)
		if len(b.Transactions) > 0 {
			bills = append(bills, *b)
		}
	}
	return bills, nil
}

func (s *Service) employee(ctx context.Context, employeeID string) (*employees.Employee, error) {
	emp, err := s.employees.GetByEmployeeID(ctx, employeeID)
	if errors.Is(err, employees.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, employeeID)
	}
	return emp, err
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, e); err != nil {
		s.log.Error("failed to write audit entry", slog.String("action", string(e.Action)), sl.Err(err))
	}
}
