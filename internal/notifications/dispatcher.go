package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
)

// Pusher delivers live messages to subscribers of a topic.
type Pusher interface {
	Push(topic string, v any)
}

// Dispatcher persists notifications and pushes them to connected
// recipients.
type Dispatcher struct {
	store     *Store
	employees *employees.Store
	pusher    Pusher
	log       *slog.Logger
}

// NewDispatcher creates a Dispatcher. pusher may be nil.
func NewDispatcher(store *Store, emps *employees.Store, pusher Pusher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{store: store, employees: emps, pusher: pusher, log: log}
}

// Store exposes the underlying notification store.
func (d *Dispatcher) Store() *Store { return d.store }

// Send delivers req to its recipient, or to every active customer when no
// recipient is given, and returns the stored notifications.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) ([]Notification, error) {
	const op = "notifications.Send"
	log := d.log.With(sl.Op(op))

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrContentRequired
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	senderName := req.SenderID
	if sender, err := d.employees.GetByEmployeeID(ctx, req.SenderID); err == nil {
		senderName = sender.FullName()
	}

	var recipients []string
	if req.RecipientID != "" {
		if _, err := d.employees.GetByEmployeeID(ctx, req.RecipientID); err != nil {
			if errors.Is(err, employees.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrRecipientNotFound, req.RecipientID)
			}
			return nil, err
		}
		recipients = []string{req.RecipientID}
	} else {
		customers, err := d.employees.ListCustomers(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range customers {
			recipients = append(recipients, c.EmployeeID)
		}
		if len(recipients) == 0 {
			return nil, ErrNoRecipients
		}
	}

	list := make([]*Notification, len(recipients))
	for i, id := range recipients {
		list[i] = &Notification{
			Title:       title,
			Content:     content,
			SenderID:    req.SenderID,
			SenderName:  senderName,
			RecipientID: id,
		}
	}
	if err := d.store.CreateAll(ctx, list); err != nil {
		return nil, err
	}

	out := make([]Notification, len(list))
	for i, n := range list {
		out[i] = *n
		if d.pusher != nil {
			d.pusher.Push(n.RecipientID, Event{Type: "notification", Notification: n})
		}
	}
	log.Info("notification sent", slog.String("sender", req.SenderID), slog.Int("recipients", len(out)))
	return out, nil
}

// MarkRead marks notification id as read. Only its recipient may do so.
func (d *Dispatcher) MarkRead(ctx context.Context, id int64, caller string) (*Notification, error) {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != caller {
		return nil, ErrForbidden
	}
	if err := d.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	return d.store.Get(ctx, id)
}

// Mine returns what an admin sent or what an employee received.
func (d *Dispatcher) Mine(ctx context.Context, caller string, isAdmin bool) ([]Notification, error) {
	if isAdmin {
		return d.store.ListBySender(ctx, caller)
	}
	return d.store.ListByRecipient(ctx, caller)
}
