package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
	"github.com/ziadkadry99/canteen/internal/notifications"
)

// Notifier tells an employee their feedback was answered.
type Notifier interface {
	Send(ctx context.Context, req notifications.SendRequest) ([]notifications.Notification, error)
}

type Deps struct {
	Store     *Store
	Employees *employees.Store
	Notifier  Notifier
	Log       *slog.Logger
}

type Service struct {
	store     *Store
	employees *employees.Store
	notifier  Notifier
	log       *slog.Logger
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &Service{store: d.Store, employees: d.Employees, notifier: d.Notifier, log: d.Log}
}

// Submit records a suggestion or complaint from senderID.
func (s *Service) Submit(ctx context.Context, t Type, senderID, content string) (*Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if t != TypeSuggestion && t != TypeComplaint {
		return nil, ErrInvalidType
	}
	sender, err := s.employees.GetByEmployeeID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	e := &Entry{
		Type:       t,
		Title:      fmt.Sprintf("%s from %s", t.Label(), sender.FirstName),
		Content:    content,
		SenderID:   sender.EmployeeID,
		SenderName: sender.FullName(),
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("feedback submitted", slog.String("type", string(t)), slog.String("sender", senderID))
	return e, nil
}

func (s *Service) List(ctx context.Context, t Type, st Status) ([]Entry, error) {
	return s.store.List(ctx, t, st)
}

func (s *Service) Mine(ctx context.Context, senderID string) ([]Entry, error) {
	return s.store.ListBySender(ctx, senderID)
}

// Respond resolves entry id and notifies its sender. A failed notification
// does not undo the response.
func (s *Service) Respond(ctx context.Context, id int64, response, responder string) (*Entry, error) {
	const op = "feedback.Respond"
	log := s.log.With(sl.Op(op), slog.Int64("id", id))

	response = strings.TrimSpace(response)
	if response == "" {
		return nil, ErrResponseRequired
	}
	e, err := s.store.Resolve(ctx, id, response)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		_, err := s.notifier.Send(ctx, notifications.SendRequest{
			SenderID:    responder,
			RecipientID: e.SenderID,
			Title:       "Response to your " + strings.ToLower(e.Type.Label()),
			Content:     response,
		})
		if err != nil {
			log.Warn("failed to notify feedback sender", sl.Err(err))
		}
	}
	log.Info("feedback resolved", slog.String("responder", responder))
	return e, nil
}
