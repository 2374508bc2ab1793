package feedback

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("feedback not found")
	ErrContentRequired  = errors.New("content is required")
	ErrResponseRequired = errors.New("response is required")
	ErrInvalidType      = errors.New("invalid feedback type")
	ErrInvalidStatus    = errors.New("invalid feedback status")
)

type Type string

const (
	TypeSuggestion Type = "SUGGESTION"
	TypeComplaint  Type = "COMPLAINT"
)

// ParseType accepts a type name in any case. An empty string is the zero Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case "", TypeSuggestion, TypeComplaint:
		return t, nil
	}
	return "", ErrInvalidType
}

// Label is the human name used in titles.
func (t Type) Label() string {
	if t == TypeComplaint {
		return "Complaint"
	}
	return "Suggestion"
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
)

// ParseStatus accepts a status name in any case. An empty string is the zero Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case "", StatusPending, StatusResolved:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Entry is a suggestion or complaint raised by an employee.
type Entry struct {
	ID         int64     `json:"id"`
	Type       Type      `json:"type"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Status     Status    `json:"status"`
	Response   string    `json:"response,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ResponseAt time.Time `json:"responseAt,omitzero"`
}
