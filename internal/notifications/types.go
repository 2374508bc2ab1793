package notifications

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("notification not found")
	ErrForbidden         = errors.New("notification belongs to another employee")
	ErrContentRequired   = errors.New("content is required")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNoRecipients      = errors.New("no active customers to notify")
)

// DefaultTitle is used when a notification is sent without one.
const DefaultTitle = "Notification from Admin"

// Status tracks whether the recipient has seen a notification.
type Status string

const (
	StatusSent Status = "SENT"
	StatusRead Status = "READ"
)

// Notification is a message from an admin to one employee.
type Notification struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	RecipientID string    `json:"recipientId"`
	Status      Status    `json:"status"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SendRequest describes a notification to send. An empty RecipientID
// broadcasts to every active customer.
type SendRequest struct {
	SenderID    string `json:"-"`
	RecipientID string `json:"recipientId"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// Event is what websocket subscribers receive for a new notification.
type Event struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}
