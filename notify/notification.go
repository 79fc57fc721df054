package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority orders notifications by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one message for the notification sink.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Priority  Priority       `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
}

// New builds a notification with a fresh id and timestamp.
func New(typ string, priority Priority, title, message string, data map[string]any) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}

// Sender delivers a notification synchronously.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Send should give up once ctx is done.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

// Notifier accepts notifications without blocking on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}

// Discard returns a Notifier that drops everything.
func Discard() Notifier { return nopNotifier{} }
