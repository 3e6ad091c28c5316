package notify

import (
	"context"
	"time"
)

// Level of a user-facing notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a short message for the owner's toast sink.
type Notice struct {
	OwnerID string    `json:"ownerId"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers notices. Delivery failures never fail the operation that raised them.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) error { return nil }
