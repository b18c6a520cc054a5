package queue

import (
	"context"
	"time"
)

// Tipos de evento del ciclo de vida de una conexión.
const (
	EventConnectionCreated   = "connection.created"
	EventConnectionConnected = "connection.connected"
	EventConnectionDeleted   = "connection.deleted"
	EventQRUpdated           = "qr.updated"
	EventStatusChecked       = "status.checked"
)

type Event struct {
	ID           string         `json:"id"`
	ConnectionID string         `json:"connectionId"`
	OwnerUserID  string         `json:"ownerUserId"`
	Type         string         `json:"type"`
	Payload      map[string]any `json:"payload"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type Queue interface {
	Enqueue(ctx context.Context, event Event) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Event, error)
	Size(ctx context.Context) (int64, error)
	Close() error
}
