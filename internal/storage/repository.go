package storage

import (
	"context"
	"errors"
	"time"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

var ErrNotFound = errors.New("not found")

// ConnectionRepository persiste las conexiones. Las variantes *ForOwner
// filtran por dueño en el SQL: el acceso cruzado entre tenants se rechaza
// en la capa de datos, no en la UI.
type ConnectionRepository interface {
	Create(ctx context.Context, conn model.Connection) (model.Connection, error)
	GetByID(ctx context.Context, id string) (model.Connection, error)
	GetForOwner(ctx context.Context, id, ownerUserID string) (model.Connection, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error)
	Update(ctx context.Context, conn model.Connection) (model.Connection, error)
	UpdateStatus(ctx context.Context, id, ownerUserID string, status model.ConnectionStatus) error
	UpdateQRCode(ctx context.Context, id, ownerUserID string, qrCode *string) error
	DeleteForOwner(ctx context.Context, id, ownerUserID string) error
}

type WebhookEndpointRepository interface {
	List(ctx context.Context) ([]model.WebhookEndpoint, error)
	GetByName(ctx context.Context, name string) (model.WebhookEndpoint, error)
	Upsert(ctx context.Context, endpoint model.WebhookEndpoint) (model.WebhookEndpoint, error)
	Delete(ctx context.Context, name string) error
}

type UserRepository interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type EventLogRepository interface {
	Create(ctx context.Context, event model.ConnectionEvent) (model.ConnectionEvent, error)
	ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]model.ConnectionEvent, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	DeleteByConnectionID(ctx context.Context, connectionID string) error
}
