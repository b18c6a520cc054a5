package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type eventLogRepo struct {
	db *DB
}

func NewEventLogRepository(db *DB) *eventLogRepo {
	return &eventLogRepo{db: db}
}

func (r *eventLogRepo) Create(ctx context.Context, event model.ConnectionEvent) (model.ConnectionEvent, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.CreatedAt = time.Now()

	query := `
		INSERT INTO connection_events (id, connection_id, owner_user_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Pool.Exec(ctx, query,
		event.ID, event.ConnectionID, event.OwnerUserID, event.Type, event.Payload, event.CreatedAt,
	)
	if err != nil {
		return model.ConnectionEvent{}, err
	}
	return event, nil
}

func (r *eventLogRepo) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]model.ConnectionEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, connection_id, owner_user_id, type, COALESCE(payload, ''), delivered_at, created_at
		FROM connection_events
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, ownerUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ConnectionEvent
	for rows.Next() {
		var event model.ConnectionEvent
		if err := rows.Scan(
			&event.ID, &event.ConnectionID, &event.OwnerUserID, &event.Type,
			&event.Payload, &event.DeliveredAt, &event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventLogRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.Pool.Exec(ctx, `UPDATE connection_events SET delivered_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *eventLogRepo) DeleteByConnectionID(ctx context.Context, connectionID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM connection_events WHERE connection_id = $1`, connectionID)
	return err
}
