package sqlite

import (
	"context"
	"database/sql"
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
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Conn.ExecContext(ctx, query,
		event.ID, event.ConnectionID, event.OwnerUserID, event.Type, event.Payload,
		event.CreatedAt.Format(time.RFC3339),
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
		WHERE owner_user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Conn.QueryContext(ctx, query, ownerUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ConnectionEvent
	for rows.Next() {
		var event model.ConnectionEvent
		var deliveredAt sql.NullString
		var createdAt string

		if err := rows.Scan(
			&event.ID, &event.ConnectionID, &event.OwnerUserID, &event.Type,
			&event.Payload, &deliveredAt, &createdAt,
		); err != nil {
			return nil, err
		}

		if deliveredAt.Valid {
			if t, err := time.Parse(time.RFC3339, deliveredAt.String); err == nil {
				event.DeliveredAt = &t
			}
		}
		event.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventLogRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.Conn.ExecContext(ctx,
		`UPDATE connection_events SET delivered_at = ? WHERE id = ?`,
		at.Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *eventLogRepo) DeleteByConnectionID(ctx context.Context, connectionID string) error {
	_, err := r.db.Conn.ExecContext(ctx, `DELETE FROM connection_events WHERE connection_id = ?`, connectionID)
	return err
}
