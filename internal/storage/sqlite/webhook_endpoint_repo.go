package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type webhookEndpointRepo struct {
	db *DB
}

func NewWebhookEndpointRepository(db *DB) *webhookEndpointRepo {
	return &webhookEndpointRepo{db: db}
}

func scanEndpoint(row rowScanner) (model.WebhookEndpoint, error) {
	var ep model.WebhookEndpoint
	var createdAt, updatedAt string

	err := row.Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Description, &createdAt, &updatedAt)
	if err != nil {
		return model.WebhookEndpoint{}, mapError(err)
	}

	ep.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ep.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return ep, nil
}

func (r *webhookEndpointRepo) List(ctx context.Context) ([]model.WebhookEndpoint, error) {
	query := `
		SELECT id, name, url, COALESCE(description, ''), created_at, updated_at
		FROM webhook_endpoints
		ORDER BY name`

	rows, err := r.db.Conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []model.WebhookEndpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

func (r *webhookEndpointRepo) GetByName(ctx context.Context, name string) (model.WebhookEndpoint, error) {
	query := `
		SELECT id, name, url, COALESCE(description, ''), created_at, updated_at
		FROM webhook_endpoints
		WHERE name = ?`

	return scanEndpoint(r.db.Conn.QueryRowContext(ctx, query, name))
}

func (r *webhookEndpointRepo) Upsert(ctx context.Context, endpoint model.WebhookEndpoint) (model.WebhookEndpoint, error) {
	if endpoint.ID == "" {
		endpoint.ID = uuid.New().String()
	}
	now := time.Now()

	query := `
		INSERT INTO webhook_endpoints (id, name, url, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET url = excluded.url, description = excluded.description, updated_at = excluded.updated_at`

	_, err := r.db.Conn.ExecContext(ctx, query,
		endpoint.ID, endpoint.Name, endpoint.URL, nullIfEmpty(endpoint.Description),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return model.WebhookEndpoint{}, err
	}

	return r.GetByName(ctx, endpoint.Name)
}

func (r *webhookEndpointRepo) Delete(ctx context.Context, name string) error {
	result, err := r.db.Conn.ExecContext(ctx, `DELETE FROM webhook_endpoints WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
