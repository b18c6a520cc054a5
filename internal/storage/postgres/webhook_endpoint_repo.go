package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type webhookEndpointRepo struct {
	db *DB
}

func NewWebhookEndpointRepository(db *DB) *webhookEndpointRepo {
	return &webhookEndpointRepo{db: db}
}

func (r *webhookEndpointRepo) List(ctx context.Context) ([]model.WebhookEndpoint, error) {
	query := `
		SELECT id, name, url, COALESCE(description, ''), created_at, updated_at
		FROM webhook_endpoints
		ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []model.WebhookEndpoint
	for rows.Next() {
		var ep model.WebhookEndpoint
		if err := rows.Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Description, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
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
		WHERE name = $1`

	var ep model.WebhookEndpoint
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(
		&ep.ID, &ep.Name, &ep.URL, &ep.Description, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WebhookEndpoint{}, storage.ErrNotFound
	}
	if err != nil {
		return model.WebhookEndpoint{}, err
	}
	return ep, nil
}

func (r *webhookEndpointRepo) Upsert(ctx context.Context, endpoint model.WebhookEndpoint) (model.WebhookEndpoint, error) {
	if endpoint.ID == "" {
		endpoint.ID = uuid.New().String()
	}
	now := time.Now()

	query := `
		INSERT INTO webhook_endpoints (id, name, url, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (name) DO UPDATE
		SET url = EXCLUDED.url, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
		RETURNING id, name, url, COALESCE(description, ''), created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		endpoint.ID, endpoint.Name, endpoint.URL, nullIfEmpty(endpoint.Description), now,
	).Scan(&endpoint.ID, &endpoint.Name, &endpoint.URL, &endpoint.Description, &endpoint.CreatedAt, &endpoint.UpdatedAt)
	if err != nil {
		return model.WebhookEndpoint{}, err
	}
	return endpoint, nil
}

func (r *webhookEndpointRepo) Delete(ctx context.Context, name string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM webhook_endpoints WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
