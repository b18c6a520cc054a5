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

type connectionRepo struct {
	db *DB
}

func NewConnectionRepository(db *DB) *connectionRepo {
	return &connectionRepo{db: db}
}

const connectionColumns = `
	id, owner_user_id, name, color, status, instance_ref, qr_code,
	COALESCE(notify_url, ''), COALESCE(notify_secret, ''), created_at, updated_at`

func scanConnection(row pgx.Row) (model.Connection, error) {
	var conn model.Connection
	err := row.Scan(
		&conn.ID, &conn.OwnerUserID, &conn.Name, &conn.Color, &conn.Status,
		&conn.InstanceRef, &conn.QRCode, &conn.NotifyURL, &conn.NotifySecret,
		&conn.CreatedAt, &conn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Connection{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Connection{}, err
	}
	return conn, nil
}

func (r *connectionRepo) Create(ctx context.Context, conn model.Connection) (model.Connection, error) {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	query := `
		INSERT INTO connections (id, owner_user_id, name, color, status, instance_ref, qr_code, notify_url, notify_secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + connectionColumns

	return scanConnection(r.db.Pool.QueryRow(ctx, query,
		conn.ID, conn.OwnerUserID, conn.Name, conn.Color, string(conn.Status),
		conn.InstanceRef, conn.QRCode, nullIfEmpty(conn.NotifyURL), nullIfEmpty(conn.NotifySecret),
		conn.CreatedAt, conn.UpdatedAt,
	))
}

func (r *connectionRepo) GetByID(ctx context.Context, id string) (model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`
	return scanConnection(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *connectionRepo) GetForOwner(ctx context.Context, id, ownerUserID string) (model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1 AND owner_user_id = $2`
	return scanConnection(r.db.Pool.QueryRow(ctx, query, id, ownerUserID))
}

func (r *connectionRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE owner_user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *connectionRepo) Update(ctx context.Context, conn model.Connection) (model.Connection, error) {
	conn.UpdatedAt = time.Now()

	query := `
		UPDATE connections
		SET name = $3, color = $4, status = $5, instance_ref = $6, qr_code = $7, notify_url = $8, notify_secret = $9, updated_at = $10
		WHERE id = $1 AND owner_user_id = $2
		RETURNING ` + connectionColumns

	return scanConnection(r.db.Pool.QueryRow(ctx, query,
		conn.ID, conn.OwnerUserID, conn.Name, conn.Color, string(conn.Status),
		conn.InstanceRef, conn.QRCode, nullIfEmpty(conn.NotifyURL), nullIfEmpty(conn.NotifySecret),
		conn.UpdatedAt,
	))
}

func (r *connectionRepo) UpdateStatus(ctx context.Context, id, ownerUserID string, status model.ConnectionStatus) error {
	query := `
		UPDATE connections SET status = $3, updated_at = $4
		WHERE id = $1 AND owner_user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, ownerUserID, string(status), time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *connectionRepo) UpdateQRCode(ctx context.Context, id, ownerUserID string, qrCode *string) error {
	query := `
		UPDATE connections SET qr_code = $3, updated_at = $4
		WHERE id = $1 AND owner_user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, ownerUserID, qrCode, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *connectionRepo) DeleteForOwner(ctx context.Context, id, ownerUserID string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM connections WHERE id = $1 AND owner_user_id = $2`, id, ownerUserID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
