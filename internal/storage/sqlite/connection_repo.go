package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (model.Connection, error) {
	var conn model.Connection
	var instanceRef, qrCode sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&conn.ID, &conn.OwnerUserID, &conn.Name, &conn.Color, &conn.Status,
		&instanceRef, &qrCode, &conn.NotifyURL, &conn.NotifySecret,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Connection{}, mapError(err)
	}

	if instanceRef.Valid {
		conn.InstanceRef = &instanceRef.String
	}
	if qrCode.Valid {
		conn.QRCode = &qrCode.String
	}
	conn.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	conn.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Conn.ExecContext(ctx, query,
		conn.ID, conn.OwnerUserID, conn.Name, conn.Color, string(conn.Status),
		conn.InstanceRef, conn.QRCode, nullIfEmpty(conn.NotifyURL), nullIfEmpty(conn.NotifySecret),
		conn.CreatedAt.Format(time.RFC3339), conn.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return model.Connection{}, err
	}
	return conn, nil
}

func (r *connectionRepo) GetByID(ctx context.Context, id string) (model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ?`
	return scanConnection(r.db.Conn.QueryRowContext(ctx, query, id))
}

func (r *connectionRepo) GetForOwner(ctx context.Context, id, ownerUserID string) (model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ? AND owner_user_id = ?`
	return scanConnection(r.db.Conn.QueryRowContext(ctx, query, id, ownerUserID))
}

func (r *connectionRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE owner_user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.Conn.QueryContext(ctx, query, ownerUserID)
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
		SET name = ?, color = ?, status = ?, instance_ref = ?, qr_code = ?, notify_url = ?, notify_secret = ?, updated_at = ?
		WHERE id = ? AND owner_user_id = ?`

	result, err := r.db.Conn.ExecContext(ctx, query,
		conn.Name, conn.Color, string(conn.Status), conn.InstanceRef, conn.QRCode,
		nullIfEmpty(conn.NotifyURL), nullIfEmpty(conn.NotifySecret),
		conn.UpdatedAt.Format(time.RFC3339), conn.ID, conn.OwnerUserID,
	)
	if err != nil {
		return model.Connection{}, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return model.Connection{}, storage.ErrNotFound
	}
	return conn, nil
}

func (r *connectionRepo) UpdateStatus(ctx context.Context, id, ownerUserID string, status model.ConnectionStatus) error {
	query := `UPDATE connections SET status = ?, updated_at = ? WHERE id = ? AND owner_user_id = ?`

	result, err := r.db.Conn.ExecContext(ctx, query,
		string(status), time.Now().Format(time.RFC3339), id, ownerUserID,
	)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *connectionRepo) UpdateQRCode(ctx context.Context, id, ownerUserID string, qrCode *string) error {
	query := `UPDATE connections SET qr_code = ?, updated_at = ? WHERE id = ? AND owner_user_id = ?`

	result, err := r.db.Conn.ExecContext(ctx, query,
		qrCode, time.Now().Format(time.RFC3339), id, ownerUserID,
	)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *connectionRepo) DeleteForOwner(ctx context.Context, id, ownerUserID string) error {
	result, err := r.db.Conn.ExecContext(ctx, `DELETE FROM connections WHERE id = ? AND owner_user_id = ?`, id, ownerUserID)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
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
