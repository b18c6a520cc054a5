package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type userRepo struct {
	db *DB
}

func NewUserRepository(db *DB) *userRepo {
	return &userRepo{db: db}
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	var createdAt string

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &createdAt)
	if err != nil {
		return model.User{}, mapError(err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return user, nil
}

func (r *userRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.Conn.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	query := `SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`
	return scanUser(r.db.Conn.QueryRowContext(ctx, query, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT id, email, password_hash, role, created_at FROM users WHERE LOWER(email) = LOWER(?)`
	return scanUser(r.db.Conn.QueryRowContext(ctx, query, email))
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Conn.QueryContext(ctx, `SELECT id, email, password_hash, role, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
