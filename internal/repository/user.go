package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert creates the user or updates its name. created_at is preserved on
// update; updated_at is always refreshed.
func (r *userRepository) Upsert(ctx context.Context, ip, name string) (*model.User, error) {
	query := `
		INSERT INTO users (ip_address, name, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(ip_address)
		DO UPDATE SET name = excluded.name, updated_at = datetime('now')
	`
	if _, err := r.db.ExecContext(ctx, query, ip, name); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.GetByIP(ctx, ip)
}

// GetByIP retrieves a user by IP address
func (r *userRepository) GetByIP(ctx context.Context, ip string) (*model.User, error) {
	query := `
		SELECT ip_address, name, created_at, updated_at
		FROM users
		WHERE ip_address = ?
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, ip)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ip: %w", err)
	}

	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	query := `
		SELECT ip_address, name, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`

	var users []model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *userRepository) ListWithImageCounts(ctx context.Context) ([]model.UserSummary, error) {
	query := `
		SELECT u.ip_address, u.name, COUNT(i.id) AS image_count
		FROM users u
		LEFT JOIN images i ON i.uploader_ip = u.ip_address
		GROUP BY u.ip_address, u.name
		ORDER BY u.created_at DESC
	`

	var users []model.UserSummary
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users with counts: %w", err)
	}

	return users, nil
}
