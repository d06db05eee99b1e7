package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/billtrack/billtrack/internal/model"
)

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, user_type, created_at
		FROM users
		WHERE email = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, model.NormalizeEmail(email)).Scan(
		&user.ID,
		&user.Email,
		&user.UserType,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// UpsertUser creates the user or updates the role of an existing one.
// The stored id and created_at of an existing user are kept.
func (r *Repository) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, user_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET user_type = EXCLUDED.user_type
		RETURNING id, email, user_type, created_at
	`

	var stored model.User
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		model.NormalizeEmail(user.Email),
		string(user.UserType),
		user.CreatedAt,
	).Scan(
		&stored.ID,
		&stored.Email,
		&stored.UserType,
		&stored.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &stored, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
