package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bharatverse/bharatverse/internal/models"
)

// CreateUser inserts a new account. Duplicate usernames and emails map to
// models.ErrUsernameTaken and models.ErrEmailTaken.
func (p *Postgres) CreateUser(ctx context.Context, user models.User) error {
	const query = `INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := p.Pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return models.ErrEmailTaken
		}
		return models.ErrUsernameTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

// FindUser looks an account up by username or email, case-insensitively.
func (p *Postgres) FindUser(ctx context.Context, identifier string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at, updated_at
FROM users WHERE LOWER(username) = LOWER($1) OR (email <> '' AND LOWER(email) = LOWER($1))
LIMIT 1`

	var user models.User
	err := p.Pool.QueryRow(ctx, query, strings.TrimSpace(identifier)).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (p *Postgres) TouchUser(ctx context.Context, id string) error {
	if _, err := p.Pool.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}
