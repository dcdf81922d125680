package db

import (
	"context"
	"fmt"

	"github.com/apex-career/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

const userColumns = `user_id, email, hashed_password, full_name, is_active, created_at, updated_at`

func (db *Postgres) CreateUser(ctx context.Context, email, passwordHash string, fullName *string) (*model.User, error) {
	query := `
		INSERT INTO users (email, hashed_password, full_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, email, passwordHash, fullName))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, email))
}

// SetUserActive flips the active flag. It reports pgx.ErrNoRows for an unknown email.
func (db *Postgres) SetUserActive(ctx context.Context, email string, active bool) (*model.User, error) {
	query := `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, email, active))
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
