package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtanaka-dev/stocksync/internal/models"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository handles database operations for access tokens.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Insert stores a new token.
func (r *TokenRepository) Insert(ctx context.Context, t *models.Token) error {
	query := `
		INSERT INTO tokens (token, plan_type, is_active, expires_at, user_name, user_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		t.Token, t.PlanType, t.IsActive, t.ExpiresAt, t.UserName, t.UserEmail,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// GetByToken retrieves a token record by its secret value.
func (r *TokenRepository) GetByToken(ctx context.Context, token string) (*models.Token, error) {
	query := `
		SELECT id, token, plan_type, is_active, expires_at, user_name, user_email, created_at
		FROM tokens
		WHERE token = $1
	`
	t := &models.Token{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.ID, &t.Token, &t.PlanType, &t.IsActive, &t.ExpiresAt, &t.UserName, &t.UserEmail, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return t, nil
}

// SetActive activates or deactivates a token.
func (r *TokenRepository) SetActive(ctx context.Context, token string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tokens SET is_active = $2 WHERE token = $1`, token, active)
	if err != nil {
		return fmt.Errorf("failed to update token status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// SetExpiry updates a token's expiry date. A nil date clears it.
func (r *TokenRepository) SetExpiry(ctx context.Context, token string, expiresAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tokens SET expires_at = $2 WHERE token = $1`, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update token expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Delete removes a token.
func (r *TokenRepository) Delete(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// List returns all tokens ordered by id.
func (r *TokenRepository) List(ctx context.Context) ([]*models.Token, error) {
	query := `
		SELECT id, token, plan_type, is_active, expires_at, user_name, user_email, created_at
		FROM tokens
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		t := &models.Token{}
		if err := rows.Scan(
			&t.ID, &t.Token, &t.PlanType, &t.IsActive, &t.ExpiresAt, &t.UserName, &t.UserEmail, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
