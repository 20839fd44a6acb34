// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/identityapp/api/internal/models"
)

// CreateActionToken stores a new hashed action token. Outstanding tokens for
// the same user and purpose stay valid; re-issuing does not invalidate them.
func (r *Repository) CreateActionToken(ctx context.Context, userID string, purpose models.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO action_tokens (user_id, purpose, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, purpose, tokenHash, expiresAt, time.Now().UTC())
	return wrapError(err)
}

// GetActionToken retrieves an action token by hash, bound to the user and
// purpose it was issued for. A hash issued for another account or purpose
// is not found.
func (r *Repository) GetActionToken(ctx context.Context, userID string, purpose models.TokenPurpose, tokenHash string) (*models.ActionToken, error) {
	var token models.ActionToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM action_tokens WHERE token_hash = ? AND user_id = ? AND purpose = ?`,
		tokenHash, userID, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteActionToken consumes a token by ID.
func (r *Repository) DeleteActionToken(ctx context.Context, tokenID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM action_tokens WHERE id = ?`, tokenID)
	return wrapError(err)
}

// DeleteExpiredActionTokens purges tokens past their validity window.
func (r *Repository) DeleteExpiredActionTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM action_tokens WHERE expires_at < ?`, time.Now().UTC())
	return wrapError(err)
}
