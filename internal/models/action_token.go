// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose restricts an action token to the state transition it was issued for.
type TokenPurpose string

const (
	PurposeConfirmEmail  TokenPurpose = "confirm_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// ActionToken stores the hashed form of a single-use secret mailed to a user.
// The plaintext is never persisted.
type ActionToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	TokenHash string       `db:"token_hash" json:"-"` // SHA256 hash
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its validity window.
func (t *ActionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
