// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"github.com/identityapp/api/internal/ctxkeys"
	"github.com/identityapp/api/internal/services/token"
)

// SetClaims stores validated session claims in the context.
func SetClaims(ctx context.Context, claims *token.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxkeys.Session{}, claims)
}

// GetClaims returns the session claims from the context, or nil if the
// request is not authenticated.
func GetClaims(ctx context.Context) *token.SessionClaims {
	if claims, ok := ctx.Value(ctxkeys.Session{}).(*token.SessionClaims); ok {
		return claims
	}
	return nil
}

// IsAuthenticated returns true if the context carries validated claims.
func IsAuthenticated(ctx context.Context) bool {
	return GetClaims(ctx) != nil
}
