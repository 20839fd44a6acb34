// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identityapp/api/internal/auth"
	"github.com/identityapp/api/internal/config"
	"github.com/identityapp/api/internal/middleware"
	"github.com/identityapp/api/internal/models"
	"github.com/identityapp/api/internal/services/token"
	"github.com/identityapp/api/internal/testutil"
)

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	tokens, err := token.NewService(&config.JWTConfig{SigningKey: "test-signing-key"})
	require.NoError(t, err)
	return tokens
}

// claimsEcho is the protected handler used by the middleware tests. It
// reports the subject the middleware put into the request context.
func claimsEcho(c echo.Context) error {
	claims := auth.GetClaims(c.Request().Context())
	if claims == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.String(http.StatusOK, claims.Subject)
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	tokens := newTokenService(t)

	session, err := tokens.MintSession(&models.User{
		ID:        "user-1",
		Email:     "ann@x.com",
		FirstName: "Ann",
		LastName:  "Lee",
	})
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/account/refresh-user-token", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+session)

	require.NoError(t, middleware.RequireAuth(tokens)(claimsEcho)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireAuth_Rejections(t *testing.T) {
	e := echo.New()
	tokens := newTokenService(t)

	otherTokens, err := token.NewService(&config.JWTConfig{SigningKey: "another-key"})
	require.NoError(t, err)
	foreign, err := otherTokens.MintSession(&models.User{ID: "user-1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwdw"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong signing key", "Bearer " + foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/account/refresh-user-token", nil)
			if tt.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tt.header)
			}

			require.NoError(t, middleware.RequireAuth(tokens)(claimsEcho)(c))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAuth_CaseInsensitiveScheme(t *testing.T) {
	e := echo.New()
	tokens := newTokenService(t)

	session, err := tokens.MintSession(&models.User{ID: "user-1"})
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/account/refresh-user-token", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "bearer "+session)

	require.NoError(t, middleware.RequireAuth(tokens)(claimsEcho)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
}
