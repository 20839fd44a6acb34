// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identityapp/api/internal/config"
	"github.com/identityapp/api/internal/models"
	"github.com/identityapp/api/internal/services/token"
)

const testSigningKey = "test-signing-key-for-unit-tests"

func newTestService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(&config.JWTConfig{
		SigningKey:  testSigningKey,
		ExpiryHours: 1,
		Issuer:      "identityapp-test",
	})
	require.NoError(t, err)
	return svc
}

func testUser() *models.User {
	return &models.User{
		ID:        "user-1",
		Email:     "ann@x.com",
		Username:  "ann@x.com",
		FirstName: "Ann",
		LastName:  "Lee",
	}
}

func TestNewService_MissingKey(t *testing.T) {
	_, err := token.NewService(&config.JWTConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key")
}

func TestMintSession_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	signed, err := svc.MintSession(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.ValidateSession(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ann@x.com", claims.Email)
	assert.Equal(t, "Ann", claims.FirstName)
	assert.Equal(t, "Lee", claims.LastName)
	assert.Equal(t, "identityapp-test", claims.Issuer)

	// Validity window: iat now, exp one hour out
	assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Minute)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateSession_Tampered(t *testing.T) {
	svc := newTestService(t)

	signed, err := svc.MintSession(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateSession(signed + "x")

	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestValidateSession_WrongKey(t *testing.T) {
	svc := newTestService(t)

	other, err := token.NewService(&config.JWTConfig{
		SigningKey:  "a-different-signing-key",
		ExpiryHours: 1,
		Issuer:      "identityapp-test",
	})
	require.NoError(t, err)

	signed, err := other.MintSession(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateSession(signed)

	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestValidateSession_Expired(t *testing.T) {
	svc := newTestService(t)

	// Craft a token that expired an hour ago, signed with the same key
	now := time.Now()
	claims := &token.SessionClaims{
		Email: "ann@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identityapp-test",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	_, err = svc.ValidateSession(signed)

	assert.ErrorIs(t, err, token.ErrExpiredToken)
}

func TestValidateSession_WrongIssuer(t *testing.T) {
	svc := newTestService(t)

	other, err := token.NewService(&config.JWTConfig{
		SigningKey:  testSigningKey,
		ExpiryHours: 1,
		Issuer:      "someone-else",
	})
	require.NoError(t, err)

	signed, err := other.MintSession(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateSession(signed)

	assert.Error(t, err)
}

func TestNewActionToken(t *testing.T) {
	plaintext, hash, expiresAt, err := token.NewActionToken()

	require.NoError(t, err)

	// Plaintext should be 64 hex chars (32 bytes)
	assert.Len(t, plaintext, 64)

	// Hash should be 64 hex chars (SHA256 = 32 bytes)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, plaintext, hash)
	assert.Equal(t, token.HashToken(plaintext), hash)

	assert.WithinDuration(t, time.Now().Add(token.ActionTokenExpiry), expiresAt, time.Minute)
}

func TestNewActionToken_Unique(t *testing.T) {
	seen := make(map[string]bool)

	for range 10 {
		plaintext, _, _, err := token.NewActionToken()
		require.NoError(t, err)
		assert.False(t, seen[plaintext], "duplicate token generated")
		seen[plaintext] = true
	}
}

func TestEncodeDecodeToken(t *testing.T) {
	plaintext, _, _, err := token.NewActionToken()
	require.NoError(t, err)

	encoded := token.EncodeToken(plaintext)
	assert.NotEqual(t, plaintext, encoded)

	decoded, err := token.DecodeToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestDecodeToken_Malformed(t *testing.T) {
	_, err := token.DecodeToken("%%% not base64url %%%")

	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
