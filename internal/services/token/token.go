// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates session tokens and single-use action tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/identityapp/api/internal/config"
	"github.com/identityapp/api/internal/models"
)

const (
	// ActionTokenLength is the number of random bytes in an action token.
	ActionTokenLength = 32
	// ActionTokenExpiry is how long action tokens are valid.
	ActionTokenExpiry = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// SessionClaims are the signed claims of a session token.
type SessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	jwt.RegisteredClaims
}

// Service mints and validates tokens. Signing key and expiry are fixed at
// construction time.
type Service struct {
	signingKey []byte
	expiry     time.Duration
	issuer     string
}

// NewService creates a token service from the JWT configuration.
func NewService(cfg *config.JWTConfig) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("JWT signing key is required")
	}

	expiry := time.Duration(cfg.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	return &Service{
		signingKey: []byte(cfg.SigningKey),
		expiry:     expiry,
		issuer:     cfg.Issuer,
	}, nil
}

// MintSession creates a signed session token carrying the user's identity claims.
func (s *Service) MintSession(user *models.User) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ValidateSession parses and validates a session token string.
func (s *Service) ValidateSession(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	tok, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NewActionToken generates a new single-use action token.
// Returns (plaintext token, SHA256 hash for storage, expiry time, error).
func NewActionToken() (string, string, time.Time, error) {
	bytes := make([]byte, ActionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	hash := HashToken(plaintext)
	expiresAt := time.Now().Add(ActionTokenExpiry)

	return plaintext, hash, expiresAt, nil
}

// HashToken computes the SHA256 hash of an action token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// EncodeToken transport-encodes an action token for embedding in a link.
func EncodeToken(plaintext string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(plaintext))
}

// DecodeToken reverses EncodeToken. Malformed input is reported as
// ErrInvalidToken; callers cannot tell it apart from a revoked token.
func DecodeToken(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return string(raw), nil
}
