// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/identityapp/api/internal/database"
	"github.com/identityapp/api/internal/models"
	"github.com/identityapp/api/internal/repository"
)

// TestPassword is the plaintext password of users created by NewTestUser.
const TestPassword = "pw1234"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a test user with TestPassword as password.
func NewTestUser(t *testing.T, repo *repository.Repository, email string, confirmed bool) *models.User {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       email,
		FirstName:      "Test",
		LastName:       "User",
		PasswordHash:   string(hash),
		EmailConfirmed: confirmed,
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	return user
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// SentMail records one delivered mail.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// MailRecorder implements email.Sender and records mail instead of sending it.
type MailRecorder struct {
	Sent []SentMail
	Err  error // returned by Send when set
}

func (m *MailRecorder) Send(to, subject, htmlBody string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// LastMail returns the most recently recorded mail.
func (m *MailRecorder) LastMail(t *testing.T) SentMail {
	t.Helper()
	require.NotEmpty(t, m.Sent)
	return m.Sent[len(m.Sent)-1]
}
