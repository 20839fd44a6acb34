// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account enforces the account lifecycle: registration, email
// confirmation, login, password reset and session refresh.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/identityapp/api/internal/models"
	"github.com/identityapp/api/internal/repository"
	"github.com/identityapp/api/internal/services/email"
	"github.com/identityapp/api/internal/services/token"
)

var (
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrAlreadyConfirmed   = errors.New("email address already confirmed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotificationFailed = errors.New("failed to send email")
)

// Field length bounds for names and passwords.
const (
	minFieldLen = 3
	maxFieldLen = 15
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// ValidationError carries per-field constraint violations.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, field+": "+msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Service orchestrates the account flows between the credential store, the
// token issuer and the notification dispatcher.
type Service struct {
	repo   *repository.Repository
	tokens *token.Service
	mailer *email.Service
}

// NewService creates a new account service.
func NewService(repo *repository.Repository, tokens *token.Service, mailer *email.Service) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
	}
}

// NormalizeEmail lowercases an email address for use as the uniqueness key.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new unconfirmed account and mails a confirmation link.
// A dispatch failure is reported as ErrNotificationFailed but does not roll
// back the already-committed account; ResendConfirmation is the recovery path.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if err := validateRegistration(&params); err != nil {
		return nil, err
	}

	addr := NormalizeEmail(params.Email)

	exists, err := s.repo.EmailExists(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Names are stored lowercase, like the email uniqueness key.
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        addr,
		Username:     addr,
		FirstName:    strings.ToLower(params.FirstName),
		LastName:     strings.ToLower(params.LastName),
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// A concurrent registration may win the race between the existence
		// check and the insert; the unique index reports it.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", addr)

	if err := s.sendConfirmation(ctx, user); err != nil {
		slog.Warn("confirmation_mail_failed", "user_id", user.ID, "error", err)
		return user, ErrNotificationFailed
	}

	return user, nil
}

// Login verifies credentials and mints a session token. Logging in before
// email confirmation fails even with correct credentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.repo.GetUserByUsername(ctx, NormalizeEmail(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "username", username, "reason", "account_not_found")
			return nil, "", ErrAccountNotFound
		}
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}

	if !user.EmailConfirmed {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "email_not_confirmed")
		return nil, "", ErrEmailNotConfirmed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, "", ErrInvalidCredentials
	}

	session, err := s.tokens.MintSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint session token: %w", err)
	}

	slog.Info("login_success", "user_id", user.ID)
	return user, session, nil
}

// ConfirmEmail transitions an account to confirmed, exactly once.
func (s *Service) ConfirmEmail(ctx context.Context, addr, encodedToken string) error {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(addr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if user.EmailConfirmed {
		return ErrAlreadyConfirmed
	}

	if err := s.consumeActionToken(ctx, user, models.PurposeConfirmEmail, encodedToken); err != nil {
		return err
	}

	if err := s.repo.ConfirmUserEmail(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	slog.Info("email_confirmed", "user_id", user.ID)
	return nil
}

// ResendConfirmation issues a fresh confirmation token and mails it.
// Outstanding tokens stay valid.
func (s *Service) ResendConfirmation(ctx context.Context, addr string) error {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(addr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if user.EmailConfirmed {
		return ErrAlreadyConfirmed
	}

	if err := s.sendConfirmation(ctx, user); err != nil {
		slog.Warn("confirmation_mail_failed", "user_id", user.ID, "error", err)
		return ErrNotificationFailed
	}

	return nil
}

// RequestPasswordReset issues a reset token and mails it. The account must be
// confirmed before a reset is allowed.
func (s *Service) RequestPasswordReset(ctx context.Context, addr string) error {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(addr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if !user.EmailConfirmed {
		return ErrEmailNotConfirmed
	}

	encoded, err := s.issueActionToken(ctx, user, models.PurposeResetPassword)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(user, encoded); err != nil {
		slog.Warn("reset_mail_failed", "user_id", user.ID, "error", err)
		return ErrNotificationFailed
	}

	slog.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword replaces the password hash. The token is consumed on success;
// a rejected token leaves the password unchanged.
func (s *Service) ResetPassword(ctx context.Context, addr, encodedToken, newPassword string) error {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(addr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if !user.EmailConfirmed {
		return ErrEmailNotConfirmed
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	if err := s.consumeActionToken(ctx, user, models.PurposeResetPassword, encodedToken); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_reset", "user_id", user.ID)
	return nil
}

// RefreshSession re-derives session claims from the current account state,
// so renamed users get fresh claims without logging in again.
func (s *Service) RefreshSession(ctx context.Context, userID string) (*models.User, string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrAccountNotFound
		}
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}

	session, err := s.tokens.MintSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint session token: %w", err)
	}

	return user, session, nil
}

// sendConfirmation issues a confirmation token and mails the link.
func (s *Service) sendConfirmation(ctx context.Context, user *models.User) error {
	encoded, err := s.issueActionToken(ctx, user, models.PurposeConfirmEmail)
	if err != nil {
		return err
	}
	return s.mailer.SendConfirmation(user, encoded)
}

// issueActionToken generates, stores and transport-encodes a fresh action token.
func (s *Service) issueActionToken(ctx context.Context, user *models.User, purpose models.TokenPurpose) (string, error) {
	plaintext, hash, expiresAt, err := token.NewActionToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate action token: %w", err)
	}

	if err := s.repo.CreateActionToken(ctx, user.ID, purpose, hash, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store action token: %w", err)
	}

	return token.EncodeToken(plaintext), nil
}

// consumeActionToken validates an encoded token against the store and deletes
// it on success. Decode failures, foreign tokens and expired tokens are all
// reported as ErrInvalidToken.
func (s *Service) consumeActionToken(ctx context.Context, user *models.User, purpose models.TokenPurpose, encodedToken string) error {
	plaintext, err := token.DecodeToken(encodedToken)
	if err != nil {
		return ErrInvalidToken
	}

	row, err := s.repo.GetActionToken(ctx, user.ID, purpose, token.HashToken(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to look up action token: %w", err)
	}

	if row.Expired(time.Now()) {
		_ = s.repo.DeleteActionToken(ctx, row.ID)
		return ErrInvalidToken
	}

	if err := s.repo.DeleteActionToken(ctx, row.ID); err != nil {
		return fmt.Errorf("failed to consume action token: %w", err)
	}

	return nil
}

func validateRegistration(params *RegisterParams) error {
	fields := map[string]string{}

	if msg := checkLength("first name", params.FirstName); msg != "" {
		fields["firstName"] = msg
	}
	if msg := checkLength("last name", params.LastName); msg != "" {
		fields["lastName"] = msg
	}
	if msg := checkLength("password", params.Password); msg != "" {
		fields["password"] = msg
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		fields["email"] = "must be a well-formed email address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validatePassword(password string) error {
	if msg := checkLength("password", password); msg != "" {
		return &ValidationError{Fields: map[string]string{"newPassword": msg}}
	}
	return nil
}

func checkLength(field, value string) string {
	if n := utf8.RuneCountInString(value); n < minFieldLen || n > maxFieldLen {
		return fmt.Sprintf("%s must be between %d and %d characters", field, minFieldLen, maxFieldLen)
	}
	return ""
}
