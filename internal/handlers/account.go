// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identityapp/api/internal/auth"
	"github.com/identityapp/api/internal/services/account"
)

// AccountHandlers contains handlers for the account lifecycle.
type AccountHandlers struct {
	accounts *account.Service
}

// NewAccount creates a new AccountHandlers instance.
func NewAccount(accounts *account.Service) *AccountHandlers {
	return &AccountHandlers{accounts: accounts}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConfirmEmailRequest is the request body for email confirmation.
type ConfirmEmailRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse carries the identity the client session manager stores.
type UserResponse struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JWT       string `json:"jwt"`
}

// MessageResponse is the generic success payload.
type MessageResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Register creates a new unconfirmed account and sends the confirmation mail.
func (h *AccountHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	_, err := h.accounts.Register(c.Request().Context(), account.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})

	var validationErr *account.ValidationError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{
			Title:   "Account created",
			Message: "Your account has been created. Please confirm your email address.",
		})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": validationErr.Fields})
	case errors.Is(err, account.ErrDuplicateEmail):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "An existing account is using " + req.Email + ". Please try with another email address.",
		})
	case errors.Is(err, account.ErrNotificationFailed):
		// The account exists; only the confirmation mail failed.
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Failed to send email. Please contact admin.",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register"})
	}
}

// Login verifies credentials and returns a session token.
func (h *AccountHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user, session, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, UserResponse{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			JWT:       session,
		})
	case errors.Is(err, account.ErrAccountNotFound), errors.Is(err, account.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
	case errors.Is(err, account.ErrEmailNotConfirmed):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Please confirm your email address"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to login"})
	}
}

// RefreshUserToken re-issues a session token from current account state.
// Runs behind the bearer-token middleware.
func (h *AccountHandlers) RefreshUserToken(c echo.Context) error {
	claims := auth.GetClaims(c.Request().Context())
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	user, session, err := h.accounts.RefreshSession(c.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account no longer exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to refresh token"})
	}

	return c.JSON(http.StatusOK, UserResponse{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		JWT:       session,
	})
}

// ConfirmEmail completes the email confirmation, exactly once.
func (h *AccountHandlers) ConfirmEmail(c echo.Context) error {
	var req ConfirmEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	err := h.accounts.ConfirmEmail(c.Request().Context(), req.Email, req.Token)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{
			Title:   "Email confirmed",
			Message: "Your email address is confirmed. You can login now.",
		})
	case errors.Is(err, account.ErrAccountNotFound):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "This email address has not been registered yet"})
	case errors.Is(err, account.ErrAlreadyConfirmed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Your email was confirmed before. Please login to your account."})
	case errors.Is(err, account.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid token. Please try again."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to confirm email"})
	}
}

// ResendConfirmationLink re-issues a confirmation token and mails it.
func (h *AccountHandlers) ResendConfirmationLink(c echo.Context) error {
	addr := c.Param("email")
	if addr == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid email"})
	}

	err := h.accounts.ResendConfirmation(c.Request().Context(), addr)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{
			Title:   "Confirmation link sent",
			Message: "Please confirm your email address.",
		})
	case errors.Is(err, account.ErrAccountNotFound):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "This email address has not been registered yet"})
	case errors.Is(err, account.ErrAlreadyConfirmed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Your email was confirmed before. Please login to your account."})
	case errors.Is(err, account.ErrNotificationFailed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to send email. Please contact admin."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to resend confirmation link"})
	}
}

// ForgotUsernameOrPassword mails a password-reset link with the username.
func (h *AccountHandlers) ForgotUsernameOrPassword(c echo.Context) error {
	addr := c.Param("email")
	if addr == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid email"})
	}

	err := h.accounts.RequestPasswordReset(c.Request().Context(), addr)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{
			Title:   "Forgot username or password email sent",
			Message: "Please check your email.",
		})
	case errors.Is(err, account.ErrAccountNotFound):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "This email address has not been registered yet"})
	case errors.Is(err, account.ErrEmailNotConfirmed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please confirm your email address first"})
	case errors.Is(err, account.ErrNotificationFailed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to send email. Please contact admin."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to send reset email"})
	}
}

// ResetPassword replaces the password using a mailed reset token.
func (h *AccountHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	err := h.accounts.ResetPassword(c.Request().Context(), req.Email, req.Token, req.NewPassword)

	var validationErr *account.ValidationError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{
			Title:   "Password reset success",
			Message: "Your password has been reset.",
		})
	case errors.Is(err, account.ErrAccountNotFound):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "This email address has not been registered yet"})
	case errors.Is(err, account.ErrEmailNotConfirmed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please confirm your email address first"})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": validationErr.Fields})
	case errors.Is(err, account.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid token. Please try again."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reset password"})
	}
}
