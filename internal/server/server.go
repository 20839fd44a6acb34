// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the account API together and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/identityapp/api/internal/config"
	"github.com/identityapp/api/internal/database"
	"github.com/identityapp/api/internal/handlers"
	"github.com/identityapp/api/internal/middleware"
	"github.com/identityapp/api/internal/repository"
	"github.com/identityapp/api/internal/services/account"
	"github.com/identityapp/api/internal/services/email"
	"github.com/identityapp/api/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db)

	// Drop stale action tokens accumulated while the server was down
	if err := repo.DeleteExpiredActionTokens(ctx); err != nil {
		slog.Warn("failed to purge expired action tokens", "error", err)
	}

	// Services
	tokens, err := token.NewService(&cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	mailer, err := email.NewService(&cfg.SMTP, &cfg.Email, nil)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	accounts := account.NewService(repo, tokens, mailer)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(slog.Default()))

	setupRoutes(e, accounts, tokens)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, accounts *account.Service, tokens *token.Service) {
	e.GET("/health", handlers.Health)

	h := handlers.NewAccount(accounts)

	api := e.Group("/api/account")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.PUT("/confirm-email", h.ConfirmEmail)
	api.POST("/resend-email-confirmation-link/:email", h.ResendConfirmationLink)
	api.POST("/forgot-username-or-password/:email", h.ForgotUsernameOrPassword)
	api.PUT("/reset-password", h.ResetPassword)

	api.GET("/refresh-user-token", h.RefreshUserToken, middleware.RequireAuth(tokens))
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
