// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	JWT      JWTConfig
	Email    EmailConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host    string
	Port    int
	BaseURL string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type JWTConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SigningKey  string
	ExpiryHours int
	Issuer      string
}

// EmailConfig describes how action links in transactional mail are built.
// ClientURL is the base URL of the single-page client; the paths are the
// client routes that complete email confirmation and password reset.
type EmailConfig struct {
	ApplicationName   string
	ClientURL         string
	ConfirmationPath  string
	ResetPasswordPath string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    cmd.String("host"),
			Port:    int(cmd.Int("port")),
			BaseURL: cmd.String("base-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		JWT: JWTConfig{
			SigningKey:  cmd.String("jwt-signing-key"),
			ExpiryHours: int(cmd.Int("jwt-expiry-hours")),
			Issuer:      cmd.String("jwt-issuer"),
		},
		Email: EmailConfig{
			ApplicationName:   cmd.String("application-name"),
			ClientURL:         cmd.String("client-url"),
			ConfirmationPath:  cmd.String("confirmation-path"),
			ResetPasswordPath: cmd.String("reset-password-path"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	if cfg.Email.ClientURL == "" {
		cfg.Email.ClientURL = cfg.Server.BaseURL
	}

	return cfg
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	// Hide the default HTTP port in the URL
	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the API server",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "From address for transactional mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Display name for the from address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// JWT flags
		&cli.StringFlag{
			Name:    "jwt-signing-key",
			Usage:   "HMAC signing key for session tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SIGNING_KEY"), toml.TOML("jwt.signing_key", configFile)),
		},
		&cli.IntFlag{
			Name:    "jwt-expiry-hours",
			Value:   24,
			Usage:   "Session token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_EXPIRY_HOURS"), toml.TOML("jwt.expiry_hours", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Value:   "identityapp",
			Usage:   "Issuer claim for session tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ISSUER"), toml.TOML("jwt.issuer", configFile)),
		},
		// Email link flags
		&cli.StringFlag{
			Name:    "application-name",
			Value:   "Identity App",
			Usage:   "Application name shown in transactional mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APPLICATION_NAME"), toml.TOML("email.application_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "client-url",
			Usage:   "Base URL of the single-page client (defaults to base-url)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CLIENT_URL"), toml.TOML("email.client_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "confirmation-path",
			Value:   "account/confirm-email",
			Usage:   "Client route that completes email confirmation",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CONFIRMATION_PATH"), toml.TOML("email.confirmation_path", configFile)),
		},
		&cli.StringFlag{
			Name:    "reset-password-path",
			Value:   "account/reset-password",
			Usage:   "Client route that completes a password reset",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_PASSWORD_PATH"), toml.TOML("email.reset_password_path", configFile)),
		},
	}
}
