// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends transactional mail with account action links.
package email

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/identityapp/api/internal/config"
	"github.com/identityapp/api/internal/models"
)

// Sender delivers a single HTML mail. The account service depends on this
// contract, not on SMTP.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Service builds account mails and delivers them over SMTP.
type Service struct {
	smtp   *config.SMTPConfig
	links  *config.EmailConfig
	sender Sender
}

// NewService creates a new email service. A nil sender means SMTP delivery
// with the given config; tests inject their own Sender.
func NewService(smtp *config.SMTPConfig, links *config.EmailConfig, sender Sender) (*Service, error) {
	if sender == nil {
		if smtp.Host == "" {
			return nil, fmt.Errorf("SMTP host is required")
		}
		if smtp.From == "" {
			return nil, fmt.Errorf("SMTP from address is required")
		}
		sender = &smtpSender{cfg: smtp}
	}

	return &Service{
		smtp:   smtp,
		links:  links,
		sender: sender,
	}, nil
}

// SendConfirmation mails the email-confirmation link to a user.
func (s *Service) SendConfirmation(user *models.User, encodedToken string) error {
	link := s.actionLink(s.links.ConfirmationPath, encodedToken, user.Email)

	body := fmt.Sprintf("<p>Hello %s,</p>"+
		"<p>Please confirm your email address by clicking on the following link.</p>"+
		"<p><a href=%q>Click here</a></p>"+
		"<p>Thank you,</p>"+
		"<br>%s", user.DisplayName(), link, s.links.ApplicationName)

	return s.sender.Send(user.Email, "Confirm your email", body)
}

// SendPasswordReset mails the password-reset link to a user. The body also
// carries the username, so the mail doubles as username recovery.
func (s *Service) SendPasswordReset(user *models.User, encodedToken string) error {
	link := s.actionLink(s.links.ResetPasswordPath, encodedToken, user.Email)

	body := fmt.Sprintf("<p>Hello %s,</p>"+
		"<p>Username: %s</p>"+
		"<p>In order to reset your password, please click on the following link.</p>"+
		"<p><a href=%q>Click here</a></p>"+
		"<p>Thank you,</p>"+
		"<br>%s", user.DisplayName(), user.Username, link, s.links.ApplicationName)

	return s.sender.Send(user.Email, "Forgot username or password", body)
}

// actionLink builds the client URL that completes an account action.
func (s *Service) actionLink(path, encodedToken, email string) string {
	base := strings.TrimSuffix(s.links.ClientURL, "/")
	query := url.Values{}
	query.Set("token", encodedToken)
	query.Set("email", email)
	return fmt.Sprintf("%s/%s?%s", base, strings.TrimPrefix(path, "/"), query.Encode())
}

// smtpSender delivers mail via SMTP using go-mail.
type smtpSender struct {
	cfg *config.SMTPConfig
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
