// Copyright (c) 2026 Optica. All rights reserved.

/*
Package email delivers transactional mail for the Optica platform.

It currently sends a single kind of message: the 6-digit verification code
used to confirm account email addresses during registration.

Architecture:

  - Mailer: The interface consumed by domain services.
  - SMTPMailer: Production implementation speaking SMTP with STARTTLS.
  - LogMailer: Development fallback that writes codes to the structured log.

The split lets the auth service stay oblivious to delivery details and lets
local environments run without an SMTP relay.
*/
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"
)

const dialTimeout = 10 * time.Second

// Mailer is the delivery contract used by the auth service.
type Mailer interface {
	// SendVerificationCode delivers the email-confirmation code to the recipient.
	SendVerificationCode(ctx context.Context, recipient, username, code string) error
}

// # SMTP Delivery

// SMTPConfig holds the relay settings for the [SMTPMailer].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an external SMTP relay using STARTTLS.
type SMTPMailer struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPMailer creates a production mailer for the given relay settings.
func NewSMTPMailer(config SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{config: config, logger: logger}
}

// SendVerificationCode implements [Mailer] over SMTP.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, recipient, username, code string) error {
	subject := "Your Optica verification code"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"Your Optica verification code is: %s\r\n\r\n"+
			"The code expires in 15 minutes. If you did not request it, you can ignore this message.\r\n",
		username, code,
	)

	if err := m.send(ctx, recipient, subject, body); err != nil {
		return fmt.Errorf("email_delivery_failed: %w", err)
	}

	m.logger.InfoContext(ctx, "verification_email_sent",
		slog.String("recipient", recipient),
	)

	return nil
}

// send builds an RFC 2822 message and pushes it through STARTTLS.
func (m *SMTPMailer) send(ctx context.Context, recipient, subject, body string) error {
	from := mail.Address{Name: "Optica", Address: m.config.From}

	// Build RFC 2822 message.
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", recipient))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, m.config.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: m.config.Host, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if m.config.Username != "" {
		auth := gosmtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", recipient, err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := writer.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}

	return client.Quit()
}

// # Development Fallback

// LogMailer writes verification codes to the structured log instead of
// sending real mail. Intended for local development only.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates the development fallback mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerificationCode implements [Mailer] by logging the code.
func (m *LogMailer) SendVerificationCode(ctx context.Context, recipient, username, code string) error {
	m.logger.InfoContext(ctx, "verification_email_logged",
		slog.String("recipient", recipient),
		slog.String("username", username),
		slog.String("code", code),
	)
	return nil
}
