package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"bluestore/server/internal/config"
)

// Sender defines the interface for sending notification emails (listing and
// KYC review decisions). Implementations must be safe for concurrent use by
// the task workers.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender picks an implementation from configuration: SMTP when a host is
// configured, otherwise a log-only sender for development.
func NewSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{}
	}
	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.cfg.SmtpFromAddress,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	// net/smtp has no context support; rely on the dial timeout of the
	// underlying connection.
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LoggingSender writes emails to the log instead of delivering them.
type LoggingSender struct{}

func (s *LoggingSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("EMAIL (not sent) to=%s subject=%q body=%q", to, subject, body)
	return nil
}
