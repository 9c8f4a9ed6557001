// Package email sends notification mail through a log, SMTP or SendGrid provider.
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
)

// Message is one outgoing e-mail
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Provider names accepted by New
const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Config selects and configures a provider
type Config struct {
	Provider       string
	Host           string
	Port           int
	Username       string
	Password       string
	UseTLS         bool
	FromName       string
	FromEmail      string
	SendGridAPIKey string
	BaseURL        string
}

// New builds the mailer for cfg.Provider. SMTP without credentials falls back to logging.
func New(cfg Config, logger zerolog.Logger) Mailer {
	switch cfg.Provider {
	case ProviderSendGrid:
		if cfg.SendGridAPIKey != "" {
			return NewSendGridMailer(cfg, logger)
		}
		logger.Warn().Msg("SendGrid API key not configured, e-mails will only be logged")
	case ProviderSMTP:
		if cfg.Username != "" && cfg.Password != "" {
			return NewSMTPMailer(cfg, logger)
		}
		logger.Warn().Msg("SMTP credentials not configured, e-mails will only be logged")
	}
	return NewLogMailer(logger)
}

// StatusChangeMessage renders the mail sent when an application changes status
func StatusChangeMessage(toEmail, toName, scholarshipTitle, statusLabel, comments, baseURL string) Message {
	subject := fmt.Sprintf("Application update: %s", scholarshipTitle)

	var text strings.Builder
	fmt.Fprintf(&text, "Hello %s,\n\nYour application for %s is now: %s.\n", toName, scholarshipTitle, statusLabel)
	if comments != "" {
		fmt.Fprintf(&text, "\nReviewer comments:\n%s\n", comments)
	}
	if baseURL != "" {
		fmt.Fprintf(&text, "\nSign in at %s to view the details.\n", baseURL)
	}
	text.WriteString("\nScholarSphere Scholarship Office\n")

	var body strings.Builder
	body.WriteString(`<html><body><div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&body, "<h2>%s</h2>", html.EscapeString(subject))
	fmt.Fprintf(&body, "<p>Hello %s,</p>", html.EscapeString(toName))
	fmt.Fprintf(&body, "<p>Your application for <strong>%s</strong> is now: <strong>%s</strong>.</p>",
		html.EscapeString(scholarshipTitle), html.EscapeString(statusLabel))
	if comments != "" {
		fmt.Fprintf(&body, "<p>Reviewer comments:</p><blockquote>%s</blockquote>", html.EscapeString(comments))
	}
	if baseURL != "" {
		fmt.Fprintf(&body, `<p><a href="%s">Open ScholarSphere</a></p>`, html.EscapeString(baseURL))
	}
	body.WriteString("<p>Best regards,<br>The Scholarship Office</p></div></body></html>")

	return Message{
		ToEmail:  toEmail,
		ToName:   toName,
		Subject:  subject,
		HTMLBody: body.String(),
		TextBody: text.String(),
	}
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Str("toEmail", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("E-mail not sent, log provider active")
	return nil
}
