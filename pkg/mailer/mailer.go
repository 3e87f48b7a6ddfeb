// Package mailer delivers the HTML messages used by the password reset flow.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Mailer sends a single HTML message. A non-nil error carries the failure detail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New selects the mailer configured in cfg.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	if cfg.Provider == config.MailProviderSendgrid {
		return NewSendgrid(cfg.SendgridAPIKey, from)
	}
	return NewConsole(from, logger)
}

// Sendgrid delivers mail through the SendGrid v3 API.
type Sendgrid struct {
	key  string
	from *sgmail.Email
}

// NewSendgrid builds a SendGrid mailer.
func NewSendgrid(key string, from mail.Address) *Sendgrid {
	return &Sendgrid{key: key, from: sgmail.NewEmail(from.Name, from.Address)}
}

// Send posts the message and reports transport errors or non-2xx responses.
func (m *Sendgrid) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.key == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail("", to), stripTags(htmlBody), htmlBody)
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// Console writes messages to the log instead of delivering them.
type Console struct {
	from   mail.Address
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// Message is a record of something the Console mailer was asked to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// NewConsole builds a log-only mailer.
func NewConsole(from mail.Address, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{from: from, logger: logger}
}

// Send logs the message and always succeeds for well-formed recipients.
func (m *Console) Send(_ context.Context, to, subject, htmlBody string) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	m.mu.Lock()
	m.sent = append(m.sent, Message{To: to, Subject: subject, HTML: htmlBody})
	m.mu.Unlock()

	m.logger.Info("email",
		zap.String("from", m.from.String()),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", htmlBody),
	)
	return nil
}

// Sent returns a copy of the messages logged so far.
func (m *Console) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
