package mailer

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/pkg/config"
)

func TestConsoleRecordsMessages(t *testing.T) {
	m := NewConsole(mail.Address{Address: "no-reply@example.com"}, zap.NewNop())

	require.NoError(t, m.Send(context.Background(), "a@example.com", "subject", "<p>hi</p>"))
	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@example.com", sent[0].To)
	assert.Equal(t, "<p>hi</p>", sent[0].HTML)
}

func TestConsoleRejectsBadRecipient(t *testing.T) {
	m := NewConsole(mail.Address{Address: "no-reply@example.com"}, nil)
	assert.Error(t, m.Send(context.Background(), "not-an-address", "s", "b"))
	assert.Empty(t, m.Sent())
}

func TestSendgridWithoutKeyFails(t *testing.T) {
	m := NewSendgrid("", mail.Address{Address: "no-reply@example.com"})
	err := m.Send(context.Background(), "a@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestNewSelectsProvider(t *testing.T) {
	_, isSendgrid := New(config.MailConfig{Provider: config.MailProviderSendgrid}, nil).(*Sendgrid)
	assert.True(t, isSendgrid)
	_, isConsole := New(config.MailConfig{Provider: config.MailProviderConsole}, nil).(*Console)
	assert.True(t, isConsole)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Your code is: 123456.", stripTags("Your code is: <strong>123456</strong>."))
}
