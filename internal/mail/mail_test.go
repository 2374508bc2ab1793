package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPMessage(t *testing.T) {
	msg := OTPMessage("a@example.com", "123456")
	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Your OTP is: 123456. Valid for 15 minutes.", msg.Text)
}

func TestPasswordResetMessage(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	msg := PasswordResetMessage("a@example.com", at)
	assert.Equal(t, "Canteen Password Updated", msg.Subject)
	assert.Contains(t, msg.Text, "2025-03-04 10:30:00")
}

func TestStatementMessage(t *testing.T) {
	msg := StatementMessage("a@example.com", time.March, 2025, "# Bill", "<h1>Bill</h1>")
	assert.Equal(t, "Canteen bill for March 2025", msg.Subject)
	assert.Equal(t, "<h1>Bill</h1>", msg.HTML)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), OTPMessage("a@example.com", "654321")))
	assert.Contains(t, buf.String(), "to=a@example.com")
	assert.Contains(t, buf.String(), "654321")
}

func TestOutbox(t *testing.T) {
	var o Outbox
	require.NoError(t, o.Send(context.Background(), Message{To: "x@example.com"}))
	require.Len(t, o.Sent(), 1)
	assert.Equal(t, "x@example.com", o.Sent()[0].To)
}

func TestSMTPSenderBuild(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "canteen@example.com"})
	require.NoError(t, err)

	m, err := s.build(Message{To: "a@example.com", Subject: "Hi", Text: "plain", HTML: "<p>html</p>"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.True(t, strings.Contains(raw, "Subject: Hi"))
	assert.Contains(t, raw, "text/html")

	_, err = s.build(Message{To: "not an address"})
	assert.Error(t, err)
}
