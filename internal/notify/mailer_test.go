package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "user", "pass", "Blog <no-reply@example.com>")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{Subject: "Reset your password", HTML: "<p>hi</p>", To: "a@x.com"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "Blog <no-reply@example.com>", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "To: a@x.com\r\n")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html; charset=\"utf-8\"")
	assert.Contains(t, string(gotMsg), "\r\n\r\n<p>hi</p>")
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "", "", "no-reply@example.com")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), Message{To: "a@x.com"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "", "", "no-reply@example.com")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not run with a cancelled context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@x.com"}), context.Canceled)
}

func TestResetRequestedEmail_EscapesInput(t *testing.T) {
	msg, err := ResetRequestedEmail("a@x.com", "<script>alert(1)</script>", "https://blog/reset-password/ab12", "24 hours")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", msg.To)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, `href="https://blog/reset-password/ab12"`)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), Message{To: "a@x.com"}))
}
