package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesEmbedURL(t *testing.T) {
	tests := []struct {
		name    string
		build   func(to, url string) (Message, error)
		subject string
	}{
		{"verification", VerificationMessage, "Verify Email Address"},
		{"password reset", PasswordResetMessage, "Password Reset Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "https://app.example.com/path?code=abc&exp=1"
			msg, err := tt.build("a@example.com", url)
			require.NoError(t, err)

			assert.Equal(t, "a@example.com", msg.To)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Contains(t, msg.Text, url)
			// html/template escapes the ampersand inside the attribute.
			assert.Contains(t, msg.HTML, "code=abc&amp;exp=1")
		})
	}
}

func TestLogMailerReturnsUniqueReceipts(t *testing.T) {
	m := LogMailer{From: "noreply@example.com"}
	a, err := m.Send(context.Background(), Message{To: "a@example.com"})
	require.NoError(t, err)
	b, err := m.Send(context.Background(), Message{To: "a@example.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSMTPMailerComposes(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m := &SMTPMailer{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
			return nil
		},
	}

	msg, err := VerificationMessage("a@example.com", "https://app.example.com/email/verify/x")
	require.NoError(t, err)

	r, err := m.Send(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.True(t, strings.HasSuffix(r.ID, "@smtp.example.com>"))

	body := string(gotBody)
	assert.Contains(t, body, "Subject: Verify Email Address\r\n")
	assert.Contains(t, body, "Message-ID: "+r.ID)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/html; charset=utf-8")
}

func TestSMTPMailerWrapsFailure(t *testing.T) {
	m := &SMTPMailer{
		Host: "smtp.example.com",
		Port: 25,
		send: func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("421 try later")
		},
	}
	_, err := m.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421 try later")
}

func TestRetryMailer(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		retries   uint64
		wantCalls int32
		wantErr   bool
	}{
		{"first try", 0, 3, 1, false},
		{"recovers", 2, 3, 3, false},
		{"gives up", 10, 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			next := MailerFunc(func(context.Context, Message) (Receipt, error) {
				if calls.Add(1) <= tt.failures {
					return Receipt{}, errors.New("temporary")
				}
				return Receipt{ID: "msg-1"}, nil
			})

			m := RetryMailer{Next: next, Retries: tt.retries, Base: time.Millisecond}
			r, err := m.Send(context.Background(), Message{})
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "msg-1", r.ID)
		})
	}
}

func TestRetryMailerMissingReceiptIsFinal(t *testing.T) {
	var calls atomic.Int32
	next := MailerFunc(func(context.Context, Message) (Receipt, error) {
		calls.Add(1)
		return Receipt{}, nil
	})

	_, err := RetryMailer{Next: next, Retries: 3, Base: time.Millisecond}.Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNoReceipt)
	assert.EqualValues(t, 1, calls.Load())
}
