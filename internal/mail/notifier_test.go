package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type fakeSender struct {
	sent []*gomail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func TestSMTPNotifier_SendOTP(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{client: fake, from: "noreply@example.com"}

	err := n.SendOTP(context.Background(), "alice@example.com", "123456", 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	msg := fake.sent[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)
	assert.Equal(t, []string{otpSubject}, msg.GetGenHeader(gomail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "valid for 5 minutes")
}

func TestSMTPNotifier_SendFailure_ReturnsError(t *testing.T) {
	sendErr := errors.New("connection refused")
	n := &SMTPNotifier{client: &fakeSender{err: sendErr}, from: "noreply@example.com"}

	err := n.SendOTP(context.Background(), "alice@example.com", "123456", 5*time.Minute)
	assert.ErrorIs(t, err, sendErr)
}

func TestSMTPNotifier_InvalidRecipient_ReturnsError(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{client: fake, from: "noreply@example.com"}

	err := n.SendOTP(context.Background(), "not an address", "123456", 5*time.Minute)
	assert.Error(t, err)
	assert.Empty(t, fake.sent)
}

func TestNewSMTPNotifier_FromDefaultsToUsername(t *testing.T) {
	n, err := NewSMTPNotifier(Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", n.from)
}

func TestOTPBody(t *testing.T) {
	assert.Equal(t,
		"Your OTP for password reset is: 654321. It is valid for 5 minutes.",
		otpBody("654321", 5*time.Minute),
	)
}

func TestDisabledNotifier_ReturnsErrNotConfigured(t *testing.T) {
	err := DisabledNotifier{}.SendOTP(context.Background(), "alice@example.com", "123456", 5*time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
