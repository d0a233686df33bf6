// Package mail はパスワードリセット用ワンタイムコードのメール送信を提供する。
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// ErrNotConfigured はSMTPの認証情報が設定されていない場合に返されるエラー。
var ErrNotConfigured = errors.New("mail transport is not configured")

const otpSubject = "Password Reset OTP"

// Notifier はワンタイムコードをユーザーに届けるインターフェース。
type Notifier interface {
	SendOTP(ctx context.Context, to, otp string, ttl time.Duration) error
}

// Config はSMTP送信の設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sender はgo-mailクライアントのうち送信に必要な部分。
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPNotifier はSMTPサーバー経由でメールを送信するNotifier。
type SMTPNotifier struct {
	client sender
	from   string
}

// NewSMTPNotifier はSMTPNotifierを生成する。
// STARTTLSを必須とし、PLAIN認証で接続する。
func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPNotifier{client: client, from: from}, nil
}

// SendOTP はワンタイムコードを記載したメールを送信する。
func (n *SMTPNotifier) SendOTP(ctx context.Context, to, otp string, ttl time.Duration) error {
	msg, err := buildOTPMessage(n.from, to, otp, ttl)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send OTP mail: %w", err)
	}
	return nil
}

func buildOTPMessage(from, to, otp string, ttl time.Duration) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(otpSubject)
	msg.SetBodyString(gomail.TypeTextPlain, otpBody(otp, ttl))
	return msg, nil
}

func otpBody(otp string, ttl time.Duration) string {
	return fmt.Sprintf("Your OTP for password reset is: %s. It is valid for %d minutes.", otp, int(ttl.Minutes()))
}

// DisabledNotifier はSMTPが未設定の環境で使うNotifier。
// 送信は行わず、常にErrNotConfiguredを返す。
type DisabledNotifier struct{}

// SendOTP は警告ログを出力してErrNotConfiguredを返す。
func (DisabledNotifier) SendOTP(ctx context.Context, to, _ string, _ time.Duration) error {
	slog.WarnContext(ctx, "otp mail not sent: SMTP credentials are not configured",
		slog.String("to", to),
	)
	return ErrNotConfigured
}

var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = DisabledNotifier{}
)
