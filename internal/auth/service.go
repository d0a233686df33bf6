// Package auth はサインアップ・ログイン・パスワードリセットの認証フローを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/wealthio/internal/mail"
	"github.com/hitoshi/wealthio/internal/metrics"
	"github.com/hitoshi/wealthio/internal/model"
	"github.com/hitoshi/wealthio/internal/repository"
)

// OTPLength はワンタイムコードの桁数。
const OTPLength = 6

// DefaultOTPTTL はワンタイムコードのデフォルト有効期間。
const DefaultOTPTTL = 5 * time.Minute

// メトリクスのイベント名
const (
	eventSignup        = "signup"
	eventLogin         = "login"
	eventOTPRequest    = "otp_request"
	eventOTPVerify     = "otp_verify"
	eventPasswordReset = "password_reset"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer はトークン発行のインターフェース。
type TokenIssuer interface {
	Issue(identity model.Identity) (string, error)
}

// TextSanitizer は表示用テキストの無害化のインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	OTPTTL time.Duration
}

// AuthResult はサインアップ・ログイン成功時の結果。
type AuthResult struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	resets    repository.ResetEntryRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	notifier  mail.Notifier
	sanitizer TextSanitizer
	metrics   metrics.MetricsCollector
	config    ServiceConfig

	now         func() time.Time
	generateOTP func() (string, error)
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	resets repository.ResetEntryRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	notifier mail.Notifier,
	sanitizer TextSanitizer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.OTPTTL <= 0 {
		config.OTPTTL = DefaultOTPTTL
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		users:       users,
		resets:      resets,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		sanitizer:   sanitizer,
		metrics:     collector,
		config:      config,
		now:         time.Now,
		generateOTP: GenerateOTP,
	}
}

// NormalizeEmail はメールアドレスの前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateOTP は暗号論的乱数から100000〜999999の6桁のコードを生成する。
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// CreateUser はユーザーを作成する。トークンは発行しない。
// 登録済みのメールアドレスの場合はUSER_EXISTSエラーを返す。
func (s *Service) CreateUser(ctx context.Context, name, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if s.sanitizer != nil {
		name = s.sanitizer.Sanitize(name)
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return nil, model.NewValidationError(model.FieldError{Field: "name", Message: "Name must be at most 255 characters"})
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// FindByEmailとCreateの間に同じメールアドレスで登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Signup はユーザーを作成し、トークンを発行する。
func (s *Service) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, name, email, password)
	if err != nil {
		s.metrics.RecordAuthEvent(eventSignup, metrics.OutcomeFailure)
		return nil, err
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(eventSignup, metrics.OutcomeSuccess)
	slog.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// ユーザーが存在しない場合とパスワードが一致しない場合は区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordAuthEvent(eventLogin, metrics.OutcomeFailure)
		slog.InfoContext(ctx, "login failed", slog.Bool("user_exists", user != nil))
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(eventLogin, metrics.OutcomeSuccess)
	slog.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

func (s *Service) issue(user *model.User) (string, error) {
	token, err := s.tokens.Issue(model.Identity{ID: user.ID, Name: user.Name})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// CurrentUser はトークンの識別情報に対応するユーザーを返す。
// ユーザーが存在しない場合は401相当のエラーを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("Token Verification Failed")
	}
	return user, nil
}

// RequestPasswordReset はワンタイムコードを発行してメールで送信する。
// 同じメールアドレスの既存エントリは置き換えられ、以前のコードは無効になる。
// 送信に失敗してもエントリは残る。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthEvent(eventOTPRequest, metrics.OutcomeFailure)
		return model.NewUserNotFoundError()
	}

	otp, err := s.generateOTP()
	if err != nil {
		return err
	}

	now := s.now()
	entry := &model.ResetEntry{
		Email:     email,
		OTP:       otp,
		ExpiresAt: now.Add(s.config.OTPTTL),
		CreatedAt: now,
	}
	if err := s.resets.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to store reset entry: %w", err)
	}

	if err := s.notifier.SendOTP(ctx, email, otp, s.config.OTPTTL); err != nil {
		s.metrics.RecordAuthEvent(eventOTPRequest, metrics.OutcomeFailure)
		return fmt.Errorf("failed to send otp: %w", err)
	}

	s.metrics.RecordAuthEvent(eventOTPRequest, metrics.OutcomeSuccess)
	slog.InfoContext(ctx, "otp issued",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", entry.ExpiresAt),
	)
	return nil
}

// liveEntry は期限内のリセットエントリを返す。期限切れの場合は存在しないものとして扱う。
func (s *Service) liveEntry(ctx context.Context, email string) (*model.ResetEntry, error) {
	entry, err := s.resets.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find reset entry: %w", err)
	}
	if entry == nil || entry.Expired(s.now()) {
		return nil, nil
	}
	return entry, nil
}

func otpMatches(entry *model.ResetEntry, otp string) bool {
	return subtle.ConstantTimeCompare([]byte(entry.OTP), []byte(otp)) == 1
}

// VerifyOTP はワンタイムコードを検証する。エントリは消費しない。
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	email = NormalizeEmail(email)

	entry, err := s.liveEntry(ctx, email)
	if err != nil {
		return err
	}
	if entry == nil || !otpMatches(entry, otp) {
		s.metrics.RecordAuthEvent(eventOTPVerify, metrics.OutcomeFailure)
		return model.NewInvalidOTPError()
	}

	s.metrics.RecordAuthEvent(eventOTPVerify, metrics.OutcomeSuccess)
	return nil
}

// ResetPassword は期限内のリセットエントリがあることを確認してパスワードを置き換え、エントリを削除する。
// otpがnilでない場合はエントリのコードと一致することも確認する。
// パスワード更新とエントリ削除は別々のストア操作で、トランザクションにはしない。
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string, otp *string) error {
	email = NormalizeEmail(email)

	entry, err := s.liveEntry(ctx, email)
	if err != nil {
		return err
	}
	if entry == nil {
		s.metrics.RecordAuthEvent(eventPasswordReset, metrics.OutcomeFailure)
		return model.NewOTPRequiredError()
	}
	if otp != nil && !otpMatches(entry, *otp) {
		s.metrics.RecordAuthEvent(eventPasswordReset, metrics.OutcomeFailure)
		return model.NewInvalidOTPError()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	updated, err := s.users.UpdatePasswordHash(ctx, user.ID, hash, s.now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if !updated {
		return model.NewUserNotFoundError()
	}

	if err := s.resets.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to delete reset entry: %w", err)
	}

	s.metrics.RecordAuthEvent(eventPasswordReset, metrics.OutcomeSuccess)
	slog.InfoContext(ctx, "password reset", slog.String("user_id", user.ID))
	return nil
}
