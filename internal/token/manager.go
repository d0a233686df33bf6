// Package token はBearerトークン（HS256署名のJWT）の発行と検証を提供する。
//
// トークンはサーバー側で失効させる手段を持たず、期限切れまで有効であり続ける。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/wealthio/internal/model"
)

// DefaultTTL はトークンのデフォルト有効期間。
const DefaultTTL = time.Hour

// ErrInvalidToken は構造・署名・アルゴリズム・有効期限のいずれかに問題があるトークンを表す。
// 原因は区別せず、すべてこのエラーとして扱う。
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims はトークンに埋め込むクレーム。
// ペイロードは {"user":{"id","name"}, "exp", "iat"} の形式になる。
type Claims struct {
	User model.Identity `json:"user"`
	jwt.RegisteredClaims
}

// Config はManagerの設定。
type Config struct {
	Secret string
	TTL    time.Duration
	// Now は現在時刻を返す関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// Manager はトークンの発行と検証を行う。
// 生成後は不変で、複数のgoroutineから安全に利用できる。
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}
}

// Issue はユーザー識別情報を埋め込んだ署名済みトークンを発行する。
func (m *Manager) Issue(identity model.Identity) (string, error) {
	now := m.now()
	claims := Claims{
		User: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、埋め込まれた識別情報を返す。
// 問題がある場合は常にErrInvalidTokenを返し、部分的に信頼することはない。
func (m *Manager) Verify(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.User.ID == "" {
		return model.Identity{}, ErrInvalidToken
	}
	return claims.User, nil
}

// TTL はトークンの有効期間を返す。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
