// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めてはならない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity はトークンに埋め込まれるユーザー識別情報（クレーム）を表す。
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResetEntry はパスワードリセット用のワンタイムコードを表す。
// メールアドレスごとに有効なエントリは最大1件で、再発行時は上書きされる。
type ResetEntry struct {
	Email     string
	OTP       string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻の時点でエントリが期限切れかどうかを返す。
func (e *ResetEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
