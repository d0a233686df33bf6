// Package repository はデータ永続化のインターフェースを定義する。
//
// PostgreSQL実装とMongoDB実装を提供し、どちらを使うかは起動時に
// DATABASE_URLのスキームで決定する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
)

// ErrDuplicateEmail は登録済みのメールアドレスでユーザーを作成しようとした場合のエラー。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。IDが空の場合は採番してuserに設定する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdatePasswordHash はユーザーのパスワードハッシュを置き換える。
	// 対象ユーザーが存在しない場合はfalseを返す。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) (bool, error)

	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error
}

// ResetEntryRepository はパスワードリセット用エントリの永続化インターフェース。
// メールアドレスごとに最大1件を保持する。
type ResetEntryRepository interface {
	// Upsert はエントリを作成する。同じメールアドレスのエントリがあれば置き換える。
	Upsert(ctx context.Context, entry *model.ResetEntry) error

	// FindByEmail はエントリを取得する。見つからない場合はnilを返す。
	// 期限切れのエントリも返すため、有効性の判定は呼び出し側で行う。
	FindByEmail(ctx context.Context, email string) (*model.ResetEntry, error)

	// DeleteByEmail はエントリを削除する。存在しない場合もエラーにしない。
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteExpired はnow時点で期限切れのエントリを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpenseRepository は支出データの永続化インターフェース。
// 参照・更新・削除はすべてIDと所有者の両方で絞り込んだ単一クエリで行う。
type ExpenseRepository interface {
	// Create は支出を作成する。IDが空の場合は採番してexpenseに設定する。
	Create(ctx context.Context, expense *model.Expense) error

	// ListByOwner は所有者の支出一覧をcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Expense, error)

	// Update は所有者の支出を部分更新し、更新後の支出を返す。
	// IDの形式が不正な場合や他ユーザーの支出の場合はnilを返す。
	Update(ctx context.Context, id, ownerID string, update model.ExpenseUpdate) (*model.Expense, error)

	// Delete は所有者の支出を削除する。
	// IDの形式が不正な場合や他ユーザーの支出の場合はfalseを返す。
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}
