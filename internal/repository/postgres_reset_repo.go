package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
)

// PostgresResetEntryRepo はPostgreSQLを使用したリセットエントリリポジトリ。
// 期限切れエントリの物理削除はcleanupワーカーが定期的に行う。
type PostgresResetEntryRepo struct {
	db *sql.DB
}

// NewPostgresResetEntryRepo はPostgresResetEntryRepoを生成する。
func NewPostgresResetEntryRepo(db *sql.DB) *PostgresResetEntryRepo {
	return &PostgresResetEntryRepo{db: db}
}

// Upsert はエントリを作成する。同じメールアドレスのエントリがあれば置き換える。
func (r *PostgresResetEntryRepo) Upsert(ctx context.Context, entry *model.ResetEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_entries (email, otp, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET
		   otp = EXCLUDED.otp,
		   expires_at = EXCLUDED.expires_at,
		   created_at = EXCLUDED.created_at`,
		entry.Email, entry.OTP, entry.ExpiresAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reset entry: %w", err)
	}
	return nil
}

// FindByEmail はエントリを取得する。見つからない場合はnilを返す。
func (r *PostgresResetEntryRepo) FindByEmail(ctx context.Context, email string) (*model.ResetEntry, error) {
	entry := &model.ResetEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT email, otp, expires_at, created_at
		 FROM password_reset_entries
		 WHERE email = $1`,
		email,
	).Scan(&entry.Email, &entry.OTP, &entry.ExpiresAt, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset entry: %w", err)
	}

	return entry, nil
}

// DeleteByEmail はエントリを削除する。
func (r *PostgresResetEntryRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_entries WHERE email = $1`,
		email,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reset entry: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのエントリを一括削除する。
func (r *PostgresResetEntryRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_entries WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ResetEntryRepository = (*PostgresResetEntryRepo)(nil)
