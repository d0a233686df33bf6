package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/wealthio/internal/model"
)

// PostgresExpenseRepo はPostgreSQLを使用した支出リポジトリ。
type PostgresExpenseRepo struct {
	db *sql.DB
}

// NewPostgresExpenseRepo はPostgresExpenseRepoを生成する。
func NewPostgresExpenseRepo(db *sql.DB) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{db: db}
}

// Create は支出を作成する。
func (r *PostgresExpenseRepo) Create(ctx context.Context, expense *model.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, owner_id, title, amount, category, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		expense.ID, expense.OwnerID, expense.Title, expense.Amount, expense.Category, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// ListByOwner は所有者の支出一覧をcreated_at降順で返す。
func (r *PostgresExpenseRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, amount, category, created_at
		 FROM expenses
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*model.Expense, 0)
	for rows.Next() {
		e := &model.Expense{}
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &e.Category, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

// Update は所有者の支出を部分更新する。
// Title/Amountがnilの場合はCOALESCEで既存値を維持する。
func (r *PostgresExpenseRepo) Update(ctx context.Context, id, ownerID string, update model.ExpenseUpdate) (*model.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	e := &model.Expense{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE expenses SET
		   title = COALESCE($3::text, title),
		   amount = COALESCE($4::double precision, amount),
		   category = $5
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, title, amount, category, created_at`,
		id, ownerID, update.Title, update.Amount, update.Category,
	).Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &e.Category, &e.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	return e, nil
}

// Delete は所有者の支出を削除する。
func (r *PostgresExpenseRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ ExpenseRepository = (*PostgresExpenseRepo)(nil)
