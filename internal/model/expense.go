// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultCategory はカテゴリ未指定の支出に設定されるカテゴリ名。
const DefaultCategory = "Uncategorized"

// 無害化後のテキストの最大文字数（rune数）。
const (
	MaxNameLength     = 255
	MaxTitleLength    = 255
	MaxCategoryLength = 100
)

// Expense はユーザーが記録した支出を表す。
// OwnerIDは作成後に変更されない。
type Expense struct {
	ID        string
	OwnerID   string
	Title     string
	Amount    float64
	Category  string
	CreatedAt time.Time
}

// ExpenseUpdate は支出の部分更新内容を表す。
// nilのフィールドは既存の値を維持する。Categoryは常に上書きされる。
type ExpenseUpdate struct {
	Title    *string
	Amount   *float64
	Category string
}
