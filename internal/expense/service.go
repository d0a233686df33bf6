// Package expense はユーザーごとの支出管理とエクスポートのドメインロジックを提供する。
package expense

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/wealthio/internal/export"
	"github.com/hitoshi/wealthio/internal/metrics"
	"github.com/hitoshi/wealthio/internal/model"
	"github.com/hitoshi/wealthio/internal/repository"
)

// TextSanitizer は表示用テキストの無害化のインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Service は支出管理のサービス層。
// すべての操作は呼び出し元ユーザーの支出に限定される。
type Service struct {
	repo      repository.ExpenseRepository
	sanitizer TextSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ExpenseRepository, sanitizer TextSanitizer, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

func (s *Service) clean(raw string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(raw)
	}
	return s.sanitizer.Sanitize(raw)
}

func (s *Service) category(raw string) string {
	if c := s.clean(raw); c != "" {
		return c
	}
	return model.DefaultCategory
}

// checkLengths は無害化後のタイトルとカテゴリがストアの上限に収まるかを検証する。
func checkLengths(title *string, category string) error {
	var details []model.FieldError
	if title != nil && utf8.RuneCountInString(*title) > model.MaxTitleLength {
		details = append(details, model.FieldError{Field: "title", Message: "Title must be at most 255 characters"})
	}
	if utf8.RuneCountInString(category) > model.MaxCategoryLength {
		details = append(details, model.FieldError{Field: "category", Message: "Category must be at most 100 characters"})
	}
	if len(details) > 0 {
		return model.NewValidationError(details...)
	}
	return nil
}

// Create は支出を作成する。カテゴリが空の場合はUncategorizedになる。
// タイトルが無害化後に空になる場合はバリデーションエラーを返す。
func (s *Service) Create(ctx context.Context, ownerID, title string, amount float64, category string) (*model.Expense, error) {
	e := &model.Expense{
		OwnerID:   ownerID,
		Title:     s.clean(title),
		Amount:    amount,
		Category:  s.category(category),
		CreatedAt: s.now(),
	}
	if e.Title == "" {
		return nil, model.NewValidationError(model.FieldError{Field: "title", Message: "Title and Amount are required"})
	}
	if err := checkLengths(&e.Title, e.Category); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("支出の作成に失敗しました: %w", err)
	}

	s.metrics.RecordExpenseOperation("create")
	slog.InfoContext(ctx, "expense created",
		slog.String("user_id", ownerID),
		slog.String("expense_id", e.ID),
	)
	return e, nil
}

// List は支出一覧を新しい順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Expense, error) {
	expenses, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("支出一覧の取得に失敗しました: %w", err)
	}
	return expenses, nil
}

// Update は支出を部分更新する。
// Categoryは指定がなければUncategorizedで上書きされる。
// 存在しない支出と他ユーザーの支出は区別せずEXPENSE_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, ownerID, id string, update model.ExpenseUpdate) (*model.Expense, error) {
	if update.Title != nil {
		title := s.clean(*update.Title)
		if title == "" {
			return nil, model.NewValidationError(model.FieldError{Field: "title", Message: "Title must not be empty"})
		}
		update.Title = &title
	}
	update.Category = s.category(update.Category)
	if err := checkLengths(update.Title, update.Category); err != nil {
		return nil, err
	}

	e, err := s.repo.Update(ctx, id, ownerID, update)
	if err != nil {
		return nil, fmt.Errorf("支出の更新に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewExpenseNotFoundError()
	}

	s.metrics.RecordExpenseOperation("update")
	return e, nil
}

// Delete は支出を削除する。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("支出の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewExpenseNotFoundError()
	}

	s.metrics.RecordExpenseOperation("delete")
	slog.InfoContext(ctx, "expense deleted",
		slog.String("user_id", ownerID),
		slog.String("expense_id", id),
	)
	return nil
}

// ExportCSV は支出一覧をCSVとして返す。
func (s *Service) ExportCSV(ctx context.Context, ownerID string) ([]byte, error) {
	expenses, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, expenses); err != nil {
		return nil, err
	}

	s.metrics.RecordExpenseOperation("export_csv")
	return buf.Bytes(), nil
}

// ExportPDF は支出一覧をPDFとして返す。
func (s *Service) ExportPDF(ctx context.Context, ownerID string) ([]byte, error) {
	expenses, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, expenses, export.PDFOptions{Compress: true}); err != nil {
		return nil, err
	}

	s.metrics.RecordExpenseOperation("export_pdf")
	return buf.Bytes(), nil
}
