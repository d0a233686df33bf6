package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/wealthio/internal/middleware"
	"github.com/hitoshi/wealthio/internal/model"
)

// ルートごとの500エラーメッセージ
const (
	msgFailedToAddExpense   = "Failed to add expense"
	msgFailedToFetchExpense = "Failed to fetch expenses"
	msgErrorUpdatingExpense = "Error updating expense"
	msgErrorDeletingExpense = "Error deleting expense"
	msgFailedToExportCSV    = "Failed to export CSV"
	msgFailedToExportPDF    = "Failed to export PDF"
	msgExpenseDeleted       = "Expense deleted successfully"
)

// ExpenseServiceInterface は支出ハンドラーが必要とするサービスインターフェース。
type ExpenseServiceInterface interface {
	Create(ctx context.Context, ownerID, title string, amount float64, category string) (*model.Expense, error)
	List(ctx context.Context, ownerID string) ([]*model.Expense, error)
	Update(ctx context.Context, ownerID, id string, update model.ExpenseUpdate) (*model.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
	ExportCSV(ctx context.Context, ownerID string) ([]byte, error)
	ExportPDF(ctx context.Context, ownerID string) ([]byte, error)
}

// ExpenseHandler は支出管理のHTTPハンドラー。
// すべてのルートは認証ゲートの後に配置する。
type ExpenseHandler struct {
	service ExpenseServiceInterface
}

// NewExpenseHandler はExpenseHandlerを生成する。
func NewExpenseHandler(service ExpenseServiceInterface) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// expenseResponse は支出のAPIレスポンス。
type expenseResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

func toExpenseResponse(e *model.Expense) expenseResponse {
	return expenseResponse{
		ID:        e.ID,
		Owner:     e.OwnerID,
		Title:     e.Title,
		Amount:    e.Amount,
		Category:  e.Category,
		CreatedAt: e.CreatedAt,
	}
}

// ownerID はコンテキストから認証済みユーザーIDを取り出す。
// 取得できない場合は401を書き込みfalseを返す。
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(msgNoUserIDInToken))
		return "", false
	}
	return userID, true
}

// AddExpense は支出を登録する。
// POST /expenses/add
func (h *ExpenseHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req createExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, apiErr := req.validate()
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	e, err := h.service.Create(r.Context(), userID, req.Title, amount, req.Category)
	if err != nil {
		handleServiceError(w, r, err, msgFailedToAddExpense)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

// ListExpenses は呼び出し元の支出を新しい順で返す。
// GET /expenses/
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	expenses, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, msgFailedToFetchExpense)
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateExpense は支出を部分更新する。
// PUT /expenses/{id}
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req updateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	update, apiErr := req.toUpdate()
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	e, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), update)
	if err != nil {
		handleServiceError(w, r, err, msgErrorUpdatingExpense)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// DeleteExpense は支出を削除する。
// DELETE /expenses/{id}
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err, msgErrorDeletingExpense)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgExpenseDeleted})
}

// ExportCSV は支出一覧をCSVファイルとして返す。
// GET /expenses/export/csv
func (h *ExpenseHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportCSV(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, msgFailedToExportCSV)
		return
	}

	writeAttachment(w, "text/csv; charset=utf-8", "expenses.csv", data)
}

// ExportPDF は支出一覧をPDFファイルとして返す。
// GET /expenses/export/pdf
func (h *ExpenseHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportPDF(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, msgFailedToExportPDF)
		return
	}

	writeAttachment(w, "application/pdf", "expenses.pdf", data)
}

// writeAttachment はファイルダウンロード用のレスポンスを書き込む。
func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
