package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/wealthio/internal/auth"
	"github.com/hitoshi/wealthio/internal/middleware"
	"github.com/hitoshi/wealthio/internal/model"
)

// --- 認証サービスのモック ---

type mockAuthService struct {
	signupFn               func(ctx context.Context, name, email, password string) (*auth.AuthResult, error)
	loginFn                func(ctx context.Context, email, password string) (*auth.AuthResult, error)
	currentUserFn          func(ctx context.Context, userID string) (*model.User, error)
	requestPasswordResetFn func(ctx context.Context, email string) error
	verifyOTPFn            func(ctx context.Context, email, otp string) error
	resetPasswordFn        func(ctx context.Context, email, newPassword string, otp *string) error
}

func (m *mockAuthService) Signup(ctx context.Context, name, email, password string) (*auth.AuthResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, name, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.requestPasswordResetFn != nil {
		return m.requestPasswordResetFn(ctx, email)
	}
	return nil
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, email, otp string) error {
	if m.verifyOTPFn != nil {
		return m.verifyOTPFn(ctx, email, otp)
	}
	return nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, email, newPassword string, otp *string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, email, newPassword, otp)
	}
	return nil
}

// --- 支出サービスのモック ---

type mockExpenseService struct {
	createFn    func(ctx context.Context, ownerID, title string, amount float64, category string) (*model.Expense, error)
	listFn      func(ctx context.Context, ownerID string) ([]*model.Expense, error)
	updateFn    func(ctx context.Context, ownerID, id string, update model.ExpenseUpdate) (*model.Expense, error)
	deleteFn    func(ctx context.Context, ownerID, id string) error
	exportCSVFn func(ctx context.Context, ownerID string) ([]byte, error)
	exportPDFFn func(ctx context.Context, ownerID string) ([]byte, error)
}

func (m *mockExpenseService) Create(ctx context.Context, ownerID, title string, amount float64, category string) (*model.Expense, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, title, amount, category)
	}
	return nil, nil
}

func (m *mockExpenseService) List(ctx context.Context, ownerID string) ([]*model.Expense, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockExpenseService) Update(ctx context.Context, ownerID, id string, update model.ExpenseUpdate) (*model.Expense, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, id, update)
	}
	return nil, nil
}

func (m *mockExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return nil
}

func (m *mockExpenseService) ExportCSV(ctx context.Context, ownerID string) ([]byte, error) {
	if m.exportCSVFn != nil {
		return m.exportCSVFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockExpenseService) ExportPDF(ctx context.Context, ownerID string) ([]byte, error) {
	if m.exportPDFFn != nil {
		return m.exportPDFFn(ctx, ownerID)
	}
	return nil, nil
}

// --- ヘルパー ---

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withIdentity は認証済みユーザーをコンテキストに設定したリクエストを返す。
func withIdentity(req *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithIdentity(req.Context(), model.Identity{ID: userID, Name: "Tester"})
	return req.WithContext(ctx)
}

// decodeErrorBody はエラーレスポンスをデコードする。
func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode, wantMessage string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	body := decodeErrorBody(t, w)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
	if wantMessage != "" && body.Error != wantMessage {
		t.Errorf("error = %q, want %q", body.Error, wantMessage)
	}
}
