// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/wealthio/internal/auth"
	"github.com/hitoshi/wealthio/internal/middleware"
	"github.com/hitoshi/wealthio/internal/model"
)

// ルートごとの500エラーメッセージ
const (
	msgServerError        = "Server error"
	msgErrorSendingOTP    = "Error sending OTP"
	msgErrorVerifyingOTP  = "Error verifying OTP"
	msgErrorResettingPass = "Error resetting password"
	msgNoUserIDInToken    = "No user ID found in token"
	msgOTPSent            = "OTP sent to email"
	msgOTPVerified        = "OTP verified successfully"
	msgPasswordResetDone  = "Password reset successfully"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, name, email, password string) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, newPassword string, otp *string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// tokenUserResponse はトークン発行レスポンスに含めるユーザー情報。
type tokenUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// authResponse はサインアップ・ログイン成功時のレスポンス。
type authResponse struct {
	Token string            `json:"token"`
	User  tokenUserResponse `json:"user"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAuthResponse(result *auth.AuthResult) authResponse {
	return authResponse{
		Token: result.Token,
		User: tokenUserResponse{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
		},
	}
}

// Signup はユーザーを登録しトークンを発行する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err, msgServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Login は資格情報を照合しトークンを発行する。
// 成功時は送信元のログイン試行回数をリセットする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, *req.Password)
	if err != nil {
		handleServiceError(w, r, err, msgServerError)
		return
	}

	middleware.ResetLoginAttempts(r.Context())
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Verify はトークンに対応するユーザー情報を返す。
// GET /auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.ID == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(msgNoUserIDInToken))
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity.ID)
	if err != nil {
		handleServiceError(w, r, err, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// RequestPasswordReset はワンタイムコードを発行しメールで送信する。
// POST /auth/request-password-reset
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err, msgErrorSendingOTP)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgOTPSent})
}

// VerifyOTP はワンタイムコードを検証する。
// POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		handleServiceError(w, r, err, msgErrorVerifyingOTP)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgOTPVerified})
}

// ResetPassword はリセットエントリを消費してパスワードを再設定する。
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.NewPassword, req.OTP); err != nil {
		handleServiceError(w, r, err, msgErrorResettingPass)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgPasswordResetDone})
}
