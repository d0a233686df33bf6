package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/wealthio/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// errorにはクライアント向けメッセージ、codeには機械可読なエラーコードを設定する。
type ErrorResponseBody struct {
	Error   string             `json:"error"`
	Code    string             `json:"code"`
	Details []model.FieldError `json:"details,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには汎用メッセージを返す。
func WriteInternalServerError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Server error"
	}
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError(message))
}
