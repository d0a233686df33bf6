// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはレスポンスの error フィールドとしてそのままクライアントに返される。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: auth, validation, expense, system
	Details  []FieldError // バリデーションエラーのフィールド単位の詳細
}

// FieldError はフィールド単位のバリデーションエラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidOTP         = "INVALID_OTP"
	ErrCodeOTPRequired        = "OTP_REQUIRED"
	ErrCodeExpenseNotFound    = "EXPENSE_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError はフィールド単位の詳細を含むバリデーションエラーを生成する。
// 先頭の詳細メッセージをエラーメッセージとして使用する。
func NewValidationError(details ...FieldError) *APIError {
	msg := "Invalid request"
	if len(details) > 0 {
		msg = details[0].Message
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  msg,
		Category: "validation",
		Details:  details,
	}
}

// NewInvalidBodyError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidBodyError() *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "Invalid JSON body",
		Category: "validation",
	}
}

// NewUserExistsError は登録済みメールアドレスでのサインアップエラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "User already exists",
		Category: "validation",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
	}
}

// NewInvalidOTPError はOTPの不一致・期限切れエラーを生成する。
func NewInvalidOTPError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOTP,
		Message:  "Invalid or expired OTP",
		Category: "auth",
	}
}

// NewOTPRequiredError は有効なリセットエントリが存在しない場合のエラーを生成する。
func NewOTPRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPRequired,
		Message:  "OTP verification required",
		Category: "auth",
	}
}

// NewExpenseNotFoundError は支出が存在しないか他ユーザーの所有である場合のエラーを生成する。
// 両者を区別しないことで他ユーザーのレコードの存在を漏らさない。
func NewExpenseNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeExpenseNotFound,
		Message:  "Expense not found or unauthorized",
		Category: "expense",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
	}
}

// NewInternalError は内部エラーを生成する。
// messageはクライアントに返す汎用メッセージで、詳細はログのみに記録する。
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  message,
		Category: "system",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  message,
		Category: "system",
	}
}
