package handler

import (
	"encoding/json"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/wealthio/internal/auth"
	"github.com/hitoshi/wealthio/internal/model"
	"github.com/hitoshi/wealthio/internal/password"
)

// パスワードの最小文字数。
const minPasswordLength = 6

// バリデーションエラーメッセージ
const (
	msgNameRequired     = "Name is required"
	msgInvalidEmail     = "Enter a valid email"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgPasswordTooLong  = "Password must be at most 72 bytes"
	msgPasswordRequired = "Password is required"
	msgOTPLength        = "OTP must be 6 characters"
	msgTitleAmountReq   = "Title and Amount are required"
	msgAmountPositive   = "Amount must be a positive number"
	msgTitleEmpty       = "Title must not be empty"
	msgNameTooLong      = "Name must be at most 255 characters"
	msgTitleTooLong     = "Title must be at most 255 characters"
	msgCategoryTooLong  = "Category must be at most 100 characters"
)

// tooLong は前後の空白を除いた文字数が上限を超えるかを返す。
func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) > limit
}

// fieldErrors はフィールド単位のバリデーションエラーを蓄積する。
type fieldErrors []model.FieldError

func (fe *fieldErrors) add(field, message string) {
	*fe = append(*fe, model.FieldError{Field: field, Message: message})
}

// err はエラーがあればバリデーションエラーを返す。
func (fe fieldErrors) err() *model.APIError {
	if len(fe) == 0 {
		return nil
	}
	return model.NewValidationError(fe...)
}

// isValidEmail はメールアドレスの形式を検証する。
// 表示名付きの形式（"Name <a@b>"）は受け付けない。
func isValidEmail(email string) bool {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return strings.ToLower(addr.Address) == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func validatePassword(fe *fieldErrors, field, pw string) {
	switch {
	case len([]rune(pw)) < minPasswordLength:
		fe.add(field, msgPasswordTooShort)
	case len(pw) > password.MaxLength:
		fe.add(field, msgPasswordTooLong)
	}
}

// --- 認証 ---

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *signupRequest) validate() *model.APIError {
	var fe fieldErrors
	switch {
	case strings.TrimSpace(req.Name) == "":
		fe.add("name", msgNameRequired)
	case tooLong(req.Name, model.MaxNameLength):
		fe.add("name", msgNameTooLong)
	}
	if !isValidEmail(req.Email) {
		fe.add("email", msgInvalidEmail)
	}
	validatePassword(&fe, "password", req.Password)
	return fe.err()
}

type loginRequest struct {
	Email    string  `json:"email"`
	Password *string `json:"password"`
}

func (req *loginRequest) validate() *model.APIError {
	var fe fieldErrors
	if !isValidEmail(req.Email) {
		fe.add("email", msgInvalidEmail)
	}
	if req.Password == nil {
		fe.add("password", msgPasswordRequired)
	}
	return fe.err()
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (req *passwordResetRequest) validate() *model.APIError {
	var fe fieldErrors
	if !isValidEmail(req.Email) {
		fe.add("email", msgInvalidEmail)
	}
	return fe.err()
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (req *verifyOTPRequest) validate() *model.APIError {
	var fe fieldErrors
	if !isValidEmail(req.Email) {
		fe.add("email", msgInvalidEmail)
	}
	if len([]rune(req.OTP)) != auth.OTPLength {
		fe.add("otp", msgOTPLength)
	}
	return fe.err()
}

type resetPasswordRequest struct {
	Email       string  `json:"email"`
	NewPassword string  `json:"newPassword"`
	OTP         *string `json:"otp"`
}

func (req *resetPasswordRequest) validate() *model.APIError {
	var fe fieldErrors
	if !isValidEmail(req.Email) {
		fe.add("email", msgInvalidEmail)
	}
	validatePassword(&fe, "newPassword", req.NewPassword)
	if req.OTP != nil && len([]rune(*req.OTP)) != auth.OTPLength {
		fe.add("otp", msgOTPLength)
	}
	return fe.err()
}

// --- 支出 ---

// parseAmount は数値または数値文字列の金額を解釈する。
// 未指定・null・解釈不能・有限でない（NaN, Inf）場合はokがfalseになる。
func parseAmount(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// validateExpenseText はタイトルとカテゴリの文字数を検証する。
func validateExpenseText(fe *fieldErrors, title *string, category string) {
	if title != nil && tooLong(*title, model.MaxTitleLength) {
		fe.add("title", msgTitleTooLong)
	}
	if tooLong(category, model.MaxCategoryLength) {
		fe.add("category", msgCategoryTooLong)
	}
}

type createExpenseRequest struct {
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
}

// validate はリクエストを検証し、解釈済みの金額を返す。
func (req *createExpenseRequest) validate() (float64, *model.APIError) {
	var fe fieldErrors
	amount, ok := parseAmount(req.Amount)
	if strings.TrimSpace(req.Title) == "" || !ok || amount == 0 {
		fe.add("title", msgTitleAmountReq)
		return 0, fe.err()
	}
	if amount < 0 {
		fe.add("amount", msgAmountPositive)
	}
	validateExpenseText(&fe, &req.Title, req.Category)
	return amount, fe.err()
}

type updateExpenseRequest struct {
	Title    *string         `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
}

// toUpdate はリクエストを検証し、部分更新内容に変換する。
func (req *updateExpenseRequest) toUpdate() (model.ExpenseUpdate, *model.APIError) {
	var fe fieldErrors
	update := model.ExpenseUpdate{Category: req.Category}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			fe.add("title", msgTitleEmpty)
		}
		update.Title = req.Title
	}
	if len(req.Amount) > 0 && string(req.Amount) != "null" {
		amount, ok := parseAmount(req.Amount)
		if !ok || amount <= 0 {
			fe.add("amount", msgAmountPositive)
		}
		update.Amount = &amount
	}
	validateExpenseText(&fe, req.Title, req.Category)
	return update, fe.err()
}
