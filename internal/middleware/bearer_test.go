package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/wealthio/internal/model"
)

// --- モック定義 ---

var errInvalidForTest = errors.New("invalid")

type mockTokenVerifier struct {
	verifyFn func(token string) (model.Identity, error)
	calls    int
}

func (m *mockTokenVerifier) Verify(token string) (model.Identity, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return model.Identity{}, errors.New("invalid")
}

// --- テスト ---

func TestBearerAuthMiddleware_ValidToken_InjectsIdentity(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(token string) (model.Identity, error) {
			if token == "good-token" {
				return model.Identity{ID: "user-123", Name: "Alice"}, nil
			}
			return model.Identity{}, errors.New("invalid")
		},
	}

	var captured model.Identity
	handler := NewBearerAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Error("identity should be present in context")
		}
		captured = identity

		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if userID != "user-123" {
			t.Errorf("userID = %q, want %q", userID, "user-123")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/expenses/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured.ID != "user-123" || captured.Name != "Alice" {
		t.Errorf("identity = %+v, want {user-123 Alice}", captured)
	}
}

func TestBearerAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		wantMessage string
		wantVerify  bool
	}{
		{"ヘッダーなし", "", "Access denied, no token provided", false},
		{"スキームのみ", "Bearer", "Invalid token format. Use 'Bearer <token>'", false},
		{"別スキーム", "Basic dXNlcjpwYXNz", "Invalid token format. Use 'Bearer <token>'", false},
		{"小文字スキーム", "bearer good-token", "Invalid token format. Use 'Bearer <token>'", false},
		{"3要素", "Bearer a b", "Invalid token format. Use 'Bearer <token>'", false},
		{"空トークン", "Bearer ", "Invalid token format. Use 'Bearer <token>'", false},
		{"検証失敗", "Bearer bad-token", "Invalid or expired token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockTokenVerifier{}
			handler := NewBearerAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/expenses/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Error != tt.wantMessage {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMessage)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
			if (verifier.calls > 0) != tt.wantVerify {
				t.Errorf("verifier called = %v, want %v", verifier.calls > 0, tt.wantVerify)
			}
		})
	}
}

func TestUserIDFromContext_NoIdentity_ReturnsError(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	if err == nil {
		t.Error("expected error when identity is missing")
	}

	ctx := ContextWithIdentity(context.Background(), model.Identity{Name: "no id"})
	if _, err := UserIDFromContext(ctx); err == nil {
		t.Error("expected error when identity has empty ID")
	}
}
