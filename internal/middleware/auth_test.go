package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/soapbox/internal/auth"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(token string) (*auth.Identity, error)
}

func (m *mockVerifier) Verify(token string) (*auth.Identity, error) {
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return nil, auth.ErrInvalidSession
}

var _ SessionVerifier = (*mockVerifier)(nil)

// --- テスト ---

func TestAuthMiddleware_ValidToken_InjectsUserID(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(token string) (*auth.Identity, error) {
			if token == "valid-token" {
				return &auth.Identity{UserID: "user-123", Email: "taro@example.com"}, nil
			}
			return nil, auth.ErrInvalidSession
		},
	}

	mw := NewAuthMiddleware(verifier)

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/opinions", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

func TestAuthMiddleware_Returns401(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "ヘッダーなし", header: ""},
		{name: "Bearerスキームでない", header: "Basic dXNlcjpwYXNz"},
		{name: "トークンが空", header: "Bearer "},
		{name: "無効なトークン", header: "Bearer tampered-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{}
			mw := NewAuthMiddleware(verifier)

			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/opinions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Code != "UNAUTHORIZED" {
				t.Errorf("code = %q, want %q", body.Code, "UNAUTHORIZED")
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken_SameResponseAsInvalid(t *testing.T) {
	responses := map[string]*httptest.ResponseRecorder{}

	for name, verifyErr := range map[string]error{
		"expired": auth.ErrSessionExpired,
		"invalid": auth.ErrInvalidSession,
	} {
		verifier := &mockVerifier{
			verifyFn: func(token string) (*auth.Identity, error) {
				return nil, verifyErr
			},
		}
		mw := NewAuthMiddleware(verifier)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodPost, "/api/opinions", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		responses[name] = w
	}

	if responses["expired"].Code != responses["invalid"].Code {
		t.Errorf("期限切れと無効でステータスが異なる: %d vs %d",
			responses["expired"].Code, responses["invalid"].Code)
	}
	if responses["expired"].Body.String() != responses["invalid"].Body.String() {
		t.Error("期限切れと無効でレスポンスボディが異なる")
	}
}

func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(token string) (*auth.Identity, error) {
			return &auth.Identity{UserID: "user-1"}, nil
		},
	}
	mw := NewAuthMiddleware(verifier)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/opinions", nil)
	req.Header.Set("Authorization", "bearer some-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserIDFromContext_NotSet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("未認証コンテキストではエラーを返すべき")
	}
}

func TestContextWithUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := ContextWithUserID(req.Context(), "user-42")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() error = %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want %q", userID, "user-42")
	}
}
