package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"atb-backend/internal/domain"
)

// mockTokenVerifier はテスト用のモック。
type mockTokenVerifier struct {
	user      *domain.User
	err       error
	lastToken string
}

func (m *mockTokenVerifier) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, error) {
	m.lastToken = tokenString
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func TestRequireAuth(t *testing.T) {
	user := &domain.User{ID: "user-1", Email: "alice@example.com", Role: domain.RoleUser, IsActive: true}
	verifier := &mockTokenVerifier{user: user}

	var gotUser *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}
	if verifier.lastToken != "valid-token" {
		t.Errorf("expected token valid-token, got %s", verifier.lastToken)
	}
	if gotUser == nil || gotUser.ID != "user-1" {
		t.Errorf("expected user in context, got %+v", gotUser)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := RequireAuth(&mockTokenVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want status 401, got %d", rec.Code)
	}
}

func TestRequireAuth_NotBearer(t *testing.T) {
	handler := RequireAuth(&mockTokenVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want status 401, got %d", rec.Code)
	}
}

func TestRequireAuth_BearerCaseInsensitive(t *testing.T) {
	verifier := &mockTokenVerifier{user: &domain.User{ID: "user-1", IsActive: true}}
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// スキーム名は大文字小文字を区別しない
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("want status 200, got %d", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	verifier := &mockTokenVerifier{err: domain.ErrInvalidToken}
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("want status 401, got %d", rec.Code)
	}
}

func TestRequireAuth_InactiveUser(t *testing.T) {
	verifier := &mockTokenVerifier{err: domain.ErrUserInactive}
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("want status 403, got %d", rec.Code)
	}
}
