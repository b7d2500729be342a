package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"atb-backend/internal/domain"
	"atb-backend/pkg/httputil"
)

// TokenVerifier はアクセストークンを検証してユーザーを返す。
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, error)
}

// userContextKey はコンテキストキーの衝突を避けるための非公開型。
type userContextKey struct{}

// UserContextKey は認証済みユーザーのコンテキストキー。
var UserContextKey = userContextKey{}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取り出す。
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	return user, ok
}

// RequireAuth はAuthorizationヘッダのBearerトークンを検証するミドルウェアを返す。
// 検証に成功した場合は認証済みユーザーをコンテキストに格納して次のハンドラを呼び出す。
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header is required")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header must be a bearer token")
				return
			}

			user, err := verifier.VerifyAccessToken(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrUserInactive) {
					httputil.Error(w, http.StatusForbidden, "USER_INACTIVE", "user account is inactive")
					return
				}
				httputil.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
