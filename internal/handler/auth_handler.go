// Package handler はHTTPハンドラを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"atb-backend/internal/domain"
	"atb-backend/internal/middleware"
	"atb-backend/internal/usecase"
	"atb-backend/pkg/httputil"
)

// AuthHandler は認証系のHTTPハンドラを提供する。
type AuthHandler struct {
	service *usecase.AuthService
}

// NewAuthHandler は新しいAuthHandlerを生成する。
func NewAuthHandler(service *usecase.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRequest はユーザー登録のリクエスト形式。
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest はログインのリクエスト形式。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest はトークン更新のリクエスト形式。
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse はユーザーのレスポンス形式。
type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// TokenResponse はトークンペアのレスポンス形式。
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		FullName:   user.FullName,
		Role:       string(user.Role),
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.Format(time.RFC3339),
	}
}

func newTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

// Register は新しいユーザーを登録する。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		if errors.Is(err, domain.ErrEmailTaken) {
			middleware.WriteAuditLog(r.Context(), "REGISTER", req.Email, "FAILED")
			httputil.Error(w, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
			return
		}
		if errors.Is(err, domain.ErrUsernameTaken) {
			middleware.WriteAuditLog(r.Context(), "REGISTER", req.Email, "FAILED")
			httputil.Error(w, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
			return
		}
		middleware.WriteAuditLog(r.Context(), "REGISTER", req.Email, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "REGISTER", user.ID, "SUCCESS")
	httputil.JSON(w, http.StatusCreated, newUserResponse(user))
}

// Login はメールアドレスとパスワードで認証し、トークンペアを返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			middleware.WriteAuditLog(r.Context(), "LOGIN", req.Email, "FAILED")
			httputil.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
			return
		}
		if errors.Is(err, domain.ErrUserInactive) {
			middleware.WriteAuditLog(r.Context(), "LOGIN", req.Email, "FAILED")
			httputil.Error(w, http.StatusForbidden, "USER_INACTIVE", "user account is inactive")
			return
		}
		middleware.WriteAuditLog(r.Context(), "LOGIN", req.Email, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "LOGIN", req.Email, "SUCCESS")
	httputil.JSON(w, http.StatusOK, newTokenResponse(pair))
}

// Refresh はリフレッシュトークンから新しいトークンペアを発行する。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			middleware.WriteAuditLog(r.Context(), "REFRESH", "", "FAILED")
			httputil.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}
		if errors.Is(err, domain.ErrUserInactive) {
			middleware.WriteAuditLog(r.Context(), "REFRESH", "", "FAILED")
			httputil.Error(w, http.StatusForbidden, "USER_INACTIVE", "user account is inactive")
			return
		}
		middleware.WriteAuditLog(r.Context(), "REFRESH", "", "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "REFRESH", "", "SUCCESS")
	httputil.JSON(w, http.StatusOK, newTokenResponse(pair))
}

// Me は認証済みユーザー自身の情報を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	httputil.JSON(w, http.StatusOK, newUserResponse(user))
}
