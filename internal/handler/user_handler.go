package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atb-backend/internal/domain"
	"atb-backend/internal/middleware"
	"atb-backend/internal/usecase"
	"atb-backend/pkg/httputil"
)

// UserHandler はユーザー管理のHTTPハンドラを提供する。
type UserHandler struct {
	service *usecase.AuthService
}

// NewUserHandler は新しいUserHandlerを生成する。
func NewUserHandler(service *usecase.AuthService) *UserHandler {
	return &UserHandler{service: service}
}

// UserListResponse はユーザー一覧のレスポンス形式。
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// UpdateUserRequest はユーザー更新のリクエスト形式。
type UpdateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// ListUsers はユーザー一覧を取得する。
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	users, err := h.service.ListUsers(r.Context(), actor, offset, limit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			httputil.Error(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	response := UserListResponse{
		Users: make([]UserResponse, len(users)),
	}
	for i, u := range users {
		response.Users[i] = newUserResponse(u)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetUser は指定されたIDのユーザーを取得する。
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	userID := chi.URLParam(r, "user_id")
	user, err := h.service.GetUser(r.Context(), actor, userID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			httputil.Error(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	httputil.JSON(w, http.StatusOK, newUserResponse(user))
}

// UpdateUser は指定されたIDのユーザーを更新する。
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	userID := chi.URLParam(r, "user_id")
	update := &usecase.UserUpdate{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
		Role:     req.Role,
	}

	user, err := h.service.UpdateUser(r.Context(), actor, userID, update)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			middleware.WriteAuditLog(r.Context(), "UPDATE_USER", userID, "FAILED")
			httputil.Error(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			middleware.WriteAuditLog(r.Context(), "UPDATE_USER", userID, "FAILED")
			httputil.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		if errors.Is(err, domain.ErrEmailTaken) {
			httputil.Error(w, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
			return
		}
		if errors.Is(err, domain.ErrUsernameTaken) {
			httputil.Error(w, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
			return
		}
		middleware.WriteAuditLog(r.Context(), "UPDATE_USER", userID, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "UPDATE_USER", userID, "SUCCESS")
	httputil.JSON(w, http.StatusOK, newUserResponse(user))
}

// DeleteUser は指定されたIDのユーザーを削除する。
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	userID := chi.URLParam(r, "user_id")
	err := h.service.DeleteUser(r.Context(), actor, userID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			middleware.WriteAuditLog(r.Context(), "DELETE_USER", userID, "FAILED")
			httputil.Error(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
			return
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			middleware.WriteAuditLog(r.Context(), "DELETE_USER", userID, "FAILED")
			httputil.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		middleware.WriteAuditLog(r.Context(), "DELETE_USER", userID, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "DELETE_USER", userID, "SUCCESS")
	httputil.NoContent(w)
}
