// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"atb-backend/internal/domain"
)

// トークンのtypeクレームの値。
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// UserRepository はユーザーデータアクセスのインターフェース。
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindAll(ctx context.Context, offset, limit int) ([]*domain.User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// AuthService は認証とユーザー管理のビジネスロジックを提供する。
type AuthService struct {
	repo               UserRepository
	secretKey          []byte
	accessTokenExpire  time.Duration
	refreshTokenExpire time.Duration
}

// NewAuthService は新しいAuthServiceを生成する。
func NewAuthService(repo UserRepository, secretKey string, accessTokenExpire, refreshTokenExpire time.Duration) *AuthService {
	return &AuthService{
		repo:               repo,
		secretKey:          []byte(secretKey),
		accessTokenExpire:  accessTokenExpire,
		refreshTokenExpire: refreshTokenExpire,
	}
}

func validateRegistration(email, username, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	return nil
}

// Register は新しいユーザーを登録する。
func (s *AuthService) Register(ctx context.Context, email, username, password, fullName string) (*domain.User, error) {
	if err := validateRegistration(email, username, password); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	existing, err = s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:          email,
		Username:       username,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           domain.RoleUser,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// Login はメールアドレスとパスワードで認証し、トークンペアを発行する。
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return s.issueTokenPair(user)
}

// Refresh はリフレッシュトークンを検証して新しいトークンペアを発行する。
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	user, err := s.VerifyToken(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.issueTokenPair(user)
}

// VerifyAccessToken はアクセストークンを検証し、対応するユーザーを返す。
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, error) {
	return s.VerifyToken(ctx, tokenString, TokenTypeAccess)
}

// VerifyToken はトークンを検証し、対応するユーザーを返す。
// typeクレームがtokenTypeと一致しない場合は不正なトークンとして扱う。
func (s *AuthService) VerifyToken(ctx context.Context, tokenString, tokenType string) (*domain.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	if typ, _ := claims["type"].(string); typ != tokenType {
		return nil, domain.ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return user, nil
}

func (s *AuthService) issueTokenPair(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.signToken(user, TokenTypeAccess, s.accessTokenExpire)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := s.signToken(user, TokenTypeRefresh, s.refreshTokenExpire)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) signToken(user *domain.User, tokenType string, expire time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"type":  tokenType,
		"iat":   now.Unix(),
		"exp":   now.Add(expire).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// UserUpdate はユーザー更新の入力。nilの項目は変更しない。
type UserUpdate struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	IsActive *bool
	Role     *string
}

// GetUser は指定されたIDのユーザーを取得する。本人または管理者のみ参照できる。
func (s *AuthService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ListUsers はユーザー一覧を取得する。管理者のみ実行できる。
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.User, offset, limit int) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("finding users: %w", err)
	}
	return users, nil
}

// UpdateUser は指定されたIDのユーザーを更新する。本人または管理者のみ更新でき、
// ロールと有効状態の変更は管理者に限られる。
func (s *AuthService) UpdateUser(ctx context.Context, actor *domain.User, id string, update *UserUpdate) (*domain.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if (update.Role != nil || update.IsActive != nil) && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	fields := make(map[string]interface{})
	if update.Email != nil && *update.Email != user.Email {
		if !strings.Contains(*update.Email, "@") {
			return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
		}
		existing, err := s.repo.FindByEmail(ctx, *update.Email)
		if err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if existing != nil {
			return nil, domain.ErrEmailTaken
		}
		fields["email"] = *update.Email
	}
	if update.Username != nil && *update.Username != user.Username {
		if len(*update.Username) < 3 {
			return nil, fmt.Errorf("%w: username must be at least 3 characters", domain.ErrInvalidInput)
		}
		existing, err := s.repo.FindByUsername(ctx, *update.Username)
		if err != nil {
			return nil, fmt.Errorf("checking username: %w", err)
		}
		if existing != nil {
			return nil, domain.ErrUsernameTaken
		}
		fields["username"] = *update.Username
	}
	if update.FullName != nil {
		fields["full_name"] = *update.FullName
	}
	if update.Password != nil {
		if len(*update.Password) < 8 {
			return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		fields["hashed_password"] = string(hashed)
	}
	if update.Role != nil {
		switch domain.Role(*update.Role) {
		case domain.RoleUser, domain.RoleAdmin, domain.RoleModerator:
			fields["role"] = *update.Role
		default:
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *update.Role)
		}
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding updated user: %w", err)
	}
	return updated, nil
}

// DeleteUser は指定されたIDのユーザーを削除する。管理者のみ実行できる。
func (s *AuthService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
