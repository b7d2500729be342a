// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーを表す。
	RoleUser Role = "user"
	// RoleAdmin は管理者を表す。
	RoleAdmin Role = "admin"
	// RoleModerator はモデレーターを表す。
	RoleModerator Role = "moderator"
)

// User はユーザーエンティティを表す。
type User struct {
	ID             string
	Email          string
	Username       string
	HashedPassword string
	FullName       string
	Role           Role
	IsActive       bool
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin は管理者権限を持つかどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TokenPair はアクセストークンとリフレッシュトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // アクセストークンの有効期間（秒）
}
