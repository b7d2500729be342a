// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atb-backend/internal/domain"
)

// UserModel はgorm用のモデル定義。
type UserModel struct {
	ID             string    `gorm:"type:char(36);primaryKey"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex:ix_users_email"`
	Username       string    `gorm:"type:varchar(64);not null;uniqueIndex:ix_users_username"`
	HashedPassword string    `gorm:"type:varchar(255);not null"`
	FullName       string    `gorm:"type:varchar(255)"`
	Role           string    `gorm:"type:varchar(16);not null;default:'user'"`
	IsActive       bool      `gorm:"not null;default:true"`
	IsVerified     bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"type:datetime(6);not null;autoCreateTime;index:ix_users_created_at"`
	UpdatedAt      time.Time `gorm:"type:datetime(6);not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (UserModel) TableName() string {
	return "users"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (u *UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		HashedPassword: u.HashedPassword,
		FullName:       u.FullName,
		Role:           domain.Role(u.Role),
		IsActive:       u.IsActive,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// UserRepository はユーザーのデータアクセスを提供する。
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository は新しいUserRepositoryを生成する。
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create は新しいユーザーを保存する。
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := &UserModel{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		HashedPassword: user.HashedPassword,
		FullName:       user.FullName,
		Role:           string(user.Role),
		IsActive:       user.IsActive,
		IsVerified:     user.IsVerified,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create user",
			"operation", "create",
			"email", user.Email,
			"error", err,
		)
		return err
	}
	// gormで設定された値をドメインエンティティに反映
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID は指定されたIDのユーザーを取得する。
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find user",
			"operation", "find_by_id",
			"id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindByEmail は指定されたメールアドレスのユーザーを取得する。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find user by email",
			"operation", "find_by_email",
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindByUsername は指定されたユーザー名のユーザーを取得する。
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find user by username",
			"operation", "find_by_username",
			"username", username,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindAll はユーザー一覧を作成日時順で取得する。
func (r *UserRepository) FindAll(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find all users",
			"operation", "find_all",
			"error", err,
		)
		return nil, err
	}

	users := make([]*domain.User, len(models))
	for i, m := range models {
		users[i] = m.toDomain()
	}
	return users, nil
}

// Update は指定されたIDのユーザーの項目を更新する。
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to update user",
			"operation", "update",
			"id", id,
			"error", err,
		)
		return err
	}
	return nil
}

// Delete は指定されたIDのユーザーを削除する。
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&UserModel{}).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete user",
			"operation", "delete",
			"id", id,
			"error", err,
		)
		return err
	}
	return nil
}
