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

// ProductModel はgorm用のモデル定義。
type ProductModel struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	Name          string    `gorm:"type:varchar(255);not null;index:ix_products_name"`
	Description   string    `gorm:"type:text"`
	Price         float64   `gorm:"not null"`
	StockQuantity int       `gorm:"not null;default:0"`
	Category      string    `gorm:"type:varchar(128);index:ix_products_category"`
	IsActive      bool      `gorm:"not null;default:true"`
	CreatedBy     string    `gorm:"type:char(36)"`
	CreatedAt     time.Time `gorm:"type:datetime(6);not null;autoCreateTime;index:ix_products_created_at"`
	UpdatedAt     time.Time `gorm:"type:datetime(6);not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (ProductModel) TableName() string {
	return "products"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (p *ProductModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (p *ProductModel) toDomain() *domain.Product {
	return &domain.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		IsActive:      p.IsActive,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ProductRepository は商品のデータアクセスを提供する。
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository は新しいProductRepositoryを生成する。
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create は新しい商品を保存する。
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	model := &ProductModel{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		Category:      product.Category,
		IsActive:      product.IsActive,
		CreatedBy:     product.CreatedBy,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create product",
			"operation", "create",
			"name", product.Name,
			"error", err,
		)
		return err
	}
	product.ID = model.ID
	product.CreatedAt = model.CreatedAt
	product.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID は指定されたIDの商品を取得する。
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find product",
			"operation", "find_by_id",
			"id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindAll は絞り込み条件に一致する商品一覧を取得する。
func (r *ProductRepository) FindAll(ctx context.Context, filter *domain.ProductFilter) ([]*domain.Product, error) {
	query := r.db.WithContext(ctx).Model(&ProductModel{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var models []ProductModel
	err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find all products",
			"operation", "find_all",
			"error", err,
		)
		return nil, err
	}

	products := make([]*domain.Product, len(models))
	for i, m := range models {
		products[i] = m.toDomain()
	}
	return products, nil
}

// Update は指定されたIDの商品の項目を更新する。
func (r *ProductRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to update product",
			"operation", "update",
			"id", id,
			"error", err,
		)
		return err
	}
	return nil
}

// Delete は指定されたIDの商品を削除する。
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&ProductModel{}).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete product",
			"operation", "delete",
			"id", id,
			"error", err,
		)
		return err
	}
	return nil
}
