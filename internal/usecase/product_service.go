package usecase

import (
	"context"
	"fmt"

	"atb-backend/internal/domain"
)

// ProductRepository は商品データアクセスのインターフェース。
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindAll(ctx context.Context, filter *domain.ProductFilter) ([]*domain.Product, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// ProductService は商品管理のビジネスロジックを提供する。
type ProductService struct {
	repo ProductRepository
}

// NewProductService は新しいProductServiceを生成する。
func NewProductService(repo ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductInput は商品作成の入力。
type ProductInput struct {
	Name          string
	Description   string
	Price         float64
	StockQuantity int
	Category      string
}

// ProductUpdate は商品更新の入力。nilの項目は変更しない。
type ProductUpdate struct {
	Name          *string
	Description   *string
	Price         *float64
	StockQuantity *int
	Category      *string
	IsActive      *bool
}

func validateProductInput(input *ProductInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if input.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if input.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// CreateProduct は新しい商品を登録する。
func (s *ProductService) CreateProduct(ctx context.Context, actor *domain.User, input *ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		Category:      input.Category,
		IsActive:      true,
		CreatedBy:     actor.ID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	return product, nil
}

// ListProducts は条件に一致する商品一覧を取得する。
func (s *ProductService) ListProducts(ctx context.Context, filter *domain.ProductFilter) ([]*domain.Product, error) {
	if filter == nil {
		filter = &domain.ProductFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	return products, nil
}

// GetProduct は指定されたIDの商品を取得する。
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

// UpdateProduct は指定されたIDの商品を更新する。
func (s *ProductService) UpdateProduct(ctx context.Context, actor *domain.User, id string, update *ProductUpdate) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	fields := make(map[string]interface{})
	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
		}
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
		}
		fields["price"] = *update.Price
	}
	if update.StockQuantity != nil {
		if *update.StockQuantity < 0 {
			return nil, fmt.Errorf("%w: stock quantity must not be negative", domain.ErrInvalidInput)
		}
		fields["stock_quantity"] = *update.StockQuantity
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("updating product: %w", err)
		}
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding updated product: %w", err)
	}
	return updated, nil
}

// DeleteProduct は指定されたIDの商品を削除する。管理者のみ実行できる。
func (s *ProductService) DeleteProduct(ctx context.Context, actor *domain.User, id string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("finding product: %w", err)
	}
	if product == nil {
		return domain.ErrProductNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}
