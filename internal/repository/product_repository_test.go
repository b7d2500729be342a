package repository

import (
	"context"
	"testing"
	"time"

	"atb-backend/internal/domain"

	"gorm.io/gorm"
)

// setupProductDB はproductsテーブルを作成済みのテスト用DBを返す。
func setupProductDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupTestDB(t)
	if err := db.AutoMigrate(&ProductModel{}); err != nil {
		t.Fatalf("failed to create products table: %v", err)
	}
	return db
}

// insertProduct はテスト商品を直接挿入する。
func insertProduct(t *testing.T, db *gorm.DB, name, category string, active bool, createdAt time.Time) *ProductModel {
	t.Helper()

	model := &ProductModel{
		Name:      name,
		Price:     100,
		Category:  category,
		IsActive:  active,
		CreatedAt: createdAt,
	}
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to insert test product: %v", err)
	}
	return model
}

func TestProductRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := setupProductDB(t)
	repo := NewProductRepository(db)

	product := &domain.Product{
		Name:          "Mechanical Keyboard",
		Price:         129.99,
		StockQuantity: 20,
		Category:      "peripherals",
		IsActive:      true,
		CreatedBy:     "user-1",
	}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if product.ID == "" {
		t.Error("expected ID to be generated, got empty")
	}
	if product.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set, got zero value")
	}

	var count int64
	if err := db.Model(&ProductModel{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 record, got %d", count)
	}
}

func TestProductRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	db := setupProductDB(t)
	repo := NewProductRepository(db)
	model := insertProduct(t, db, "Keyboard", "peripherals", true, time.Now())

	product, err := repo.FindByID(ctx, model.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if product == nil || product.Name != "Keyboard" {
		t.Errorf("unexpected product: %+v", product)
	}

	product, err = repo.FindByID(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if product != nil {
		t.Errorf("expected nil, got %+v", product)
	}
}

func TestProductRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	db := setupProductDB(t)
	repo := NewProductRepository(db)

	base := time.Now().Add(-time.Hour)
	insertProduct(t, db, "Keyboard", "peripherals", true, base)
	insertProduct(t, db, "Mouse", "peripherals", false, base.Add(time.Minute))
	insertProduct(t, db, "Desk", "furniture", true, base.Add(2*time.Minute))

	// フィルタなしは作成日時の降順で全件返る
	products, err := repo.FindAll(ctx, &domain.ProductFilter{Limit: 10})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	if products[0].Name != "Desk" {
		t.Errorf("expected newest product first, got %s", products[0].Name)
	}

	// カテゴリで絞り込み
	products, err = repo.FindAll(ctx, &domain.ProductFilter{Category: "peripherals", Limit: 10})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}

	// 有効フラグとの組み合わせ
	active := true
	products, err = repo.FindAll(ctx, &domain.ProductFilter{Category: "peripherals", IsActive: &active, Limit: 10})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Keyboard" {
		t.Errorf("unexpected filtered products: %+v", products)
	}

	// offsetとlimitによるページング
	products, err = repo.FindAll(ctx, &domain.ProductFilter{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Mouse" {
		t.Errorf("unexpected page: %+v", products)
	}
}

func TestProductRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := setupProductDB(t)
	repo := NewProductRepository(db)
	model := insertProduct(t, db, "Keyboard", "peripherals", true, time.Now())

	err := repo.Update(ctx, model.ID, map[string]interface{}{
		"price":          89.5,
		"stock_quantity": 42,
		"is_active":      false,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	product, err := repo.FindByID(ctx, model.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if product.Price != 89.5 || product.StockQuantity != 42 || product.IsActive {
		t.Errorf("unexpected product after update: %+v", product)
	}
}

func TestProductRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupProductDB(t)
	repo := NewProductRepository(db)
	model := insertProduct(t, db, "Keyboard", "peripherals", true, time.Now())

	if err := repo.Delete(ctx, model.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	product, err := repo.FindByID(ctx, model.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if product != nil {
		t.Errorf("expected nil after delete, got %+v", product)
	}
}
