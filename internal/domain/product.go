package domain

import "time"

// Product は商品エンティティを表す。
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         float64
	StockQuantity int
	Category      string
	IsActive      bool
	CreatedBy     string // 作成ユーザーのID（不明な場合は空）
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductFilter は商品一覧の絞り込み条件を表す。
type ProductFilter struct {
	Category string
	IsActive *bool
	Offset   int
	Limit    int
}
