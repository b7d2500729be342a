package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"atb-backend/internal/domain"
	"atb-backend/internal/middleware"
	"atb-backend/internal/usecase"
	"atb-backend/pkg/httputil"
)

// ProductHandler は商品管理のHTTPハンドラを提供する。
type ProductHandler struct {
	service *usecase.ProductService
}

// NewProductHandler は新しいProductHandlerを生成する。
func NewProductHandler(service *usecase.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// CreateProductRequest は商品作成のリクエスト形式。
type CreateProductRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category"`
}

// UpdateProductRequest は商品更新のリクエスト形式。
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
	Category      *string  `json:"category"`
	IsActive      *bool    `json:"is_active"`
}

// ProductResponse は商品のレスポンス形式。
type ProductResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category"`
	IsActive      bool    `json:"is_active"`
	CreatedBy     string  `json:"created_by"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ProductListResponse は商品一覧のレスポンス形式。
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		IsActive:      p.IsActive,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateProduct は新しい商品を登録する。
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	input := &usecase.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Category:      req.Category,
	}
	product, err := h.service.CreateProduct(r.Context(), actor, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		middleware.WriteAuditLog(r.Context(), "CREATE_PRODUCT", req.Name, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "CREATE_PRODUCT", product.ID, "SUCCESS")
	httputil.JSON(w, http.StatusCreated, newProductResponse(product))
}

// ListProducts は条件に一致する商品一覧を取得する。
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := &domain.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Offset:   queryInt(r, "offset", 0),
		Limit:    queryInt(r, "limit", 100),
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "is_active must be a boolean")
			return
		}
		filter.IsActive = &active
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	response := ProductListResponse{
		Products: make([]ProductResponse, len(products)),
	}
	for i, p := range products {
		response.Products[i] = newProductResponse(p)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetProduct は指定されたIDの商品を取得する。
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	httputil.JSON(w, http.StatusOK, newProductResponse(product))
}

// UpdateProduct は指定されたIDの商品を更新する。
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	productID := chi.URLParam(r, "product_id")
	update := &usecase.ProductUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Category:      req.Category,
		IsActive:      req.IsActive,
	}

	product, err := h.service.UpdateProduct(r.Context(), actor, productID, update)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			middleware.WriteAuditLog(r.Context(), "UPDATE_PRODUCT", productID, "FAILED")
			httputil.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		middleware.WriteAuditLog(r.Context(), "UPDATE_PRODUCT", productID, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "UPDATE_PRODUCT", productID, "SUCCESS")
	httputil.JSON(w, http.StatusOK, newProductResponse(product))
}

// DeleteProduct は指定されたIDの商品を削除する。
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	productID := chi.URLParam(r, "product_id")
	err := h.service.DeleteProduct(r.Context(), actor, productID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			middleware.WriteAuditLog(r.Context(), "DELETE_PRODUCT", productID, "FAILED")
			httputil.Error(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
			return
		}
		if errors.Is(err, domain.ErrProductNotFound) {
			middleware.WriteAuditLog(r.Context(), "DELETE_PRODUCT", productID, "FAILED")
			httputil.Error(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
			return
		}
		middleware.WriteAuditLog(r.Context(), "DELETE_PRODUCT", productID, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "DELETE_PRODUCT", productID, "SUCCESS")
	httputil.NoContent(w)
}
