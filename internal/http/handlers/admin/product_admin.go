package admin

import (
	"errors"
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminProducts 获取商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	supplierID, _ := strconv.ParseUint(c.Query("supplier_id"), 10, 64)

	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		SupplierID: uint(supplierID),
		Search:     c.Query("search"),
	}
	if raw := c.Query("price_overridden"); raw != "" {
		overridden := raw == "true" || raw == "1"
		filter.PriceOverridden = &overridden
	}

	products, total, err := h.ProductService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetAdminProduct 获取商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	product, err := h.ProductService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.Success(c, product)
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	SupplierID    uint               `json:"supplier_id" binding:"required"`
	SKU           string             `json:"sku" binding:"required"`
	Name          string             `json:"name" binding:"required"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice decimal.Decimal    `json:"supplier_price"`
	ResellerPrice decimal.Decimal    `json:"reseller_price"`
	PriceOverride bool               `json:"price_override"`
	StockQuantity int                `json:"stock_quantity"`
}

// CreateProduct 创建商品 (Admin)
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Create(service.CreateProductParams{
		SupplierID:    req.SupplierID,
		SKU:           req.SKU,
		Name:          req.Name,
		Tags:          req.Tags,
		SupplierPrice: req.SupplierPrice,
		ResellerPrice: req.ResellerPrice,
		PriceOverride: req.PriceOverride,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		respondProductWriteError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateProductRequest 更新商品请求
type UpdateProductRequest struct {
	Name          *string            `json:"name"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice *decimal.Decimal   `json:"supplier_price"`
	ResellerPrice *decimal.Decimal   `json:"reseller_price"`
	PriceOverride *bool              `json:"price_override"`
	IsActive      *bool              `json:"is_active"`
}

// UpdateProduct 更新商品 (Admin)
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Update(uint(id), service.UpdateProductParams{
		Name:          req.Name,
		Tags:          req.Tags,
		SupplierPrice: req.SupplierPrice,
		ResellerPrice: req.ResellerPrice,
		PriceOverride: req.PriceOverride,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondProductWriteError(c, err)
		return
	}
	response.Success(c, product)
}

// RestockProductRequest 补货请求
type RestockProductRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// RestockProduct 调整商品库存 (Admin)
func (h *Handler) RestockProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req RestockProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Restock(uint(id), req.Delta)
	if err != nil {
		respondProductWriteError(c, err)
		return
	}
	response.Success(c, product)
}

func respondProductWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "error.product_not_found", nil)
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, response.CodeBadRequest, "error.supplier_not_found", nil)
	case errors.Is(err, service.ErrPriceInvalid):
		respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
	case errors.Is(err, service.ErrValidation):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
