package public

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

// GetCatalogProducts 采购目录：在售商品列表（推广者/批发商）
func (h *Handler) GetCatalogProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	supplierID, _ := strconv.ParseUint(c.Query("supplier_id"), 10, 64)

	products, total, err := h.ProductService.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		SupplierID: uint(supplierID),
		Search:     c.Query("search"),
		OnlyActive: true,
	})
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

// ListMyProducts 我的商品列表（供应商）
func (h *Handler) ListMyProducts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		SupplierID: userID,
		Search:     c.Query("search"),
	})
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

// getOwnProduct 获取当前供应商名下的商品，带归属校验。
func (h *Handler) getOwnProduct(c *gin.Context, userID uint) (*models.Product, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return nil, false
	}

	product, err := h.ProductService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return nil, false
	}
	if product.SupplierID != userID {
		respondError(c, response.CodeForbidden, "error.forbidden", nil)
		return nil, false
	}
	return product, true
}

// GetMyProduct 我的商品详情（供应商）
func (h *Handler) GetMyProduct(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	product, ok := h.getOwnProduct(c, userID)
	if !ok {
		return
	}
	response.Success(c, product)
}

// CreateMyProductRequest 供应商创建商品请求
type CreateMyProductRequest struct {
	SKU           string             `json:"sku" binding:"required"`
	Name          string             `json:"name" binding:"required"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice decimal.Decimal    `json:"supplier_price"`
	ResellerPrice decimal.Decimal    `json:"reseller_price"`
	PriceOverride bool               `json:"price_override"`
	StockQuantity int                `json:"stock_quantity"`
}

// CreateMyProduct 供应商创建商品
func (h *Handler) CreateMyProduct(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateMyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Create(service.CreateProductParams{
		SupplierID:    userID,
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

// UpdateMyProductRequest 供应商更新商品请求
type UpdateMyProductRequest struct {
	Name          *string            `json:"name"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice *decimal.Decimal   `json:"supplier_price"`
	ResellerPrice *decimal.Decimal   `json:"reseller_price"`
	PriceOverride *bool              `json:"price_override"`
	IsActive      *bool              `json:"is_active"`
}

// UpdateMyProduct 供应商更新商品
func (h *Handler) UpdateMyProduct(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	product, ok := h.getOwnProduct(c, userID)
	if !ok {
		return
	}

	var req UpdateMyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	updated, err := h.ProductService.Update(product.ID, service.UpdateProductParams{
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
	response.Success(c, updated)
}

// RestockMyProductRequest 供应商补货请求
type RestockMyProductRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// RestockMyProduct 供应商调整库存
func (h *Handler) RestockMyProduct(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	product, ok := h.getOwnProduct(c, userID)
	if !ok {
		return
	}

	var req RestockMyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	updated, err := h.ProductService.Restock(product.ID, req.Delta)
	if err != nil {
		respondProductWriteError(c, err)
		return
	}
	response.Success(c, updated)
}

// MyPricePreviewRequest 供应商价格预览请求
type MyPricePreviewRequest struct {
	SupplierPrice decimal.Decimal `json:"supplier_price" binding:"required"`
}

// PreviewMyPrice 供应商按当前佣金梯度预览分销价
func (h *Handler) PreviewMyPrice(c *gin.Context) {
	var req MyPricePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	preview, err := h.PricingService.PreviewFromSupplierPrice(req.SupplierPrice)
	if err != nil {
		if errors.Is(err, service.ErrPriceInvalid) || errors.Is(err, service.ErrValidation) {
			respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.price_preview_failed", err)
		return
	}
	response.Success(c, preview)
}
