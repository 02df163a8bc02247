package admin

import (
	"errors"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/queue"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PricePreviewRequest 价格预览请求，二选一传入供货价或分销价
type PricePreviewRequest struct {
	SupplierPrice *decimal.Decimal `json:"supplier_price"`
	ResellerPrice *decimal.Decimal `json:"reseller_price"`
}

// PreviewPrice 按当前佣金梯度预览衍生价格 (Admin)
func (h *Handler) PreviewPrice(c *gin.Context) {
	var req PricePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if (req.SupplierPrice == nil) == (req.ResellerPrice == nil) {
		respondError(c, response.CodeBadRequest, "error.price_preview_input_invalid", nil)
		return
	}

	var (
		preview *service.PricePreview
		err     error
	)
	if req.SupplierPrice != nil {
		preview, err = h.PricingService.PreviewFromSupplierPrice(*req.SupplierPrice)
	} else {
		preview, err = h.PricingService.PreviewFromResellerPrice(*req.ResellerPrice)
	}
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

// RecalculatePricesRequest 批量重算请求
type RecalculatePricesRequest struct {
	SupplierID uint `json:"supplier_id"` // 0 表示全量
	Async      bool `json:"async"`
}

// RecalculatePrices 按最新佣金梯度批量重算分销价 (Admin)
func (h *Handler) RecalculatePrices(c *gin.Context) {
	var req RecalculatePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if req.Async && h.QueueClient != nil && h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueuePriceBulkRecalc(queue.PriceBulkRecalcPayload{SupplierID: req.SupplierID}); err != nil {
			respondError(c, response.CodeInternal, "error.recalc_enqueue_failed", err)
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}

	result, err := h.PricingService.RecalculateProducts(repository.ProductListFilter{
		SupplierID: req.SupplierID,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.recalc_failed", err)
		return
	}
	response.Success(c, result)
}
