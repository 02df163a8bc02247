package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListOrders 获取订单列表 (Admin)
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	supplierID, _ := strconv.ParseUint(c.Query("supplier_id"), 10, 64)
	customerID, _ := strconv.ParseUint(c.Query("customer_id"), 10, 64)

	filter := repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		SupplierID: uint(supplierID),
		CustomerID: uint(customerID),
		Status:     c.Query("status"),
		OrderNo:    c.Query("order_no"),
	}
	if raw := c.Query("distributed"); raw != "" {
		distributed := raw == "true" || raw == "1"
		filter.Distributed = &distributed
	}
	if from, err := time.Parse(time.RFC3339, c.Query("created_from")); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("created_to")); err == nil {
		filter.CreatedTo = &to
	}

	orders, total, err := h.OrderService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, orders, pagination)
}

// AdminGetOrder 获取订单详情 (Admin)
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateOrderStatus 更新订单状态 (Admin)
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.UpdateStatus(uint(id), req.Status)
	if err != nil {
		respondOrderWriteError(c, err)
		return
	}
	response.Success(c, order)
}

// AdminDeleteOrder 删除订单 (Admin)
func (h *Handler) AdminDeleteOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.OrderService.Delete(uint(id)); err != nil {
		respondOrderWriteError(c, err)
		return
	}
	response.Success(c, nil)
}

// BulkDeleteOrdersRequest 批量删除订单请求
type BulkDeleteOrdersRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required"`
}

// AdminBulkDeleteOrders 批量删除订单，逐单独立事务，部分失败不影响其余 (Admin)
func (h *Handler) AdminBulkDeleteOrders(c *gin.Context) {
	var req BulkDeleteOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.OrderIDs) == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result := h.OrderService.BulkDelete(req.OrderIDs)
	response.Success(c, result)
}

// AdminDistributeOrder 手工触发订单分润 (Admin)
func (h *Handler) AdminDistributeOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	breakdown, err := h.SettlementService.Distribute(uint(id))
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	response.Success(c, breakdown)
}

// AdminReverseOrder 手工回退订单分润 (Admin)
func (h *Handler) AdminReverseOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.SettlementService.Reverse(uint(id))
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	response.Success(c, result)
}

func respondOrderWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
	case errors.Is(err, service.ErrOrderStatusTransition):
		respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
	case errors.Is(err, service.ErrValidation):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrConcurrencyConflict):
		respondError(c, response.CodeConflict, "error.settlement_conflict", nil)
	case errors.Is(err, service.ErrLedgerInvariant):
		respondError(c, response.CodeConflict, "error.ledger_invariant", err)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}

func respondSettlementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
	case errors.Is(err, service.ErrOrderNotDelivered):
		respondError(c, response.CodeBadRequest, "error.order_not_delivered", nil)
	case errors.Is(err, service.ErrOrderNotDistributed):
		respondError(c, response.CodeBadRequest, "error.order_not_distributed", nil)
	case errors.Is(err, service.ErrConcurrencyConflict):
		respondError(c, response.CodeConflict, "error.settlement_conflict", nil)
	case errors.Is(err, service.ErrLedgerInvariant):
		respondError(c, response.CodeConflict, "error.ledger_invariant", err)
	case errors.Is(err, service.ErrValidation):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "error.settlement_failed", err)
	}
}
