package public

import (
	"errors"
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderItemRequest 下单单项
type CreateOrderItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	SalePrice decimal.Decimal `json:"sale_price"` // 推广者可覆盖售价，留空按商品分销价
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Items []CreateOrderItemRequest `json:"items" binding:"required"`
}

// CreateOrder 采购下单（推广者/批发商）
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.Items) == 0 {
		respondError(c, response.CodeBadRequest, "error.order_item_invalid", nil)
		return
	}

	items := make([]service.CreateOrderItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateOrderItemParams{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			SalePrice: item.SalePrice,
		})
	}

	order, err := h.OrderService.Create(service.CreateOrderParams{
		CustomerID: userID,
		Items:      items,
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 我的订单列表；供应商看名下销售订单，采购方看自己的采购订单
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		OrderNo:  c.Query("order_no"),
	}
	if getUserRole(c) == constants.UserRoleSupplier {
		filter.SupplierID = userID
	} else {
		filter.CustomerID = userID
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

// getOwnOrder 获取订单并校验归属（买方或卖方）。
func (h *Handler) getOwnOrder(c *gin.Context, userID uint) (*models.Order, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return nil, false
	}

	order, err := h.OrderService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return nil, false
	}
	if order.CustomerID != userID && order.SupplierID != userID {
		respondError(c, response.CodeForbidden, "error.forbidden", nil)
		return nil, false
	}
	return order, true
}

// GetOrder 我的订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	order, ok := h.getOwnOrder(c, userID)
	if !ok {
		return
	}
	response.Success(c, order)
}

// UpdateMyOrderStatusRequest 卖方推进订单状态请求
type UpdateMyOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateMyOrderStatus 供应商推进订单状态（含交付触发分润）
func (h *Handler) UpdateMyOrderStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	order, ok := h.getOwnOrder(c, userID)
	if !ok {
		return
	}
	if order.SupplierID != userID {
		respondError(c, response.CodeForbidden, "error.forbidden", nil)
		return
	}

	var req UpdateMyOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	updated, err := h.OrderService.UpdateStatus(order.ID, req.Status)
	if err != nil {
		respondOrderStatusError(c, err)
		return
	}
	response.Success(c, updated)
}

// CancelOrder 采购方取消待处理订单
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	order, ok := h.getOwnOrder(c, userID)
	if !ok {
		return
	}
	if order.CustomerID != userID {
		respondError(c, response.CodeForbidden, "error.forbidden", nil)
		return
	}
	// 采购方只能在待处理阶段取消，后续状态由卖方处理
	if order.Status != constants.OrderStatusPending {
		respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
		return
	}

	updated, err := h.OrderService.UpdateStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		respondOrderStatusError(c, err)
		return
	}
	response.Success(c, updated)
}
