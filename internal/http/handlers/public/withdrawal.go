package public

import (
	"errors"
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateWithdrawalRequest 提现申请请求
type CreateWithdrawalRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	WalletNumber string          `json:"wallet_number" binding:"required"`
	Notes        string          `json:"notes"`
}

// CreateWithdrawal 发起提现申请
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	request, err := h.WithdrawalService.Create(service.CreateWithdrawalParams{
		UserID:       userID,
		Amount:       req.Amount,
		WalletNumber: req.WalletNumber,
		Notes:        req.Notes,
	})
	if err != nil {
		respondWithdrawalCreateError(c, err)
		return
	}
	response.Success(c, request)
}

// ListMyWithdrawals 我的提现申请列表
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	requests, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.withdrawal_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, requests, pagination)
}

// GetMyWithdrawal 我的提现申请详情
func (h *Handler) GetMyWithdrawal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	request, err := h.WithdrawalService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalNotFound) {
			respondError(c, response.CodeNotFound, "error.withdrawal_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.withdrawal_fetch_failed", err)
		return
	}
	if request.UserID != userID {
		respondError(c, response.CodeForbidden, "error.forbidden", nil)
		return
	}
	response.Success(c, request)
}
