package admin

import (
	"errors"
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminWallets 获取钱包账户列表 (Admin)
func (h *Handler) GetAdminWallets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.WalletAccountListFilter{
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("has_deficit"); raw != "" {
		hasDeficit := raw == "true" || raw == "1"
		filter.HasDeficit = &hasDeficit
	}

	accounts, total, err := h.WalletService.ListAccounts(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, accounts, pagination)
}

// GetAdminUserWallet 获取指定用户钱包 (Admin)
func (h *Handler) GetAdminUserWallet(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	account, err := h.WalletService.GetAccount(uint(userID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}
	response.Success(c, account)
}

// GetAdminUserWalletTransactions 获取指定用户钱包流水 (Admin)
func (h *Handler) GetAdminUserWalletTransactions(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	orderID, _ := strconv.ParseUint(c.Query("order_id"), 10, 64)

	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    uint(userID),
		OrderID:   uint(orderID),
		Type:      c.Query("type"),
		Direction: c.Query("direction"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, transactions, pagination)
}

// AdjustWalletRequest 手工调账请求，amount 为正表示入账、为负表示扣减
type AdjustWalletRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Remark string          `json:"remark"`
}

// AdjustAdminUserWallet 手工调整用户钱包余额 (Admin)
func (h *Handler) AdjustAdminUserWallet(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req AdjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	account, txn, err := h.WalletService.AdminAdjustBalance(uint(userID), req.Amount, req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWalletInsufficientBalance):
			respondError(c, response.CodeBadRequest, "error.wallet_insufficient_balance", nil)
		case errors.Is(err, service.ErrValidation):
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	if h.Events != nil {
		h.Events.PublishWalletChanged(uint(userID))
	}
	response.Success(c, gin.H{
		"account":     account,
		"transaction": txn,
	})
}
