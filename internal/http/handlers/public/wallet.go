package public

import (
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyWallet 获取我的钱包
func (h *Handler) GetMyWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	account, err := h.WalletService.GetAccount(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}
	response.Success(c, account)
}

// GetMyWalletTransactions 获取我的钱包流水
func (h *Handler) GetMyWalletTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	orderID, _ := strconv.ParseUint(c.Query("order_id"), 10, 64)

	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    userID,
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
