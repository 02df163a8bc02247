package admin

import (
	"errors"
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminWithdrawals 获取提现申请列表 (Admin)
func (h *Handler) GetAdminWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	requests, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uint(userID),
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

// GetAdminWithdrawal 获取提现申请详情 (Admin)
func (h *Handler) GetAdminWithdrawal(c *gin.Context) {
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
	response.Success(c, request)
}

// ApproveWithdrawal 审批通过提现申请 (Admin)
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	request, err := h.WithdrawalService.Approve(uint(id), adminID)
	if err != nil {
		respondWithdrawalWriteError(c, err)
		return
	}
	response.Success(c, request)
}

// RejectWithdrawalRequest 驳回提现请求
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// RejectWithdrawal 驳回提现申请并释放冻结额 (Admin)
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	request, err := h.WithdrawalService.Reject(uint(id), adminID, req.Reason)
	if err != nil {
		respondWithdrawalWriteError(c, err)
		return
	}
	response.Success(c, request)
}

// CompleteWithdrawal 标记提现已打款并出账 (Admin)
func (h *Handler) CompleteWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	request, err := h.WithdrawalService.Complete(uint(id), adminID)
	if err != nil {
		respondWithdrawalWriteError(c, err)
		return
	}
	response.Success(c, request)
}

func respondWithdrawalWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWithdrawalNotFound):
		respondError(c, response.CodeNotFound, "error.withdrawal_not_found", nil)
	case errors.Is(err, service.ErrWithdrawalNotPending):
		respondError(c, response.CodeBadRequest, "error.withdrawal_not_pending", nil)
	case errors.Is(err, service.ErrWithdrawalNotApproved):
		respondError(c, response.CodeBadRequest, "error.withdrawal_not_approved", nil)
	case errors.Is(err, service.ErrLedgerInvariant):
		respondError(c, response.CodeConflict, "error.ledger_invariant", err)
	case errors.Is(err, service.ErrValidation):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
