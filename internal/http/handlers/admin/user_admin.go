package admin

import (
	"strconv"
	"strings"

	"github.com/aminamgad/ribh-v1-sub006/internal/cache"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminUsers 获取商户列表 (Admin)
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("search"),
		Role:     c.Query("role"),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, users, pagination)
}

// GetAdminUser 获取商户详情 (Admin)
func (h *Handler) GetAdminUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	user, err := h.UserRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	response.Success(c, user)
}

// UpdateAdminUserRequest 更新商户请求
type UpdateAdminUserRequest struct {
	DisplayName *string `json:"display_name"`
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone"`
	Status      *string `json:"status"`
}

// UpdateAdminUser 更新商户资料与状态 (Admin)
func (h *Handler) UpdateAdminUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, err := h.UserRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.CompanyName != nil {
		user.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
			respondError(c, response.CodeBadRequest, "error.user_status_invalid", nil)
			return
		}
		user.Status = status
	}

	if err := h.UserRepo.Update(user); err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	// 状态变更立即生效，清掉鉴权缓存
	_ = cache.DelUserAuthState(c.Request.Context(), user.ID)
	response.Success(c, user)
}
