package admin

import (
	"strconv"

	"github.com/aminamgad/ribh-v1-sub006/internal/authz"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAuthzMe 查询当前管理员的角色 (Admin)
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	isSuper := false
	if raw, exists := c.Get("admin_is_super"); exists {
		if v, typeOK := raw.(bool); typeOK {
			isSuper = v
		}
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper,
		"roles":    roles,
	})
}

// ListAuthzRoles 列出角色 (Admin)
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRoleRequest 创建角色请求
type CreateAuthzRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateAuthzRole 创建角色 (Admin)
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req CreateAuthzRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色 (Admin)
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	if err := h.AuthzService.DeleteRole(c.Param("role")); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, nil)
}

// GetAuthzRolePolicies 查询角色策略 (Admin)
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, policies)
}

// AuthzPolicyRequest 策略授予/撤销请求
type AuthzPolicyRequest struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GrantAuthzPolicy 为角色授予策略 (Admin)
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req AuthzPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, authz.Policy{
		Subject: req.Role,
		Object:  authz.NormalizeObject(req.Object),
		Action:  authz.NormalizeAction(req.Action),
	})
}

// RevokeAuthzPolicy 撤销角色策略 (Admin)
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req AuthzPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, nil)
}

// GetAuthzAdminRoles 查询管理员角色 (Admin)
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRolesRequest 覆盖设置管理员角色请求
type SetAuthzAdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// SetAuthzAdminRoles 覆盖设置管理员角色 (Admin)
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req SetAuthzAdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.SetAdminRoles(uint(id), req.Roles); err != nil {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}
