package admin

import (
	"errors"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

// 站点配置默认值，仅在设置表尚无记录时兜底。
var siteConfigDefaults = map[string]interface{}{
	"site_name": "Ribh",
	"locale":    constants.LocaleZhCN,
	"currency":  "CNY",
}

// GetSettings 获取站点配置 (Admin)
func (h *Handler) GetSettings(c *gin.Context) {
	data, err := h.SettingService.GetConfig(siteConfigDefaults)
	if err != nil {
		respondError(c, response.CodeInternal, "error.setting_fetch_failed", err)
		return
	}
	response.Success(c, data)
}

// UpdateSettings 更新站点配置 (Admin)
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.SettingService.Update(constants.SettingKeySiteConfig, req)
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, data)
}

// GetCommissionTierSettings 获取佣金梯度配置 (Admin)
func (h *Handler) GetCommissionTierSettings(c *gin.Context) {
	setting, err := h.SettingService.GetCommissionSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.setting_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateCommissionTierSettings 更新佣金梯度配置 (Admin)
func (h *Handler) UpdateCommissionTierSettings(c *gin.Context) {
	var req service.CommissionSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateCommissionSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrTierConfigInvalid) || errors.Is(err, service.ErrValidation) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, setting)
}

// GetWithdrawalSettings 获取提现配置 (Admin)
func (h *Handler) GetWithdrawalSettings(c *gin.Context) {
	setting, err := h.SettingService.GetWithdrawalSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.setting_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateWithdrawalSettings 更新提现配置 (Admin)
func (h *Handler) UpdateWithdrawalSettings(c *gin.Context) {
	var req service.WithdrawalSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateWithdrawalSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalConfigInvalid) || errors.Is(err, service.ErrValidation) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, setting)
}
