package public

import (
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"

	"github.com/gin-gonic/gin"
)

var publicConfigDefaults = map[string]interface{}{
	"site_name": "Ribh",
	"locale":    constants.LocaleZhCN,
	"currency":  "CNY",
}

// GetConfig 获取站点公开配置
func (h *Handler) GetConfig(c *gin.Context) {
	data, err := h.SettingService.GetConfig(publicConfigDefaults)
	if err != nil {
		respondError(c, response.CodeInternal, "error.setting_fetch_failed", err)
		return
	}
	response.Success(c, data)
}
