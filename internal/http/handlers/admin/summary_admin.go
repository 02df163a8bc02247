package admin

import (
	"errors"
	"strings"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

// parseSummaryDate 解析 YYYY-MM-DD 查询参数，空值返回 nil
func parseSummaryDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// GetSettlementOverview 获取结算总览 (Admin)
func (h *Handler) GetSettlementOverview(c *gin.Context) {
	from, err := parseSummaryDate(c.Query("from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.summary_range_invalid", nil)
		return
	}
	to, err := parseSummaryDate(c.Query("to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.summary_range_invalid", nil)
		return
	}

	input := service.SummaryQueryInput{
		Range:        c.DefaultQuery("range", "today"),
		From:         from,
		To:           to,
		Timezone:     c.Query("timezone"),
		ForceRefresh: c.Query("force_refresh") == "true" || c.Query("force_refresh") == "1",
	}

	overview, err := h.SummaryService.GetOverview(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrSummaryRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.summary_range_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.summary_fetch_failed", err)
		return
	}
	response.Success(c, overview)
}
