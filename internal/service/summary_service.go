package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/cache"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
)

const (
	summaryCacheTTL         = 45 * time.Second
	summaryCustomMaxDays    = 90
	pendingWithdrawalsAlert = 10
)

// SummaryService 结算总览服务
// 说明：聚合后台首页的分润与提现经营数据。
type SummaryService struct {
	statsRepo repository.SettlementStatsRepository
}

// NewSummaryService 创建结算总览服务
func NewSummaryService(statsRepo repository.SettlementStatsRepository) *SummaryService {
	return &SummaryService{statsRepo: statsRepo}
}

// SummaryQueryInput 总览查询输入
type SummaryQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// SettlementOverviewResponse 结算总览响应
type SettlementOverviewResponse struct {
	Range    string             `json:"range"`
	From     string             `json:"from"`
	To       string             `json:"to"`
	Timezone string             `json:"timezone"`
	KPI      SettlementKPI      `json:"kpi"`
	Alerts   []SummaryAlertItem `json:"alerts"`
}

// SettlementKPI 结算核心指标
type SettlementKPI struct {
	DistributedOrders  int64  `json:"distributed_orders"`
	TotalCommission    string `json:"total_commission"`
	TotalMarketerShare string `json:"total_marketer_share"`
	TotalSupplierShare string `json:"total_supplier_share"`
	PendingWithdrawals int64  `json:"pending_withdrawals"`
	PendingHeldAmount  string `json:"pending_held_amount"`
	CompletedPayouts   int64  `json:"completed_payouts"`
	CompletedAmount    string `json:"completed_amount"`
	DeficitWallets     int64  `json:"deficit_wallets"`
}

// SummaryAlertItem 总览告警项
type SummaryAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

type summaryWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取结算总览
func (s *SummaryService) GetOverview(ctx context.Context, input SummaryQueryInput) (*SettlementOverviewResponse, error) {
	if s == nil || s.statsRepo == nil {
		return &SettlementOverviewResponse{}, nil
	}

	window, err := resolveSummaryWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("settlement:overview:%s:%d:%d:%s",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
	)
	if !input.ForceRefresh {
		var cached SettlementOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.statsRepo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	deficitWallets, err := s.statsRepo.CountDeficitWallets()
	if err != nil {
		return nil, err
	}

	response := &SettlementOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: SettlementKPI{
			DistributedOrders:  overview.DistributedOrders,
			TotalCommission:    formatMoneyValue(overview.TotalCommission),
			TotalMarketerShare: formatMoneyValue(overview.TotalMarketerShare),
			TotalSupplierShare: formatMoneyValue(overview.TotalSupplierShare),
			PendingWithdrawals: overview.PendingWithdrawals,
			PendingHeldAmount:  formatMoneyValue(overview.PendingHeldAmount),
			CompletedPayouts:   overview.CompletedPayouts,
			CompletedAmount:    formatMoneyValue(overview.CompletedAmount),
			DeficitWallets:     deficitWallets,
		},
		Alerts: buildSummaryAlerts(overview, deficitWallets),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, summaryCacheTTL)
	return response, nil
}

func resolveSummaryWindow(input SummaryQueryInput, now time.Time) (summaryWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := summaryWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return summaryWindow{}, ErrSummaryRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return summaryWindow{}, ErrSummaryRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*summaryCustomMaxDays {
			return summaryWindow{}, ErrSummaryRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return summaryWindow{}, ErrSummaryRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return summaryWindow{}, ErrSummaryRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildSummaryAlerts(overview repository.SettlementOverviewRow, deficitWallets int64) []SummaryAlertItem {
	alerts := make([]SummaryAlertItem, 0, 2)
	if deficitWallets > 0 {
		alerts = append(alerts, SummaryAlertItem{Type: "deficit_wallets", Level: "error", Value: deficitWallets})
	}
	if overview.PendingWithdrawals >= pendingWithdrawalsAlert {
		alerts = append(alerts, SummaryAlertItem{Type: "pending_withdrawals", Level: "warning", Value: overview.PendingWithdrawals})
	}
	return alerts
}
