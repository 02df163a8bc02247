package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementEventPublisher 结算事件发布接口（缓存失效等旁路动作）
type SettlementEventPublisher interface {
	PublishWalletChanged(userIDs ...uint)
	PublishOverviewChanged()
}

// SettlementService 分润结算服务：交付订单入账与取消订单回退
type SettlementService struct {
	orderRepo      repository.OrderRepository
	walletService  *WalletService
	pricingService *PricingService
	settingService *SettingService
	cfg            config.SettlementConfig
	events         SettlementEventPublisher
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	orderRepo repository.OrderRepository,
	walletService *WalletService,
	pricingService *PricingService,
	settingService *SettingService,
	cfg config.SettlementConfig,
) *SettlementService {
	return &SettlementService{
		orderRepo:      orderRepo,
		walletService:  walletService,
		pricingService: pricingService,
		settingService: settingService,
		cfg:            cfg,
	}
}

// SetEventPublisher 注入结算事件发布器（可选）
func (s *SettlementService) SetEventPublisher(events SettlementEventPublisher) {
	s.events = events
}

// SettlementBreakdown 单笔订单结算结果
type SettlementBreakdown struct {
	OrderID            uint         `json:"order_id"`
	OrderNo            string       `json:"order_no"`
	CustomerRole       string       `json:"customer_role"`
	Commission         models.Money `json:"commission"`
	MarketerProfit     models.Money `json:"marketer_profit"`
	SupplierProfit     models.Money `json:"supplier_profit"`
	Degraded           bool         `json:"degraded"`
	AlreadyDistributed bool         `json:"already_distributed"`
}

// Distribute 对已交付订单执行分润入账。
// 已入账订单原样返回存量结果；数据库并发冲突按配置上限重试。
func (s *SettlementService) Distribute(orderID uint) (*SettlementBreakdown, error) {
	var (
		breakdown *SettlementBreakdown
		err       error
	)
	retryMax := s.cfg.ConflictRetryMax
	if retryMax < 1 {
		retryMax = 1
	}
	for attempt := 1; attempt <= retryMax; attempt++ {
		breakdown, err = s.distributeOnce(orderID)
		if err == nil || !isConflictError(err) {
			break
		}
		logger.Warnw("分润入账遇到并发冲突，准备重试",
			"order_id", orderID,
			"attempt", attempt,
			"error", err)
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	if err != nil {
		if isConflictError(err) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	if !breakdown.AlreadyDistributed {
		s.publishWalletChanged(breakdown)
	}
	return breakdown, nil
}

func (s *SettlementService) distributeOnce(orderID uint) (*SettlementBreakdown, error) {
	setting, err := s.settingService.GetCommissionSetting()
	if err != nil {
		return nil, err
	}

	var breakdown *SettlementBreakdown
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.ProfitsDistributed {
			breakdown = &SettlementBreakdown{
				OrderID:            order.ID,
				OrderNo:            order.OrderNo,
				CustomerRole:       order.CustomerRole,
				Commission:         order.Commission,
				MarketerProfit:     order.MarketerProfit,
				SupplierProfit:     order.SupplierProfit,
				AlreadyDistributed: true,
			}
			return nil
		}
		if order.Status != constants.OrderStatusDelivered {
			return ErrOrderNotDelivered
		}

		result, err := s.computeBreakdown(setting, order)
		if err != nil {
			return err
		}

		round := order.SettlementRound + 1
		orderIDRef := order.ID
		if result.Commission.GreaterThan(decimal.Zero) {
			if _, _, err := s.walletService.CreditInTx(tx, CreditParams{
				UserID:    s.cfg.PlatformUserID,
				Amount:    result.Commission.Decimal,
				Type:      constants.WalletTxnTypeCommission,
				Reference: OrderSettlementReference(order.ID, round, "commission"),
				OrderID:   &orderIDRef,
				Remark:    fmt.Sprintf("订单 %s 平台佣金", order.OrderNo),
				Earnings:  true,
			}); err != nil {
				return err
			}
		}
		if result.MarketerProfit.GreaterThan(decimal.Zero) {
			if _, _, err := s.walletService.CreditInTx(tx, CreditParams{
				UserID:    order.CustomerID,
				Amount:    result.MarketerProfit.Decimal,
				Type:      constants.WalletTxnTypeMarketerProfit,
				Reference: OrderSettlementReference(order.ID, round, "marketer_profit"),
				OrderID:   &orderIDRef,
				Remark:    fmt.Sprintf("订单 %s 推广利润", order.OrderNo),
				Earnings:  true,
			}); err != nil {
				return err
			}
		}
		if result.SupplierProfit.GreaterThan(decimal.Zero) {
			if _, _, err := s.walletService.CreditInTx(tx, CreditParams{
				UserID:    order.SupplierID,
				Amount:    result.SupplierProfit.Decimal,
				Type:      constants.WalletTxnTypeSupplierProfit,
				Reference: OrderSettlementReference(order.ID, round, "supplier_profit"),
				OrderID:   &orderIDRef,
				Remark:    fmt.Sprintf("订单 %s 供货利润", order.OrderNo),
				Earnings:  true,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := repo.UpdateStatus(order.ID, order.Status, map[string]interface{}{
			"commission":          result.Commission,
			"marketer_profit":     result.MarketerProfit,
			"supplier_profit":     result.SupplierProfit,
			"profits_distributed": true,
			"distributed_at":      now,
			"settlement_round":    round,
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
		}

		breakdown = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !breakdown.AlreadyDistributed {
		logger.Infow("订单分润入账完成",
			"order_id", breakdown.OrderID,
			"order_no", breakdown.OrderNo,
			"customer_role", breakdown.CustomerRole,
			"commission", breakdown.Commission.String(),
			"marketer_profit", breakdown.MarketerProfit.String(),
			"supplier_profit", breakdown.SupplierProfit.String(),
			"degraded", breakdown.Degraded)
	}
	return breakdown, nil
}

// computeBreakdown 按下单方角色拆分订单金额：
// 推广单：推广利润 = 成交额 - 供货成本 - 佣金（负值归零并告警），供货利润取剩余；
// 批发单：无推广利润，供货利润 = 成交额 - 佣金。
func (s *SettlementService) computeBreakdown(setting CommissionSetting, order *models.Order) (*SettlementBreakdown, error) {
	commissionResult := s.pricingService.CommissionForItems(setting, order.OrderNo, order.Items, order.TotalAmount.Decimal)
	commission := models.NewMoneyFromDecimal(commissionResult.Commission)

	total := order.TotalAmount.Decimal
	marketerProfit := models.ZeroMoney()

	switch order.CustomerRole {
	case constants.UserRoleMarketer:
		raw := total.Sub(order.SupplierCostTotal.Decimal).Sub(commission.Decimal)
		if raw.IsNegative() {
			logger.Warnw("推广利润为负，已归零处理",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"total_amount", order.TotalAmount.String(),
				"supplier_cost_total", order.SupplierCostTotal.String(),
				"commission", commission.String())
			raw = decimal.Zero
		}
		marketerProfit = models.NewMoneyFromDecimal(raw)
	case constants.UserRoleWholesaler:
		// 批发价成交，无推广分成
	default:
		return nil, fmt.Errorf("%w: 未知下单方角色 %s", ErrValidation, order.CustomerRole)
	}

	supplierProfit := models.NewMoneyFromDecimal(total.Sub(marketerProfit.Decimal).Sub(commission.Decimal))
	if supplierProfit.IsNegative() {
		return nil, fmt.Errorf("%w: 订单 %s 供货利润为负（%s）",
			ErrLedgerInvariant, order.OrderNo, supplierProfit.String())
	}

	return &SettlementBreakdown{
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		CustomerRole:   order.CustomerRole,
		Commission:     commission,
		MarketerProfit: marketerProfit,
		SupplierProfit: supplierProfit,
		Degraded:       commissionResult.Degraded,
	}, nil
}

// ReversalResult 分润回退结果
type ReversalResult struct {
	OrderID        uint         `json:"order_id"`
	OrderNo        string       `json:"order_no"`
	Commission     models.Money `json:"commission"`
	MarketerProfit models.Money `json:"marketer_profit"`
	SupplierProfit models.Money `json:"supplier_profit"`
	HasDeficit     bool         `json:"has_deficit"`
}

// Reverse 对已入账订单执行分润回退（独立入口，订单取消流程走 ReverseInTx）
func (s *SettlementService) Reverse(orderID uint) (*ReversalResult, error) {
	var result *ReversalResult
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !order.ProfitsDistributed {
			return ErrOrderNotDistributed
		}
		result, err = s.ReverseInTx(tx, order)
		return err
	})
	if err != nil {
		if isConflictError(err) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	s.publishReversal(result)
	return result, nil
}

// ReverseInTx 在事务内回退已入账分润：按订单存量金额原数扣回，
// 允许钱包转负（赤字留痕），随后清除入账标记。
// 调用方需持有订单行锁；未入账订单原样返回 nil。
func (s *SettlementService) ReverseInTx(tx *gorm.DB, order *models.Order) (*ReversalResult, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.ProfitsDistributed {
		return nil, nil
	}

	round := order.SettlementRound
	orderIDRef := order.ID
	hasDeficit := false

	debit := func(userID uint, amount models.Money, txnType, part, remark string) error {
		if !amount.GreaterThan(decimal.Zero) {
			return nil
		}
		account, _, err := s.walletService.DebitReversalInTx(tx, DebitParams{
			UserID:    userID,
			Amount:    amount.Decimal,
			Type:      txnType,
			Reference: OrderSettlementReference(order.ID, round, part),
			OrderID:   &orderIDRef,
			Remark:    remark,
		})
		if err != nil {
			return err
		}
		if account != nil && account.HasDeficit {
			hasDeficit = true
		}
		return nil
	}

	if err := debit(s.cfg.PlatformUserID, order.Commission,
		constants.WalletTxnTypeCommissionReversal, "commission_reversal",
		fmt.Sprintf("订单 %s 佣金回退", order.OrderNo)); err != nil {
		return nil, err
	}
	if err := debit(order.CustomerID, order.MarketerProfit,
		constants.WalletTxnTypeProfitReversal, "marketer_profit_reversal",
		fmt.Sprintf("订单 %s 推广利润回退", order.OrderNo)); err != nil {
		return nil, err
	}
	if err := debit(order.SupplierID, order.SupplierProfit,
		constants.WalletTxnTypeProfitReversal, "supplier_profit_reversal",
		fmt.Sprintf("订单 %s 供货利润回退", order.OrderNo)); err != nil {
		return nil, err
	}

	result := &ReversalResult{
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		Commission:     order.Commission,
		MarketerProfit: order.MarketerProfit,
		SupplierProfit: order.SupplierProfit,
		HasDeficit:     hasDeficit,
	}

	if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, order.Status, map[string]interface{}{
		"commission":          models.ZeroMoney(),
		"marketer_profit":     models.ZeroMoney(),
		"supplier_profit":     models.ZeroMoney(),
		"profits_distributed": false,
		"distributed_at":      nil,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}

	logger.Infow("订单分润回退完成",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"commission", result.Commission.String(),
		"marketer_profit", result.MarketerProfit.String(),
		"supplier_profit", result.SupplierProfit.String(),
		"has_deficit", hasDeficit)
	return result, nil
}

// PublishReversal 回退完成后的事件发布（订单取消流程在事务提交后调用）
func (s *SettlementService) PublishReversal(result *ReversalResult) {
	s.publishReversal(result)
}

func (s *SettlementService) publishWalletChanged(breakdown *SettlementBreakdown) {
	if s.events == nil || breakdown == nil {
		return
	}
	userIDs := []uint{s.cfg.PlatformUserID}
	order, err := s.orderRepo.GetByID(breakdown.OrderID)
	if err == nil && order != nil {
		userIDs = append(userIDs, order.CustomerID, order.SupplierID)
	}
	s.events.PublishWalletChanged(userIDs...)
	s.events.PublishOverviewChanged()
}

func (s *SettlementService) publishReversal(result *ReversalResult) {
	if s.events == nil || result == nil {
		return
	}
	userIDs := []uint{s.cfg.PlatformUserID}
	order, err := s.orderRepo.GetByID(result.OrderID)
	if err == nil && order != nil {
		userIDs = append(userIDs, order.CustomerID, order.SupplierID)
	}
	s.events.PublishWalletChanged(userIDs...)
	s.events.PublishOverviewChanged()
}

// isConflictError 识别数据库并发冲突类错误
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",
		"deadlock",
		"could not serialize",
		"lock wait timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
