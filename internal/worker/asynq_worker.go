package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/provider"
	"github.com/aminamgad/ribh-v1-sub006/internal/queue"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskProfitDistribute, c.handleProfitDistribute)
	mux.HandleFunc(queue.TaskPriceBulkRecalc, c.handlePriceBulkRecalc)
	mux.HandleFunc(queue.TaskWithdrawalNotify, c.handleWithdrawalNotify)
}

func (c *Consumer) handleProfitDistribute(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.ProfitDistributePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_profit_distribute_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.SettlementService == nil {
		return nil
	}

	breakdown, err := c.SettlementService.Distribute(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_profit_distribute_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderNotDelivered):
			// 入队后订单被取消等场景，放弃本次入账
			logger.Debugw("worker_profit_distribute_skip_not_delivered", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrConcurrencyConflict):
			logger.Warnw("worker_profit_distribute_conflict_retry", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_profit_distribute_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if breakdown.AlreadyDistributed {
		logger.Debugw("worker_profit_distribute_skip_duplicated", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handlePriceBulkRecalc(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.PriceBulkRecalcPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_price_bulk_recalc_unmarshal_failed", "error", err)
		return err
	}
	if c.PricingService == nil {
		return nil
	}

	result, err := c.PricingService.RecalculateProducts(repository.ProductListFilter{
		SupplierID: payload.SupplierID,
	})
	if err != nil {
		logger.Warnw("worker_price_bulk_recalc_failed", "supplier_id", payload.SupplierID, "error", err)
		return err
	}
	if result.Failed > 0 {
		logger.Warnw("worker_price_bulk_recalc_partial_failed",
			"supplier_id", payload.SupplierID,
			"failed", result.Failed,
			"total", result.Total)
	}
	return nil
}

func (c *Consumer) handleWithdrawalNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.WithdrawalNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_withdrawal_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.WithdrawalID == 0 || c.WithdrawalService == nil {
		return nil
	}

	request, err := c.WithdrawalService.Get(payload.WithdrawalID)
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalNotFound) {
			logger.Debugw("worker_withdrawal_notify_skip_not_found", "withdrawal_id", payload.WithdrawalID)
			return nil
		}
		return err
	}

	receiver := ""
	if c.UserRepo != nil {
		user, err := c.UserRepo.GetByID(request.UserID)
		if err == nil && user != nil {
			receiver = user.Email
		}
	}
	// 通知渠道外接，这里落审计日志
	logger.Infow("提现处理结果通知",
		"withdrawal_id", request.ID,
		"user_id", request.UserID,
		"receiver", receiver,
		"status", request.Status,
		"amount", request.Amount.String())
	return nil
}
