package worker

import (
	"context"
	"errors"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/queue"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/hibiken/asynq"
)

const (
	settlementSweepInterval = time.Minute
	settlementSweepPageSize = 50
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.SettlementService != nil {
		go s.runSettlementSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runSettlementSweepLoop 兜底扫描：已送达但尚未入账的订单补发分润
func (s *Service) runSettlementSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.SettlementService == nil {
		return
	}
	s.sweepUndistributedOrders()

	ticker := time.NewTicker(settlementSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepUndistributedOrders()
		}
	}
}

func (s *Service) sweepUndistributedOrders() {
	if s == nil || s.consumer == nil || s.consumer.OrderRepo == nil || s.consumer.SettlementService == nil {
		return
	}
	distributed := false
	orders, total, err := s.consumer.OrderRepo.List(repository.OrderListFilter{
		Page:        1,
		PageSize:    settlementSweepPageSize,
		Status:      constants.OrderStatusDelivered,
		Distributed: &distributed,
	})
	if err != nil {
		logger.Warnw("worker_settlement_sweep_list_failed", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}
	logger.Infow("worker_settlement_sweep_start", "pending", total, "batch", len(orders))
	for i := range orders {
		if _, err := s.consumer.SettlementService.Distribute(orders[i].ID); err != nil {
			logger.Warnw("worker_settlement_sweep_distribute_failed",
				"order_id", orders[i].ID,
				"order_no", orders[i].OrderNo,
				"error", err)
		}
	}

	if s.consumer.StatsRepo != nil {
		if deficits, err := s.consumer.StatsRepo.CountDeficitWallets(); err == nil && deficits > 0 {
			logger.Warnw("worker_settlement_deficit_wallets", "count", deficits)
		}
	}
}
