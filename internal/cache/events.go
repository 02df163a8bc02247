package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
)

const (
	settlementEventBuffer  = 256
	settlementEventTimeout = 3 * time.Second
)

// WalletAccountKey 用户钱包缓存键
func WalletAccountKey(userID uint) string {
	return fmt.Sprintf("wallet:account:%d", userID)
}

type settlementEvent struct {
	userIDs  []uint
	overview bool
}

// SettlementEvents 结算缓存失效通道。
// 结算引擎在事务提交后发布事件，由后台监听协程异步清理缓存，
// 缓存层故障不影响账务流程。
type SettlementEvents struct {
	ch     chan settlementEvent
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewSettlementEvents 创建并启动结算缓存失效监听
func NewSettlementEvents() *SettlementEvents {
	ctx, cancel := context.WithCancel(context.Background())
	events := &SettlementEvents{
		ch:     make(chan settlementEvent, settlementEventBuffer),
		cancel: cancel,
	}
	events.wg.Add(1)
	go events.run(ctx)
	return events
}

// PublishWalletChanged 发布钱包余额变动事件
func (e *SettlementEvents) PublishWalletChanged(userIDs ...uint) {
	if e == nil || len(userIDs) == 0 {
		return
	}
	e.publish(settlementEvent{userIDs: userIDs})
}

// PublishOverviewChanged 发布结算总览变动事件
func (e *SettlementEvents) PublishOverviewChanged() {
	if e == nil {
		return
	}
	e.publish(settlementEvent{overview: true})
}

func (e *SettlementEvents) publish(event settlementEvent) {
	select {
	case e.ch <- event:
	default:
		// 通道打满时丢弃事件，缓存按 TTL 自然过期
		logger.Warnw("结算缓存失效事件被丢弃", "buffer", settlementEventBuffer)
	}
}

func (e *SettlementEvents) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.ch:
			e.handle(event)
		}
	}
}

func (e *SettlementEvents) handle(event settlementEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), settlementEventTimeout)
	defer cancel()

	for _, userID := range event.userIDs {
		if err := Del(ctx, WalletAccountKey(userID)); err != nil {
			logger.Warnw("钱包缓存清理失败", "user_id", userID, "error", err)
		}
	}
	if event.overview {
		if err := DelByPrefix(ctx, "settlement:overview:"); err != nil {
			logger.Warnw("结算总览缓存清理失败", "error", err)
		}
	}
}

// Close 停止监听并等待在途事件处理完毕
func (e *SettlementEvents) Close() {
	if e == nil {
		return
	}
	e.once.Do(func() {
		e.cancel()
		e.wg.Wait()
	})
}
