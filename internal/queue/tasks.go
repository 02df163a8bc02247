package queue

import (
	"encoding/json"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProfitDistribute 订单分润入账任务
	TaskProfitDistribute = constants.TaskProfitDistribute
	// TaskPriceBulkRecalc 商品分销价批量重算任务
	TaskPriceBulkRecalc = constants.TaskPriceBulkRecalc
	// TaskWithdrawalNotify 提现处理结果通知任务
	TaskWithdrawalNotify = constants.TaskWithdrawalNotify
)

// ProfitDistributePayload 分润入账任务载荷
type ProfitDistributePayload struct {
	OrderID uint `json:"order_id"`
}

// PriceBulkRecalcPayload 批量重算任务载荷
type PriceBulkRecalcPayload struct {
	SupplierID uint `json:"supplier_id"` // 零值表示全量重算
}

// WithdrawalNotifyPayload 提现通知任务载荷
type WithdrawalNotifyPayload struct {
	WithdrawalID uint `json:"withdrawal_id"`
}

// NewProfitDistributeTask 创建分润入账任务
func NewProfitDistributeTask(payload ProfitDistributePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProfitDistribute, body), nil
}

// NewPriceBulkRecalcTask 创建批量重算任务
func NewPriceBulkRecalcTask(payload PriceBulkRecalcPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPriceBulkRecalc, body), nil
}

// NewWithdrawalNotifyTask 创建提现通知任务
func NewWithdrawalNotifyTask(payload WithdrawalNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWithdrawalNotify, body), nil
}
