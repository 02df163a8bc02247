package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（结算字段：佣金与各方分润在分发时一次性写入）
type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                             // 主键
	OrderNo            string         `gorm:"uniqueIndex;not null" json:"order_no"`                             // 订单编号
	SupplierID         uint           `gorm:"index;not null" json:"supplier_id"`                                // 供应商ID
	CustomerID         uint           `gorm:"index;not null" json:"customer_id"`                                // 下单方ID（推广者或批发商）
	CustomerRole       string         `gorm:"type:varchar(20);not null;index" json:"customer_role"`             // 下单方角色（marketer/wholesaler）
	Status             string         `gorm:"index;not null" json:"status"`                                     // 订单状态
	Currency           string         `gorm:"not null;default:'CNY'" json:"currency"`                           // 币种
	SupplierCostTotal  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"supplier_cost_total"` // 供货成本合计（按供货价）
	TotalAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`        // 订单成交总额
	Commission         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission"`          // 平台佣金（分发时写入）
	MarketerProfit     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"marketer_profit"`     // 推广者利润（分发时写入）
	SupplierProfit     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"supplier_profit"`     // 供应商利润（分发时写入）
	ProfitsDistributed bool           `gorm:"not null;default:false;index" json:"profits_distributed"`          // 分润是否已入账（仅分发引擎置位、仅回退引擎清除）
	SettlementRound    int            `gorm:"not null;default:0" json:"settlement_round"`                       // 结算轮次（每次分润入账递增，用于流水幂等键）
	DistributedAt      *time.Time     `json:"distributed_at"`                                                   // 分润入账时间
	DeliveredAt        *time.Time     `gorm:"index" json:"delivered_at"`                                        // 交付完成时间
	CanceledAt         *time.Time     `gorm:"index" json:"canceled_at"`                                         // 取消时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	// 关联
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	Supplier *User       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"` // 供应商信息
	Customer *User       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 下单方信息
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
