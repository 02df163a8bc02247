package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletAccount 用户钱包账户表（每个用户一条，首次访问惰性创建）
type WalletAccount struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                             // 主键
	UserID             uint           `gorm:"uniqueIndex;not null" json:"user_id"`                              // 用户ID（唯一约束兜底并发创建）
	Currency           string         `gorm:"type:varchar(10);not null;default:'CNY'" json:"currency"`          // 币种
	Balance            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`             // 余额
	PendingWithdrawals Money          `gorm:"type:decimal(20,2);not null;default:0" json:"pending_withdrawals"` // 提现冻结金额
	TotalEarnings      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`      // 累计入账（仅分润回退时扣减）
	TotalWithdrawals   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_withdrawals"`   // 累计提现
	MinimumWithdrawal  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"minimum_withdrawal"`  // 单户最低提现额（0 表示沿用全局配置）
	HasDeficit         bool           `gorm:"not null;default:false;index" json:"has_deficit"`                  // 是否处于赤字状态（分润回退导致余额为负，需人工对账）
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                                       // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// AvailableBalance 可用余额（余额减冻结，展示口径下限为 0）
func (a *WalletAccount) AvailableBalance() Money {
	available := a.Balance.Sub(a.PendingWithdrawals.Decimal)
	if available.IsNegative() {
		return ZeroMoney()
	}
	return NewMoneyFromDecimal(available)
}

// WalletTransaction 钱包流水表（reference 唯一约束保证入账幂等）
type WalletTransaction struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                        // 主键
	WalletID      uint           `gorm:"index;not null" json:"wallet_id"`                             // 钱包ID
	UserID        uint           `gorm:"index;not null" json:"user_id"`                               // 用户ID
	OrderID       *uint          `gorm:"index" json:"order_id,omitempty"`                             // 关联订单ID
	WithdrawalID  *uint          `gorm:"index" json:"withdrawal_id,omitempty"`                        // 关联提现ID
	Type          string         `gorm:"type:varchar(40);not null;index" json:"type"`                 // 流水类型
	Direction     string         `gorm:"type:varchar(10);not null" json:"direction"`                  // 方向（in/out）
	Amount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 金额
	BalanceBefore Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额
	BalanceAfter  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额
	Reference     string         `gorm:"uniqueIndex;not null" json:"reference"`                       // 业务唯一引用
	Remark        string         `gorm:"type:varchar(255)" json:"remark"`                             // 备注
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
