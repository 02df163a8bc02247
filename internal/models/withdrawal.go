package models

import (
	"time"

	"gorm.io/gorm"
)

// WithdrawalRequest 提现申请表
type WithdrawalRequest struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                      // 主键
	UserID       uint           `gorm:"index;not null" json:"user_id"`                             // 申请人ID
	Amount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 申请金额
	Fees         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fees"`         // 手续费
	TotalAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 冻结总额（申请金额+手续费）
	Status       string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 状态（pending/approved/rejected/completed）
	WalletNumber string         `gorm:"type:varchar(64);not null" json:"wallet_number"`            // 收款钱包/账号
	Notes        string         `gorm:"type:varchar(255)" json:"notes"`                            // 申请备注
	RejectReason string         `gorm:"type:varchar(255)" json:"reject_reason"`                    // 驳回原因
	ProcessedBy  *uint          `gorm:"index" json:"processed_by,omitempty"`                       // 处理人（管理员ID）
	ProcessedAt  *time.Time     `json:"processed_at"`                                              // 处理时间
	CompletedAt  *time.Time     `json:"completed_at"`                                              // 打款完成时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 申请人信息
}

// TableName 指定表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
