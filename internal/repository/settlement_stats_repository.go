package repository

import (
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"

	"gorm.io/gorm"
)

// SettlementStatsRepository 结算汇总查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type SettlementStatsRepository interface {
	GetOverview(startAt, endAt time.Time) (SettlementOverviewRow, error)
	CountDeficitWallets() (int64, error)
}

// SettlementOverviewRow 结算总览原始统计结果
type SettlementOverviewRow struct {
	DistributedOrders  int64
	TotalCommission    float64
	TotalMarketerShare float64
	TotalSupplierShare float64
	PendingWithdrawals int64
	PendingHeldAmount  float64
	CompletedPayouts   int64
	CompletedAmount    float64
}

// GormSettlementStatsRepository GORM 实现
type GormSettlementStatsRepository struct {
	db *gorm.DB
}

// NewSettlementStatsRepository 创建结算汇总仓库
func NewSettlementStatsRepository(db *gorm.DB) *GormSettlementStatsRepository {
	return &GormSettlementStatsRepository{db: db}
}

// GetOverview 统计区间内的分润与提现总览
func (r *GormSettlementStatsRepository) GetOverview(startAt, endAt time.Time) (SettlementOverviewRow, error) {
	var row SettlementOverviewRow

	err := r.db.Model(&models.Order{}).
		Where("profits_distributed = ? AND distributed_at >= ? AND distributed_at <= ?", true, startAt, endAt).
		Select("COUNT(*) AS distributed_orders, " +
			"COALESCE(SUM(commission), 0) AS total_commission, " +
			"COALESCE(SUM(marketer_profit), 0) AS total_marketer_share, " +
			"COALESCE(SUM(supplier_profit), 0) AS total_supplier_share").
		Scan(&row).Error
	if err != nil {
		return SettlementOverviewRow{}, err
	}

	err = r.db.Model(&models.WithdrawalRequest{}).
		Where("status = ?", constants.WithdrawalStatusPending).
		Select("COUNT(*) AS pending_withdrawals, COALESCE(SUM(total_amount), 0) AS pending_held_amount").
		Scan(&row).Error
	if err != nil {
		return SettlementOverviewRow{}, err
	}

	err = r.db.Model(&models.WithdrawalRequest{}).
		Where("status = ? AND completed_at >= ? AND completed_at <= ?", constants.WithdrawalStatusCompleted, startAt, endAt).
		Select("COUNT(*) AS completed_payouts, COALESCE(SUM(total_amount), 0) AS completed_amount").
		Scan(&row).Error
	if err != nil {
		return SettlementOverviewRow{}, err
	}

	return row, nil
}

// CountDeficitWallets 统计处于赤字状态的钱包数量
func (r *GormSettlementStatsRepository) CountDeficitWallets() (int64, error) {
	var count int64
	err := r.db.Model(&models.WalletAccount{}).
		Where("has_deficit = ?", true).
		Count(&count).Error
	return count, err
}
