package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalNotifier 提现结果通知接口（队列可用时异步投递）
type WithdrawalNotifier interface {
	EnqueueWithdrawalNotify(withdrawalID uint) error
}

// WithdrawalService 提现服务：申请准入、审批与打款出账
type WithdrawalService struct {
	withdrawalRepo repository.WithdrawalRepository
	walletService  *WalletService
	settingService *SettingService
	events         SettlementEventPublisher
	notifier       WithdrawalNotifier
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	withdrawalRepo repository.WithdrawalRepository,
	walletService *WalletService,
	settingService *SettingService,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo: withdrawalRepo,
		walletService:  walletService,
		settingService: settingService,
	}
}

// SetEventPublisher 注入结算事件发布器（可选）
func (s *WithdrawalService) SetEventPublisher(events SettlementEventPublisher) {
	s.events = events
}

// SetNotifier 注入提现通知投递器（可选）
func (s *WithdrawalService) SetNotifier(notifier WithdrawalNotifier) {
	s.notifier = notifier
}

// CreateWithdrawalParams 提现申请参数
type CreateWithdrawalParams struct {
	UserID       uint            `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	WalletNumber string          `json:"wallet_number"`
	Notes        string          `json:"notes"`
}

// Create 发起提现申请。
// 准入口径为可用余额（余额减在途冻结），冻结额为申请金额加手续费；
// 单户最低提现额优先于全局配置。
func (s *WithdrawalService) Create(params CreateWithdrawalParams) (*models.WithdrawalRequest, error) {
	params.WalletNumber = strings.TrimSpace(params.WalletNumber)
	if params.UserID == 0 {
		return nil, ErrValidation
	}
	if params.WalletNumber == "" {
		return nil, ErrWalletNumberMissing
	}
	amount := models.NewMoneyFromDecimal(params.Amount)
	if !amount.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: 提现金额必须大于 0", ErrAmountInvalid)
	}

	setting, err := s.settingService.GetWithdrawalSetting()
	if err != nil {
		return nil, err
	}

	account, err := s.walletService.GetAccount(params.UserID)
	if err != nil {
		return nil, err
	}
	minimum := setting.MinAmount
	if account.MinimumWithdrawal.GreaterThan(decimal.Zero) {
		minimum = account.MinimumWithdrawal.Decimal
	}
	if amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: 最低提现金额为 %s", ErrWithdrawBelowMinimum, minimum.String())
	}
	if !setting.MaxAmount.IsZero() && amount.GreaterThan(setting.MaxAmount) {
		return nil, fmt.Errorf("%w: 单笔上限为 %s", ErrWithdrawAboveMaximum, setting.MaxAmount.String())
	}

	fees := models.NewMoneyFromDecimal(setting.FeeFor(amount.Decimal))
	totalAmount := models.NewMoneyFromDecimal(amount.Add(fees.Decimal))

	var request *models.WithdrawalRequest
	err = s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		// 冻结前在锁内校验可用余额，申请金额加手续费一并冻结
		if _, err := s.walletService.HoldForWithdrawalInTx(tx, params.UserID, totalAmount.Decimal); err != nil {
			return err
		}

		request = &models.WithdrawalRequest{
			UserID:       params.UserID,
			Amount:       amount,
			Fees:         fees,
			TotalAmount:  totalAmount,
			Status:       constants.WithdrawalStatusPending,
			WalletNumber: params.WalletNumber,
			Notes:        strings.TrimSpace(params.Notes),
		}
		return s.withdrawalRepo.WithTx(tx).Create(request)
	})
	if err != nil {
		return nil, err
	}

	s.publishChange(params.UserID)
	logger.Infow("提现申请已创建",
		"withdrawal_id", request.ID,
		"user_id", request.UserID,
		"amount", request.Amount.String(),
		"fees", request.Fees.String(),
		"total_amount", request.TotalAmount.String())
	return request, nil
}

// Get 按ID获取提现申请
func (s *WithdrawalService) Get(withdrawalID uint) (*models.WithdrawalRequest, error) {
	request, err := s.withdrawalRepo.GetByID(withdrawalID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrWithdrawalNotFound
	}
	return request, nil
}

// List 分页查询提现申请
func (s *WithdrawalService) List(filter repository.WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.List(filter)
}

// Approve 审批通过（冻结保持，待打款完成后出账）
func (s *WithdrawalService) Approve(withdrawalID, adminID uint) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.withdrawalRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWithdrawalNotFound
		}
		if locked.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		now := time.Now()
		locked.Status = constants.WithdrawalStatusApproved
		locked.ProcessedBy = &adminID
		locked.ProcessedAt = &now
		if err := repo.Update(locked); err != nil {
			return fmt.Errorf("%w: %v", ErrWithdrawalUpdateFailed, err)
		}
		request = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(request.ID)
	logger.Infow("提现申请审批通过", "withdrawal_id", request.ID, "admin_id", adminID)
	return request, nil
}

// Reject 驳回提现申请并释放冻结额度
func (s *WithdrawalService) Reject(withdrawalID, adminID uint, reason string) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.withdrawalRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWithdrawalNotFound
		}
		if locked.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		if _, err := s.walletService.ReleaseHoldInTx(tx, locked.UserID, locked.TotalAmount.Decimal); err != nil {
			return err
		}

		now := time.Now()
		locked.Status = constants.WithdrawalStatusRejected
		locked.RejectReason = strings.TrimSpace(reason)
		locked.ProcessedBy = &adminID
		locked.ProcessedAt = &now
		if err := repo.Update(locked); err != nil {
			return fmt.Errorf("%w: %v", ErrWithdrawalUpdateFailed, err)
		}
		request = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishChange(request.UserID)
	s.notify(request.ID)
	logger.Infow("提现申请已驳回", "withdrawal_id", request.ID, "admin_id", adminID, "reason", request.RejectReason)
	return request, nil
}

// Complete 打款完成：冻结转出账并落提现流水
func (s *WithdrawalService) Complete(withdrawalID, adminID uint) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.withdrawalRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWithdrawalNotFound
		}
		if locked.Status != constants.WithdrawalStatusApproved {
			return ErrWithdrawalNotApproved
		}

		if _, _, err := s.walletService.FinalizeWithdrawalInTx(tx, locked.UserID, locked.ID, locked.TotalAmount.Decimal); err != nil {
			return err
		}

		now := time.Now()
		locked.Status = constants.WithdrawalStatusCompleted
		locked.ProcessedBy = &adminID
		locked.CompletedAt = &now
		if err := repo.Update(locked); err != nil {
			return fmt.Errorf("%w: %v", ErrWithdrawalUpdateFailed, err)
		}
		request = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishChange(request.UserID)
	s.notify(request.ID)
	logger.Infow("提现打款完成",
		"withdrawal_id", request.ID,
		"user_id", request.UserID,
		"total_amount", request.TotalAmount.String())
	return request, nil
}

func (s *WithdrawalService) publishChange(userID uint) {
	if s.events == nil {
		return
	}
	s.events.PublishWalletChanged(userID)
	s.events.PublishOverviewChanged()
}

func (s *WithdrawalService) notify(withdrawalID uint) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueWithdrawalNotify(withdrawalID); err != nil {
		logger.Warnw("提现通知任务入队失败", "withdrawal_id", withdrawalID, "error", err)
	}
}
