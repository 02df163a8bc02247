package service

import (
	"fmt"
	"strings"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包账本服务：余额变动一律走带锁事务并落流水
type WalletService struct {
	walletRepo repository.WalletRepository
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// OrderSettlementReference 构造分润入账流水引用（轮次参与幂等键）
func OrderSettlementReference(orderID uint, round int, part string) string {
	return fmt.Sprintf("order:%d:settlement:%d:%s", orderID, round, part)
}

// WithdrawalReference 构造提现流水引用
func WithdrawalReference(withdrawalID uint, part string) string {
	return fmt.Sprintf("withdrawal:%d:%s", withdrawalID, part)
}

// GetAccount 获取用户钱包（不存在时惰性创建）
func (s *WalletService) GetAccount(userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.getOrCreateAccount(s.walletRepo, userID)
}

// ListAccounts 分页查询钱包账户
func (s *WalletService) ListAccounts(filter repository.WalletAccountListFilter) ([]models.WalletAccount, int64, error) {
	return s.walletRepo.ListAccounts(filter)
}

// ListTransactions 分页查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

func (s *WalletService) getOrCreateAccount(repo repository.WalletRepository, userID uint) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.WalletAccount{
		UserID:   userID,
		Currency: constants.SiteCurrencyDefault,
	}
	if err := repo.CreateAccount(account); err != nil {
		// 并发创建撞唯一约束时回查
		existing, getErr := repo.GetAccountByUserID(userID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrWalletAccountCreateFailed, err)
	}
	return account, nil
}

func (s *WalletService) ensureAccountForUpdate(repo repository.WalletRepository, userID uint) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.WalletAccount{
		UserID:   userID,
		Currency: constants.SiteCurrencyDefault,
	}
	if err := repo.CreateAccount(account); err != nil {
		existing, getErr := repo.GetAccountByUserIDForUpdate(userID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrWalletAccountCreateFailed, err)
	}
	return account, nil
}

// CreditParams 入账参数
type CreditParams struct {
	UserID       uint
	Amount       decimal.Decimal
	Type         string
	Reference    string
	OrderID      *uint
	WithdrawalID *uint
	Remark       string
	Earnings     bool // 是否计入累计入账
}

// CreditInTx 在事务内入账。引用已存在时视为重复请求，原样返回已有流水。
func (s *WalletService) CreditInTx(tx *gorm.DB, params CreditParams) (*models.WalletAccount, *models.WalletTransaction, error) {
	if params.UserID == 0 || strings.TrimSpace(params.Reference) == "" {
		return nil, nil, ErrValidation
	}
	amount := models.NewMoneyFromDecimal(params.Amount)
	if !amount.GreaterThan(decimal.Zero) {
		return nil, nil, fmt.Errorf("%w: 入账金额必须大于 0", ErrAmountInvalid)
	}

	repo := s.walletRepo.WithTx(tx)
	existing, err := repo.GetTransactionByReference(params.Reference)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		account, err := repo.GetAccountByUserID(params.UserID)
		if err != nil {
			return nil, nil, err
		}
		return account, existing, nil
	}

	account, err := s.ensureAccountForUpdate(repo, params.UserID)
	if err != nil {
		return nil, nil, err
	}

	balanceBefore := account.Balance
	account.Balance = models.NewMoneyFromDecimal(balanceBefore.Add(amount.Decimal))
	if params.Earnings {
		account.TotalEarnings = models.NewMoneyFromDecimal(account.TotalEarnings.Add(amount.Decimal))
	}
	account.HasDeficit = account.Balance.IsNegative()
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
	}

	txn := &models.WalletTransaction{
		WalletID:      account.ID,
		UserID:        account.UserID,
		OrderID:       params.OrderID,
		WithdrawalID:  params.WithdrawalID,
		Type:          params.Type,
		Direction:     constants.WalletTxnDirectionIn,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  account.Balance,
		Reference:     params.Reference,
		Remark:        params.Remark,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletTransactionCreateFailed, err)
	}
	return account, txn, nil
}

// DebitParams 回退扣账参数
type DebitParams struct {
	UserID    uint
	Amount    decimal.Decimal
	Type      string
	Reference string
	OrderID   *uint
	Remark    string
}

// DebitReversalInTx 在事务内做分润回退扣账。
// 扣减额与当初入账额一致，允许余额转负并置赤字标记待人工对账。
func (s *WalletService) DebitReversalInTx(tx *gorm.DB, params DebitParams) (*models.WalletAccount, *models.WalletTransaction, error) {
	if params.UserID == 0 || strings.TrimSpace(params.Reference) == "" {
		return nil, nil, ErrValidation
	}
	amount := models.NewMoneyFromDecimal(params.Amount)
	if amount.IsNegative() {
		return nil, nil, fmt.Errorf("%w: 回退金额不能为负", ErrLedgerInvariant)
	}
	if amount.IsZero() {
		return nil, nil, nil
	}

	repo := s.walletRepo.WithTx(tx)
	existing, err := repo.GetTransactionByReference(params.Reference)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		account, err := repo.GetAccountByUserID(params.UserID)
		if err != nil {
			return nil, nil, err
		}
		return account, existing, nil
	}

	account, err := s.ensureAccountForUpdate(repo, params.UserID)
	if err != nil {
		return nil, nil, err
	}

	balanceBefore := account.Balance
	account.Balance = models.NewMoneyFromDecimal(balanceBefore.Sub(amount.Decimal))
	account.TotalEarnings = models.NewMoneyFromDecimal(account.TotalEarnings.Sub(amount.Decimal))
	if account.Balance.IsNegative() {
		if !account.HasDeficit {
			logger.Warnw("钱包回退后出现赤字",
				"user_id", account.UserID,
				"balance", account.Balance.String(),
				"reference", params.Reference)
		}
		account.HasDeficit = true
	} else {
		account.HasDeficit = false
	}
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
	}

	txn := &models.WalletTransaction{
		WalletID:      account.ID,
		UserID:        account.UserID,
		OrderID:       params.OrderID,
		Type:          params.Type,
		Direction:     constants.WalletTxnDirectionOut,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  account.Balance,
		Reference:     params.Reference,
		Remark:        params.Remark,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletTransactionCreateFailed, err)
	}
	return account, txn, nil
}

// HoldForWithdrawalInTx 在事务内冻结提现额度。
// 准入口径为可用余额（余额减已冻结），不足时返回差额明细。
func (s *WalletService) HoldForWithdrawalInTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.WalletAccount, error) {
	hold := models.NewMoneyFromDecimal(amount)
	if !hold.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: 冻结金额必须大于 0", ErrAmountInvalid)
	}

	repo := s.walletRepo.WithTx(tx)
	account, err := s.ensureAccountForUpdate(repo, userID)
	if err != nil {
		return nil, err
	}

	available := account.Balance.Sub(account.PendingWithdrawals.Decimal)
	if available.LessThan(hold.Decimal) {
		return nil, &InsufficientBalanceError{
			Required:  hold,
			Available: account.AvailableBalance(),
		}
	}

	account.PendingWithdrawals = models.NewMoneyFromDecimal(account.PendingWithdrawals.Add(hold.Decimal))
	if err := repo.UpdateAccount(account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
	}
	return account, nil
}

// ReleaseHoldInTx 在事务内释放提现冻结（驳回时使用）
func (s *WalletService) ReleaseHoldInTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.WalletAccount, error) {
	release := models.NewMoneyFromDecimal(amount)
	if !release.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: 释放金额必须大于 0", ErrAmountInvalid)
	}

	repo := s.walletRepo.WithTx(tx)
	account, err := s.ensureAccountForUpdate(repo, userID)
	if err != nil {
		return nil, err
	}
	if account.PendingWithdrawals.LessThan(release.Decimal) {
		return nil, fmt.Errorf("%w: 冻结余额 %s 不足以释放 %s",
			ErrLedgerInvariant, account.PendingWithdrawals.String(), release.String())
	}

	account.PendingWithdrawals = models.NewMoneyFromDecimal(account.PendingWithdrawals.Sub(release.Decimal))
	if err := repo.UpdateAccount(account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
	}
	return account, nil
}

// FinalizeWithdrawalInTx 在事务内完成提现出账：
// 同时扣减余额与冻结额、累加累计提现并落出账流水。
func (s *WalletService) FinalizeWithdrawalInTx(tx *gorm.DB, userID uint, withdrawalID uint, amount decimal.Decimal) (*models.WalletAccount, *models.WalletTransaction, error) {
	payout := models.NewMoneyFromDecimal(amount)
	if !payout.GreaterThan(decimal.Zero) {
		return nil, nil, fmt.Errorf("%w: 出账金额必须大于 0", ErrAmountInvalid)
	}

	repo := s.walletRepo.WithTx(tx)
	reference := WithdrawalReference(withdrawalID, "finalize")
	existing, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		account, err := repo.GetAccountByUserID(userID)
		if err != nil {
			return nil, nil, err
		}
		return account, existing, nil
	}

	account, err := s.ensureAccountForUpdate(repo, userID)
	if err != nil {
		return nil, nil, err
	}
	if account.PendingWithdrawals.LessThan(payout.Decimal) {
		return nil, nil, fmt.Errorf("%w: 冻结余额 %s 小于出账金额 %s",
			ErrLedgerInvariant, account.PendingWithdrawals.String(), payout.String())
	}
	if account.Balance.LessThan(payout.Decimal) {
		return nil, nil, fmt.Errorf("%w: 余额 %s 小于出账金额 %s",
			ErrLedgerInvariant, account.Balance.String(), payout.String())
	}

	balanceBefore := account.Balance
	account.Balance = models.NewMoneyFromDecimal(balanceBefore.Sub(payout.Decimal))
	account.PendingWithdrawals = models.NewMoneyFromDecimal(account.PendingWithdrawals.Sub(payout.Decimal))
	account.TotalWithdrawals = models.NewMoneyFromDecimal(account.TotalWithdrawals.Add(payout.Decimal))
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
	}

	txn := &models.WalletTransaction{
		WalletID:      account.ID,
		UserID:        account.UserID,
		WithdrawalID:  &withdrawalID,
		Type:          constants.WalletTxnTypeWithdrawal,
		Direction:     constants.WalletTxnDirectionOut,
		Amount:        payout,
		BalanceBefore: balanceBefore,
		BalanceAfter:  account.Balance,
		Reference:     reference,
		Remark:        "提现出账",
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrWalletTransactionCreateFailed, err)
	}
	return account, txn, nil
}

// AdminAdjustBalance 管理员手工调账（正数入账、负数扣账，扣账不得透支）
func (s *WalletService) AdminAdjustBalance(userID uint, amount decimal.Decimal, remark string) (*models.WalletAccount, *models.WalletTransaction, error) {
	delta := models.NewMoneyFromDecimal(amount)
	if delta.IsZero() {
		return nil, nil, fmt.Errorf("%w: 调账金额不能为 0", ErrAmountInvalid)
	}

	var (
		account *models.WalletAccount
		txn     *models.WalletTransaction
	)
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.walletRepo.WithTx(tx)
		locked, err := s.ensureAccountForUpdate(repo, userID)
		if err != nil {
			return err
		}

		if delta.IsNegative() && locked.Balance.LessThan(delta.Abs()) {
			return &InsufficientBalanceError{
				Required:  models.NewMoneyFromDecimal(delta.Abs()),
				Available: models.NewMoneyFromDecimal(locked.Balance.Decimal),
			}
		}

		balanceBefore := locked.Balance
		locked.Balance = models.NewMoneyFromDecimal(balanceBefore.Add(delta.Decimal))
		if err := repo.UpdateAccount(locked); err != nil {
			return fmt.Errorf("%w: %v", ErrWalletAccountUpdateFailed, err)
		}

		direction := constants.WalletTxnDirectionIn
		if delta.IsNegative() {
			direction = constants.WalletTxnDirectionOut
		}
		row := &models.WalletTransaction{
			WalletID:      locked.ID,
			UserID:        locked.UserID,
			Type:          constants.WalletTxnTypeAdminAdjust,
			Direction:     direction,
			Amount:        models.NewMoneyFromDecimal(delta.Abs()),
			BalanceBefore: balanceBefore,
			BalanceAfter:  locked.Balance,
			Reference:     "admin:adjust:" + uuid.NewString(),
			Remark:        remark,
		}
		if err := repo.CreateTransaction(row); err != nil {
			return fmt.Errorf("%w: %v", ErrWalletTransactionCreateFailed, err)
		}

		account = locked
		txn = row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Infow("管理员手工调账",
		"user_id", userID,
		"amount", delta.String(),
		"balance", account.Balance.String())
	return account, txn, nil
}
