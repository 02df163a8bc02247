package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWithdrawalServiceTest(t *testing.T) (*WithdrawalService, *WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:withdrawal_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.WithdrawalRequest{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	walletService := NewWalletService(repository.NewWalletRepository(db))
	settingService := NewSettingService(repository.NewSettingRepository(db))
	withdrawalService := NewWithdrawalService(repository.NewWithdrawalRepository(db), walletService, settingService)
	return withdrawalService, walletService, db
}

func seedWithdrawalTestAccount(t *testing.T, db *gorm.DB, userID uint, balance, pending int64) *models.WalletAccount {
	t.Helper()
	account := &models.WalletAccount{
		UserID:             userID,
		Balance:            models.NewMoneyFromDecimal(decimal.NewFromInt(balance)),
		PendingWithdrawals: models.NewMoneyFromDecimal(decimal.NewFromInt(pending)),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("seed wallet account failed: %v", err)
	}
	return account
}

func TestWithdrawalCreateHoldsAmountPlusFees(t *testing.T) {
	svc, walletService, db := setupWithdrawalServiceTest(t)
	seedWithdrawalTestAccount(t, db, 21, 1000, 200)

	// 默认配置：最低 100，手续费 2%
	request, err := svc.Create(CreateWithdrawalParams{
		UserID:       21,
		Amount:       decimal.NewFromInt(750),
		WalletNumber: "6222021234567890",
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	if !request.Fees.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected fees: %s", request.Fees.String())
	}
	if !request.TotalAmount.Equal(decimal.NewFromInt(765)) {
		t.Fatalf("unexpected total: %s", request.TotalAmount.String())
	}
	if request.Status != constants.WithdrawalStatusPending {
		t.Fatalf("unexpected status: %s", request.Status)
	}

	account, err := walletService.GetAccount(21)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.PendingWithdrawals.Equal(decimal.NewFromInt(965)) {
		t.Fatalf("hold not applied, pending = %s", account.PendingWithdrawals.String())
	}
	if !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance must not move on hold, got %s", account.Balance.String())
	}

	// 可用余额已被前一笔占满，再申请必然超出
	if _, err := svc.Create(CreateWithdrawalParams{
		UserID:       21,
		Amount:       decimal.NewFromInt(100),
		WalletNumber: "6222021234567890",
	}); !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestWithdrawalCreateValidations(t *testing.T) {
	svc, _, db := setupWithdrawalServiceTest(t)
	account := seedWithdrawalTestAccount(t, db, 22, 1000, 0)

	if _, err := svc.Create(CreateWithdrawalParams{
		UserID:       22,
		Amount:       decimal.NewFromInt(200),
		WalletNumber: "   ",
	}); !errors.Is(err, ErrWalletNumberMissing) {
		t.Fatalf("expected wallet number missing, got %v", err)
	}

	if _, err := svc.Create(CreateWithdrawalParams{
		UserID:       22,
		Amount:       decimal.NewFromInt(50),
		WalletNumber: "6222020000",
	}); !errors.Is(err, ErrWithdrawBelowMinimum) {
		t.Fatalf("expected below minimum, got %v", err)
	}

	// 单户最低提现额覆盖全局最低额
	account.MinimumWithdrawal = models.NewMoneyFromDecimal(decimal.NewFromInt(500))
	if err := db.Save(account).Error; err != nil {
		t.Fatalf("update account failed: %v", err)
	}
	if _, err := svc.Create(CreateWithdrawalParams{
		UserID:       22,
		Amount:       decimal.NewFromInt(300),
		WalletNumber: "6222020000",
	}); !errors.Is(err, ErrWithdrawBelowMinimum) {
		t.Fatalf("expected per-account minimum to apply, got %v", err)
	}
}

func TestWithdrawalCreateRespectsGlobalMaximum(t *testing.T) {
	svc, _, db := setupWithdrawalServiceTest(t)
	seedWithdrawalTestAccount(t, db, 23, 100000, 0)

	setting := DefaultWithdrawalSetting()
	setting.MaxAmount = decimal.NewFromInt(5000)
	settingService := svc.settingService
	if _, err := settingService.UpdateWithdrawalSetting(setting); err != nil {
		t.Fatalf("update withdrawal setting failed: %v", err)
	}

	if _, err := svc.Create(CreateWithdrawalParams{
		UserID:       23,
		Amount:       decimal.NewFromInt(6000),
		WalletNumber: "6222020000",
	}); !errors.Is(err, ErrWithdrawAboveMaximum) {
		t.Fatalf("expected above maximum, got %v", err)
	}
}

func TestWithdrawalRejectReleasesHold(t *testing.T) {
	svc, walletService, db := setupWithdrawalServiceTest(t)
	seedWithdrawalTestAccount(t, db, 24, 1000, 0)

	request, err := svc.Create(CreateWithdrawalParams{
		UserID:       24,
		Amount:       decimal.NewFromInt(500),
		WalletNumber: "6222020000",
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	rejected, err := svc.Reject(request.ID, 1, "渠道信息不符")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.WithdrawalStatusRejected || rejected.RejectReason == "" {
		t.Fatalf("unexpected rejected state: %+v", rejected)
	}

	account, err := walletService.GetAccount(24)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.PendingWithdrawals.IsZero() {
		t.Fatalf("hold not released: %s", account.PendingWithdrawals.String())
	}
	if !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance must be intact, got %s", account.Balance.String())
	}

	// 已驳回的申请不能再审批
	if _, err := svc.Approve(request.ID, 1); !errors.Is(err, ErrWithdrawalNotPending) {
		t.Fatalf("expected not pending, got %v", err)
	}
}

func TestWithdrawalApproveCompleteLifecycle(t *testing.T) {
	svc, walletService, db := setupWithdrawalServiceTest(t)
	seedWithdrawalTestAccount(t, db, 25, 1000, 0)

	request, err := svc.Create(CreateWithdrawalParams{
		UserID:       25,
		Amount:       decimal.NewFromInt(500),
		WalletNumber: "6222020000",
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	// 未审批的申请不能直接打款
	if _, err := svc.Complete(request.ID, 1); !errors.Is(err, ErrWithdrawalNotApproved) {
		t.Fatalf("expected not approved, got %v", err)
	}

	approved, err := svc.Approve(request.ID, 1)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.WithdrawalStatusApproved || approved.ProcessedBy == nil {
		t.Fatalf("unexpected approved state: %+v", approved)
	}

	completed, err := svc.Complete(request.ID, 1)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != constants.WithdrawalStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed state: %+v", completed)
	}

	account, err := walletService.GetAccount(25)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	// 打款扣减含手续费的冻结总额 510
	if !account.Balance.Equal(decimal.NewFromInt(490)) {
		t.Fatalf("unexpected balance after payout: %s", account.Balance.String())
	}
	if !account.PendingWithdrawals.IsZero() {
		t.Fatalf("pending must be cleared, got %s", account.PendingWithdrawals.String())
	}
	if !account.TotalWithdrawals.Equal(decimal.NewFromInt(510)) {
		t.Fatalf("total withdrawals not accumulated: %s", account.TotalWithdrawals.String())
	}
}

func TestWithdrawalSettingFees(t *testing.T) {
	setting := DefaultWithdrawalSetting()
	if fee := setting.FeeFor(decimal.NewFromInt(750)); !fee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("percent fee mismatch: %s", fee.String())
	}

	setting.FeeType = constants.WithdrawalFeeTypeFlat
	setting.FeeValue = decimal.NewFromInt(5)
	if fee := setting.FeeFor(decimal.NewFromInt(750)); !fee.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("flat fee mismatch: %s", fee.String())
	}
}
