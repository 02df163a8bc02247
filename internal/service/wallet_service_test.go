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

func setupWalletServiceTest(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.WalletAccount{}, &models.WalletTransaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewWalletService(repository.NewWalletRepository(db)), db
}

func TestWalletCreditIdempotentByReference(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	reference := OrderSettlementReference(7, 1, "supplier_profit")
	account, txn, err := svc.CreditInTx(db, CreditParams{
		UserID:    11,
		Amount:    decimal.NewFromInt(160),
		Type:      constants.WalletTxnTypeSupplierProfit,
		Reference: reference,
		Earnings:  true,
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}
	if !account.TotalEarnings.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("earnings not accumulated: %s", account.TotalEarnings.String())
	}
	if txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected direction: %s", txn.Direction)
	}

	// 同引用重复入账：原样返回存量流水，余额不变
	account, again, err := svc.CreditInTx(db, CreditParams{
		UserID:    11,
		Amount:    decimal.NewFromInt(160),
		Type:      constants.WalletTxnTypeSupplierProfit,
		Reference: reference,
		Earnings:  true,
	})
	if err != nil {
		t.Fatalf("repeat credit failed: %v", err)
	}
	if again.ID != txn.ID {
		t.Fatalf("expected existing transaction %d, got %d", txn.ID, again.ID)
	}
	if !account.Balance.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("balance changed on repeat: %s", account.Balance.String())
	}

	var count int64
	db.Model(&models.WalletTransaction{}).Where("user_id = ?", 11).Count(&count)
	if count != 1 {
		t.Fatalf("expected one transaction, got %d", count)
	}
}

func TestWalletCreditRejectsNonPositiveAmount(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	if _, _, err := svc.CreditInTx(db, CreditParams{
		UserID:    11,
		Amount:    decimal.Zero,
		Type:      constants.WalletTxnTypeCommission,
		Reference: "order:1:settlement:1:commission",
	}); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("expected amount invalid, got %v", err)
	}
	if _, _, err := svc.CreditInTx(db, CreditParams{
		UserID: 11,
		Amount: decimal.NewFromInt(10),
		Type:   constants.WalletTxnTypeCommission,
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing reference, got %v", err)
	}
}

func TestWalletDebitReversalAllowsDeficit(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	if _, _, err := svc.CreditInTx(db, CreditParams{
		UserID:    12,
		Amount:    decimal.NewFromInt(50),
		Type:      constants.WalletTxnTypeMarketerProfit,
		Reference: OrderSettlementReference(8, 1, "marketer_profit"),
		Earnings:  true,
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	account, _, err := svc.DebitReversalInTx(db, DebitParams{
		UserID:    12,
		Amount:    decimal.NewFromInt(80),
		Type:      constants.WalletTxnTypeProfitReversal,
		Reference: OrderSettlementReference(8, 1, "marketer_profit_reversal"),
	})
	if err != nil {
		t.Fatalf("reversal debit failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("expected balance -30, got %s", account.Balance.String())
	}
	if !account.HasDeficit {
		t.Fatal("deficit flag must be set on negative balance")
	}
	if !account.TotalEarnings.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("earnings not reduced: %s", account.TotalEarnings.String())
	}

	// 补回入账后赤字标记解除
	account, _, err = svc.CreditInTx(db, CreditParams{
		UserID:    12,
		Amount:    decimal.NewFromInt(100),
		Type:      constants.WalletTxnTypeMarketerProfit,
		Reference: OrderSettlementReference(9, 1, "marketer_profit"),
		Earnings:  true,
	})
	if err != nil {
		t.Fatalf("recovery credit failed: %v", err)
	}
	if account.HasDeficit {
		t.Fatal("deficit flag must clear once balance is non-negative")
	}
}

func TestWalletHoldReleaseFinalizeCycle(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	if _, _, err := svc.CreditInTx(db, CreditParams{
		UserID:    13,
		Amount:    decimal.NewFromInt(500),
		Type:      constants.WalletTxnTypeSupplierProfit,
		Reference: OrderSettlementReference(20, 1, "supplier_profit"),
		Earnings:  true,
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	account, err := svc.HoldForWithdrawalInTx(db, 13, decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if !account.PendingWithdrawals.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected pending: %s", account.PendingWithdrawals.String())
	}
	if !account.AvailableBalance().Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected available: %s", account.AvailableBalance().String())
	}

	// 可用余额口径：余额 500、冻结 300，再冻结 201 必须失败
	_, err = svc.HoldForWithdrawalInTx(db, 13, decimal.NewFromInt(201))
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected typed insufficient error, got %T", err)
	}
	if !insufficient.Shortfall().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected shortfall: %s", insufficient.Shortfall().String())
	}

	account, err = svc.ReleaseHoldInTx(db, 13, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !account.PendingWithdrawals.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected pending after release: %s", account.PendingWithdrawals.String())
	}

	account, txn, err := svc.FinalizeWithdrawalInTx(db, 13, 42, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected balance after payout: %s", account.Balance.String())
	}
	if !account.PendingWithdrawals.IsZero() {
		t.Fatalf("pending must be cleared, got %s", account.PendingWithdrawals.String())
	}
	if !account.TotalWithdrawals.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("total withdrawals not accumulated: %s", account.TotalWithdrawals.String())
	}
	if txn.Type != constants.WalletTxnTypeWithdrawal || txn.Direction != constants.WalletTxnDirectionOut {
		t.Fatalf("unexpected payout transaction: %+v", txn)
	}

	// 同提现重复出账：幂等返回存量流水
	account, again, err := svc.FinalizeWithdrawalInTx(db, 13, 42, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("repeat finalize failed: %v", err)
	}
	if again.ID != txn.ID {
		t.Fatalf("expected existing payout transaction %d, got %d", txn.ID, again.ID)
	}
	if !account.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("balance changed on repeat payout: %s", account.Balance.String())
	}
}

func TestWalletReleaseHoldGuardsLedger(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	if _, err := svc.ReleaseHoldInTx(db, 14, decimal.NewFromInt(10)); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("release beyond pending must violate ledger invariant, got %v", err)
	}
}

func TestWalletAdminAdjust(t *testing.T) {
	svc, _ := setupWalletServiceTest(t)

	account, txn, err := svc.AdminAdjustBalance(15, decimal.NewFromInt(80), "对账补差")
	if err != nil {
		t.Fatalf("positive adjust failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}
	if txn.Type != constants.WalletTxnTypeAdminAdjust || txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected adjust transaction: %+v", txn)
	}

	account, txn, err = svc.AdminAdjustBalance(15, decimal.NewFromInt(-30), "误差回收")
	if err != nil {
		t.Fatalf("negative adjust failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected balance after debit: %s", account.Balance.String())
	}
	if txn.Direction != constants.WalletTxnDirectionOut {
		t.Fatalf("unexpected direction: %s", txn.Direction)
	}

	// 扣账不得透支
	if _, _, err := svc.AdminAdjustBalance(15, decimal.NewFromInt(-60), "超额扣款"); !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if _, _, err := svc.AdminAdjustBalance(15, decimal.Zero, "零额"); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("expected amount invalid for zero delta, got %v", err)
	}
}
