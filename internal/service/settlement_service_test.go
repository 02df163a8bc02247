package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const settlementTestPlatformUserID uint = 1

func setupSettlementServiceTest(t *testing.T) (*SettlementService, *WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	walletService := NewWalletService(repository.NewWalletRepository(db))
	settingService := NewSettingService(repository.NewSettingRepository(db))
	pricingService := NewPricingService(settingService, repository.NewProductRepository(db))
	settlementService := NewSettlementService(
		repository.NewOrderRepository(db),
		walletService,
		pricingService,
		settingService,
		config.SettlementConfig{PlatformUserID: settlementTestPlatformUserID, ConflictRetryMax: 3},
	)
	return settlementService, walletService, db
}

// createSettlementTestOrder 以供货价 80 的双件订单为基准快照建单
func createSettlementTestOrder(t *testing.T, db *gorm.DB, role, status string, total, cost int64) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:           fmt.Sprintf("SO%d%s", time.Now().UnixNano(), role),
		SupplierID:        101,
		CustomerID:        201,
		CustomerRole:      role,
		Status:            status,
		Currency:          constants.SiteCurrencyDefault,
		SupplierCostTotal: models.NewMoneyFromDecimal(decimal.NewFromInt(cost)),
		TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(total)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	item := &models.OrderItem{
		OrderID:    order.ID,
		ProductID:  301,
		Name:       "无线耳机",
		UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(80)),
		Quantity:   2,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(160)),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}
	order.Items = []models.OrderItem{*item}
	return order
}

func settlementTestBalance(t *testing.T, walletService *WalletService, userID uint) decimal.Decimal {
	t.Helper()
	account, err := walletService.GetAccount(userID)
	if err != nil {
		t.Fatalf("get account %d failed: %v", userID, err)
	}
	return account.Balance.Decimal
}

func TestDistributeMarketerOrder(t *testing.T) {
	svc, walletService, db := setupSettlementServiceTest(t)
	// 供货价 80 落在 15% 档：佣金 = 160 × 15% = 24
	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusDelivered, 200, 160)

	breakdown, err := svc.Distribute(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if !breakdown.Commission.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("unexpected commission: %s", breakdown.Commission.String())
	}
	if !breakdown.MarketerProfit.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("unexpected marketer profit: %s", breakdown.MarketerProfit.String())
	}
	if !breakdown.SupplierProfit.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("unexpected supplier profit: %s", breakdown.SupplierProfit.String())
	}
	if breakdown.Degraded {
		t.Fatal("commission must not degrade with valid items")
	}

	if got := settlementTestBalance(t, walletService, settlementTestPlatformUserID); !got.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("platform balance mismatch: %s", got.String())
	}
	if got := settlementTestBalance(t, walletService, 201); !got.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("marketer balance mismatch: %s", got.String())
	}
	if got := settlementTestBalance(t, walletService, 101); !got.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("supplier balance mismatch: %s", got.String())
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !stored.ProfitsDistributed || stored.SettlementRound != 1 || stored.DistributedAt == nil {
		t.Fatalf("order settlement state not persisted: %+v", stored)
	}

	// 重复分发：原样返回存量结果，余额不变
	again, err := svc.Distribute(order.ID)
	if err != nil {
		t.Fatalf("repeat distribute failed: %v", err)
	}
	if !again.AlreadyDistributed {
		t.Fatal("repeat distribute must report already distributed")
	}
	if got := settlementTestBalance(t, walletService, 101); !got.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("supplier balance changed on repeat: %s", got.String())
	}
}

func TestDistributeWholesalerOrder(t *testing.T) {
	svc, walletService, db := setupSettlementServiceTest(t)
	// 批发单按供货价成交：无推广分成，供货利润 = 160 - 24
	order := createSettlementTestOrder(t, db, constants.UserRoleWholesaler, constants.OrderStatusDelivered, 160, 160)

	breakdown, err := svc.Distribute(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if !breakdown.MarketerProfit.IsZero() {
		t.Fatalf("wholesaler order must not carry marketer profit: %s", breakdown.MarketerProfit.String())
	}
	if !breakdown.SupplierProfit.Equal(decimal.NewFromInt(136)) {
		t.Fatalf("unexpected supplier profit: %s", breakdown.SupplierProfit.String())
	}
	if got := settlementTestBalance(t, walletService, 201); !got.IsZero() {
		t.Fatalf("customer wallet must stay empty, got %s", got.String())
	}
	if got := settlementTestBalance(t, walletService, 101); !got.Equal(decimal.NewFromInt(136)) {
		t.Fatalf("supplier balance mismatch: %s", got.String())
	}
}

func TestDistributeClampsNegativeMarketerProfit(t *testing.T) {
	svc, _, db := setupSettlementServiceTest(t)
	// 成交额 170 覆盖不了成本加佣金，推广利润归零而非转负
	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusDelivered, 170, 160)

	breakdown, err := svc.Distribute(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if !breakdown.MarketerProfit.IsZero() {
		t.Fatalf("marketer profit must clamp to zero, got %s", breakdown.MarketerProfit.String())
	}
	if !breakdown.SupplierProfit.Equal(decimal.NewFromInt(146)) {
		t.Fatalf("unexpected supplier profit: %s", breakdown.SupplierProfit.String())
	}
}

func TestDistributeGuards(t *testing.T) {
	svc, _, db := setupSettlementServiceTest(t)

	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusShipped, 200, 160)
	if _, err := svc.Distribute(order.ID); !errors.Is(err, ErrOrderNotDelivered) {
		t.Fatalf("expected not delivered, got %v", err)
	}
	if _, err := svc.Distribute(99999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Reverse(order.ID); !errors.Is(err, ErrOrderNotDistributed) {
		t.Fatalf("expected not distributed, got %v", err)
	}
}

func TestReverseRestoresBalances(t *testing.T) {
	svc, walletService, db := setupSettlementServiceTest(t)
	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusDelivered, 200, 160)

	if _, err := svc.Distribute(order.ID); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	result, err := svc.Reverse(order.ID)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if !result.Commission.Equal(decimal.NewFromInt(24)) ||
		!result.MarketerProfit.Equal(decimal.NewFromInt(16)) ||
		!result.SupplierProfit.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("reversal amounts must mirror distribution: %+v", result)
	}
	if result.HasDeficit {
		t.Fatal("full-balance reversal must not leave a deficit")
	}

	for _, userID := range []uint{settlementTestPlatformUserID, 101, 201} {
		if got := settlementTestBalance(t, walletService, userID); !got.IsZero() {
			t.Fatalf("user %d balance not restored: %s", userID, got.String())
		}
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.ProfitsDistributed {
		t.Fatal("distribution flag must be cleared after reversal")
	}
	if !stored.Commission.IsZero() || !stored.MarketerProfit.IsZero() || !stored.SupplierProfit.IsZero() {
		t.Fatalf("order settlement amounts must be zeroed: %+v", stored)
	}

	// 回退后再次分发使用新一轮引用，不与旧流水撞幂等键
	redo, err := svc.Distribute(order.ID)
	if err != nil {
		t.Fatalf("redistribute failed: %v", err)
	}
	if redo.AlreadyDistributed {
		t.Fatal("redistribution after reversal must credit anew")
	}
	if got := settlementTestBalance(t, walletService, 101); !got.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("supplier balance after redistribution: %s", got.String())
	}
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.SettlementRound != 2 {
		t.Fatalf("expected settlement round 2, got %d", stored.SettlementRound)
	}
}

func TestDistributeConcurrentCallsCreditOnce(t *testing.T) {
	svc, walletService, db := setupSettlementServiceTest(t)
	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusDelivered, 200, 160)

	var wg sync.WaitGroup
	results := make([]*SettlementBreakdown, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = svc.Distribute(order.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < 2; i++ {
		if errs[i] == nil && results[i] != nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		t.Fatalf("at least one distribute must succeed: %v / %v", errs[0], errs[1])
	}

	// 并发入账只允许产生一套流水
	var txnCount int64
	if err := db.Model(&models.WalletTransaction{}).
		Where("user_id = ?", 101).Count(&txnCount).Error; err != nil {
		t.Fatalf("count supplier transactions failed: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("expected exactly one supplier credit, got %d", txnCount)
	}
	if got := settlementTestBalance(t, walletService, 101); !got.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("supplier balance mismatch: %s", got.String())
	}
	if got := settlementTestBalance(t, walletService, settlementTestPlatformUserID); !got.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("platform balance mismatch: %s", got.String())
	}
	if got := settlementTestBalance(t, walletService, 201); !got.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("marketer balance mismatch: %s", got.String())
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !stored.ProfitsDistributed || stored.SettlementRound != 1 {
		t.Fatalf("order must settle exactly one round: %+v", stored)
	}
}

func TestReverseFlagsDeficit(t *testing.T) {
	svc, walletService, db := setupSettlementServiceTest(t)
	order := createSettlementTestOrder(t, db, constants.UserRoleMarketer, constants.OrderStatusDelivered, 200, 160)

	if _, err := svc.Distribute(order.ID); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	// 推广者已把入账利润花掉大半，回退时余额转负
	if err := db.Model(&models.WalletAccount{}).Where("user_id = ?", 201).
		Update("balance", models.NewMoneyFromDecimal(decimal.NewFromInt(5))).Error; err != nil {
		t.Fatalf("drain marketer balance failed: %v", err)
	}

	result, err := svc.Reverse(order.ID)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if !result.HasDeficit {
		t.Fatal("reversal must report deficit")
	}

	account, err := walletService.GetAccount(201)
	if err != nil {
		t.Fatalf("get marketer account failed: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(-11)) {
		t.Fatalf("expected balance -11, got %s", account.Balance.String())
	}
	if !account.HasDeficit {
		t.Fatal("marketer account must carry deficit flag")
	}
}
