package service

import (
	"errors"
	"fmt"
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

// 平台账户 ID 取与自增用户 ID 不会重叠的值
const orderTestPlatformUserID uint = 9001

func setupOrderServiceTest(t *testing.T) (*OrderService, *WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	walletService := NewWalletService(repository.NewWalletRepository(db))
	settingService := NewSettingService(repository.NewSettingRepository(db))
	pricingService := NewPricingService(settingService, productRepo)
	settlementService := NewSettlementService(orderRepo, walletService, pricingService, settingService,
		config.SettlementConfig{PlatformUserID: orderTestPlatformUserID, ConflictRetryMax: 3})

	// 队列未启用，交付后走同步入账
	orderService := NewOrderService(orderRepo, productRepo, repository.NewUserRepository(db), settlementService, false)
	return orderService, walletService, db
}

func createOrderTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         role,
		Status:       "active",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createOrderTestProduct(t *testing.T, db *gorm.DB, supplierID uint, supplierPrice, resellerPrice int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		SupplierID:    supplierID,
		SKU:           fmt.Sprintf("SKU-%d", time.Now().UnixNano()),
		Name:          "测试商品",
		SupplierPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(supplierPrice)),
		ResellerPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(resellerPrice)),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestOrderCreateMarketerSnapshot(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	supplier := createOrderTestUser(t, db, constants.UserRoleSupplier)
	marketer := createOrderTestUser(t, db, constants.UserRoleMarketer)
	product := createOrderTestProduct(t, db, supplier.ID, 80, 92, 10)

	order, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items: []CreateOrderItemParams{
			{ProductID: product.ID, Quantity: 2, SalePrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.CustomerRole != constants.UserRoleMarketer {
		t.Fatalf("unexpected customer role: %s", order.CustomerRole)
	}
	// 成交价取上浮后的 100，成本口径仍按供货价 80
	if !order.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected total amount: %s", order.TotalAmount.String())
	}
	if !order.SupplierCostTotal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("unexpected cost total: %s", order.SupplierCostTotal.String())
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(order.Items))
	}
	if !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("item unit price must snapshot supplier price: %s", order.Items[0].UnitPrice.String())
	}
	if !order.Items[0].TotalPrice.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("item total must use sale price: %s", order.Items[0].TotalPrice.String())
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 8 {
		t.Fatalf("stock not deducted, got %d", stored.StockQuantity)
	}
}

func TestOrderCreateWholesalerUsesSupplierPrice(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	supplier := createOrderTestUser(t, db, constants.UserRoleSupplier)
	wholesaler := createOrderTestUser(t, db, constants.UserRoleWholesaler)
	product := createOrderTestProduct(t, db, supplier.ID, 80, 92, 10)

	order, err := svc.Create(CreateOrderParams{
		CustomerID: wholesaler.ID,
		Items: []CreateOrderItemParams{
			// 批发单忽略上浮价，一律按供货价成交
			{ProductID: product.ID, Quantity: 3, SalePrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("unexpected total amount: %s", order.TotalAmount.String())
	}
	if !order.SupplierCostTotal.Equal(order.TotalAmount.Decimal) {
		t.Fatalf("wholesaler total must equal cost, got %s vs %s",
			order.TotalAmount.String(), order.SupplierCostTotal.String())
	}
}

func TestOrderCreateValidations(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	supplierA := createOrderTestUser(t, db, constants.UserRoleSupplier)
	supplierB := createOrderTestUser(t, db, constants.UserRoleSupplier)
	marketer := createOrderTestUser(t, db, constants.UserRoleMarketer)
	productA := createOrderTestProduct(t, db, supplierA.ID, 80, 92, 5)
	productB := createOrderTestProduct(t, db, supplierB.ID, 60, 69, 5)

	// 供应商本人不能下单
	if _, err := svc.Create(CreateOrderParams{
		CustomerID: supplierA.ID,
		Items:      []CreateOrderItemParams{{ProductID: productA.ID, Quantity: 1}},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for supplier customer, got %v", err)
	}

	// 跨供应商混单被拒
	if _, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items: []CreateOrderItemParams{
			{ProductID: productA.ID, Quantity: 1},
			{ProductID: productB.ID, Quantity: 1},
		},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for mixed suppliers, got %v", err)
	}

	// 库存不足
	if _, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items:      []CreateOrderItemParams{{ProductID: productA.ID, Quantity: 6}},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for stock shortage, got %v", err)
	}

	// 混单失败的事务回滚后库存保持原值
	var stored models.Product
	if err := db.First(&stored, productA.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 5 {
		t.Fatalf("stock must roll back on failure, got %d", stored.StockQuantity)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	svc, walletService, db := setupOrderServiceTest(t)
	supplier := createOrderTestUser(t, db, constants.UserRoleSupplier)
	marketer := createOrderTestUser(t, db, constants.UserRoleMarketer)
	product := createOrderTestProduct(t, db, supplier.ID, 80, 92, 10)

	order, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items:      []CreateOrderItemParams{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 跳级流转被拒
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusDelivered); !errors.Is(err, ErrOrderStatusTransition) {
		t.Fatalf("expected transition error, got %v", err)
	}

	for _, status := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
	} {
		if _, err := svc.UpdateStatus(order.ID, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	// 交付后同步入账：成交额 184，佣金 160×15% = 24，推广利润 0，供货利润 160
	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !stored.ProfitsDistributed {
		t.Fatal("delivery must trigger distribution")
	}
	if !stored.Commission.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("unexpected commission: %s", stored.Commission.String())
	}
	supplierAccount, err := walletService.GetAccount(supplier.ID)
	if err != nil {
		t.Fatalf("get supplier account failed: %v", err)
	}
	if !supplierAccount.Balance.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("supplier not credited: %s", supplierAccount.Balance.String())
	}

	// 交付后取消：分润回退、库存回补
	canceled, err := svc.UpdateStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("unexpected canceled state: %+v", canceled)
	}
	supplierAccount, err = walletService.GetAccount(supplier.ID)
	if err != nil {
		t.Fatalf("get supplier account failed: %v", err)
	}
	if !supplierAccount.Balance.IsZero() {
		t.Fatalf("supplier profit not reversed: %s", supplierAccount.Balance.String())
	}
	var storedProduct models.Product
	if err := db.First(&storedProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if storedProduct.StockQuantity != 10 {
		t.Fatalf("stock not restored, got %d", storedProduct.StockQuantity)
	}

	// 取消是终态
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusProcessing); !errors.Is(err, ErrOrderStatusTransition) {
		t.Fatalf("expected transition error from canceled, got %v", err)
	}
}

func TestOrderDeleteReversesDistributedProfits(t *testing.T) {
	svc, walletService, db := setupOrderServiceTest(t)
	supplier := createOrderTestUser(t, db, constants.UserRoleSupplier)
	marketer := createOrderTestUser(t, db, constants.UserRoleMarketer)
	product := createOrderTestProduct(t, db, supplier.ID, 80, 92, 10)

	order, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items:      []CreateOrderItemParams{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	for _, status := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
	} {
		if _, err := svc.UpdateStatus(order.ID, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}
	supplierAccount, err := walletService.GetAccount(supplier.ID)
	if err != nil {
		t.Fatalf("get supplier account failed: %v", err)
	}
	if !supplierAccount.Balance.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("supplier not credited before delete: %s", supplierAccount.Balance.String())
	}

	// 删除已入账订单：分润原数回退、库存回补、订单移除在同一事务内
	if err := svc.Delete(order.ID); err != nil {
		t.Fatalf("delete distributed order failed: %v", err)
	}

	supplierAccount, err = walletService.GetAccount(supplier.ID)
	if err != nil {
		t.Fatalf("get supplier account failed: %v", err)
	}
	if !supplierAccount.Balance.IsZero() {
		t.Fatalf("supplier profit not reversed on delete: %s", supplierAccount.Balance.String())
	}
	platformAccount, err := walletService.GetAccount(orderTestPlatformUserID)
	if err != nil {
		t.Fatalf("get platform account failed: %v", err)
	}
	if !platformAccount.Balance.IsZero() {
		t.Fatalf("commission not reversed on delete: %s", platformAccount.Balance.String())
	}

	var storedProduct models.Product
	if err := db.First(&storedProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if storedProduct.StockQuantity != 10 {
		t.Fatalf("stock not restored on delete, got %d", storedProduct.StockQuantity)
	}
	if _, err := svc.Get(order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order gone after delete, got %v", err)
	}
}

func TestOrderBulkDeleteCollectsPerOrderResults(t *testing.T) {
	svc, walletService, db := setupOrderServiceTest(t)
	supplier := createOrderTestUser(t, db, constants.UserRoleSupplier)
	marketer := createOrderTestUser(t, db, constants.UserRoleMarketer)
	product := createOrderTestProduct(t, db, supplier.ID, 80, 92, 10)

	pendingOrder, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items:      []CreateOrderItemParams{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create pending order failed: %v", err)
	}

	distributedOrder, err := svc.Create(CreateOrderParams{
		CustomerID: marketer.ID,
		Items:      []CreateOrderItemParams{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create second order failed: %v", err)
	}
	for _, status := range []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
	} {
		if _, err := svc.UpdateStatus(distributedOrder.ID, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	// 不存在的订单单条失败，不影响其余订单删除
	result := svc.BulkDelete([]uint{pendingOrder.ID, distributedOrder.ID, 99999})
	if result.Total != 3 || result.OK != 2 || result.Failed != 1 {
		t.Fatalf("unexpected bulk result: %+v", result)
	}
	if result.Items[0].Status != constants.BulkItemStatusOK {
		t.Fatalf("pending order must delete: %+v", result.Items[0])
	}
	if result.Items[1].Status != constants.BulkItemStatusOK {
		t.Fatalf("distributed order must delete with reversal: %+v", result.Items[1])
	}
	if result.Items[2].Status != constants.BulkItemStatusFailed || result.Items[2].Reason == "" {
		t.Fatalf("missing order must fail with reason: %+v", result.Items[2])
	}

	supplierAccount, err := walletService.GetAccount(supplier.ID)
	if err != nil {
		t.Fatalf("get supplier account failed: %v", err)
	}
	if !supplierAccount.Balance.IsZero() {
		t.Fatalf("distributed profits must be reversed in bulk delete: %s", supplierAccount.Balance.String())
	}

	// 初始 10，两单各扣 1，删除各回补 1
	var storedProduct models.Product
	if err := db.First(&storedProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if storedProduct.StockQuantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", storedProduct.StockQuantity)
	}
}
