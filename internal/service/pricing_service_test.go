package service

import (
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

func setupPricingServiceTest(t *testing.T) (*PricingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:pricing_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	settingService := NewSettingService(repository.NewSettingRepository(db))
	return NewPricingService(settingService, repository.NewProductRepository(db)), db
}

func createPricingTestProduct(t *testing.T, db *gorm.DB, sku string, supplierPrice, resellerPrice decimal.Decimal, overridden bool) *models.Product {
	t.Helper()
	product := &models.Product{
		SupplierID:      1,
		SKU:             sku,
		Name:            "测试商品 " + sku,
		SupplierPrice:   models.NewMoneyFromDecimal(supplierPrice),
		ResellerPrice:   models.NewMoneyFromDecimal(resellerPrice),
		PriceOverridden: overridden,
		StockQuantity:   10,
		IsActive:        true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestResellerPriceForUsesTierPercent(t *testing.T) {
	svc := NewPricingService(nil, nil)
	setting := DefaultCommissionSetting()

	cases := []struct {
		supplier string
		reseller string
	}{
		{"80", "92"},     // 15% 档
		{"100", "115"},   // 边界价取低档
		{"250", "275"},   // 10% 档
		{"600", "648"},   // 8% 档
		{"2000", "2100"}, // 5% 档
		{"0", "0"},
	}
	for _, tc := range cases {
		supplier, _ := decimal.NewFromString(tc.supplier)
		expected, _ := decimal.NewFromString(tc.reseller)
		got, err := svc.ResellerPriceFor(setting, supplier)
		if err != nil {
			t.Fatalf("supplier %s: %v", tc.supplier, err)
		}
		if !got.Equal(expected) {
			t.Fatalf("supplier %s: expected reseller %s, got %s", tc.supplier, tc.reseller, got.String())
		}
	}

	if _, err := svc.ResellerPriceFor(setting, decimal.NewFromInt(-1)); err == nil {
		t.Fatal("negative supplier price must be rejected")
	}
}

func TestSupplierPriceForRoundTrip(t *testing.T) {
	svc := NewPricingService(nil, nil)
	setting := DefaultCommissionSetting()
	tolerance := decimal.NewFromFloat(0.01)

	for _, raw := range []string{"1", "80", "99.99", "100", "150", "250", "499.5", "600", "999", "1500", "8888.88"} {
		supplier, _ := decimal.NewFromString(raw)
		reseller, err := svc.ResellerPriceFor(setting, supplier)
		if err != nil {
			t.Fatalf("forward %s failed: %v", raw, err)
		}
		back, err := svc.SupplierPriceFor(setting, reseller)
		if err != nil {
			t.Fatalf("inverse %s failed: %v", reseller.String(), err)
		}
		if back.Sub(supplier).Abs().GreaterThan(tolerance) {
			t.Fatalf("round trip drift for %s: forward %s, back %s", raw, reseller.String(), back.String())
		}
	}

	zero, err := svc.SupplierPriceFor(setting, decimal.Zero)
	if err != nil || !zero.IsZero() {
		t.Fatalf("zero reseller price must invert to zero, got %s (%v)", zero.String(), err)
	}
	if _, err := svc.SupplierPriceFor(setting, decimal.NewFromInt(-5)); err == nil {
		t.Fatal("negative reseller price must be rejected")
	}
}

func TestCommissionForItemsPerLineTier(t *testing.T) {
	svc := NewPricingService(nil, nil)
	setting := DefaultCommissionSetting()

	items := []models.OrderItem{
		{ProductID: 1, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(80)), Quantity: 2,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(184))},
		{ProductID: 2, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(250)), Quantity: 1,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(275))},
	}
	result := svc.CommissionForItems(setting, "SO-TEST", items, decimal.NewFromInt(459))
	// 80*2*15% + 250*1*10% = 24 + 25
	if !result.Commission.Equal(decimal.NewFromInt(49)) {
		t.Fatalf("unexpected commission: %s", result.Commission.String())
	}
	if result.Degraded {
		t.Fatal("commission must not be degraded for valid items")
	}
}

func TestCommissionForItemsDegradesToFlat(t *testing.T) {
	svc := NewPricingService(nil, nil)
	setting := DefaultCommissionSetting()

	// 订单项为空：按订单总额乘兜底比例
	result := svc.CommissionForItems(setting, "SO-EMPTY", nil, decimal.NewFromInt(400))
	if !result.Degraded {
		t.Fatal("empty items must degrade")
	}
	if !result.Commission.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected flat commission: %s", result.Commission.String())
	}

	// 单项数据异常：该项按成交额走兜底比例，其余项正常计佣
	items := []models.OrderItem{
		{ProductID: 1, UnitPrice: models.ZeroMoney(), Quantity: 1,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
		{ProductID: 2, UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(80)), Quantity: 1,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(92))},
	}
	result = svc.CommissionForItems(setting, "SO-MIXED", items, decimal.NewFromInt(192))
	if !result.Degraded {
		t.Fatal("invalid line must flag degraded")
	}
	// 100*5% + 80*15% = 5 + 12
	if !result.Commission.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("unexpected mixed commission: %s", result.Commission.String())
	}
}

func TestRecalculateProductsSkipsOverridden(t *testing.T) {
	svc, db := setupPricingServiceTest(t)

	auto := createPricingTestProduct(t, db, "RECALC-AUTO", decimal.NewFromInt(80), decimal.NewFromInt(50), false)
	manual := createPricingTestProduct(t, db, "RECALC-MANUAL", decimal.NewFromInt(80), decimal.NewFromInt(999), true)

	result, err := svc.RecalculateProducts(repository.ProductListFilter{})
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if result.Total != 2 || result.OK != 1 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", result)
	}

	var refreshedAuto models.Product
	if err := db.First(&refreshedAuto, auto.ID).Error; err != nil {
		t.Fatalf("load auto product failed: %v", err)
	}
	if !refreshedAuto.ResellerPrice.Equal(decimal.NewFromInt(92)) {
		t.Fatalf("auto product not recalculated: %s", refreshedAuto.ResellerPrice.String())
	}

	var refreshedManual models.Product
	if err := db.First(&refreshedManual, manual.ID).Error; err != nil {
		t.Fatalf("load manual product failed: %v", err)
	}
	if !refreshedManual.ResellerPrice.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("overridden price must be untouched: %s", refreshedManual.ResellerPrice.String())
	}

	for _, item := range result.Items {
		if item.ProductID == manual.ID && item.Status != constants.BulkItemStatusSkipped {
			t.Fatalf("manual product must be skipped, got %s", item.Status)
		}
	}
}
