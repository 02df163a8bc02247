package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeCommissionSettingSortsAndSeals(t *testing.T) {
	setting := NormalizeCommissionSetting(CommissionSetting{
		Tiers: []TierBand{
			{MinPrice: decimal.NewFromInt(500), MaxPrice: decimal.NewFromInt(300), MarginPercent: decimal.NewFromInt(8)},
			{MinPrice: decimal.NewFromInt(-10), MaxPrice: decimal.NewFromInt(100), MarginPercent: decimal.NewFromInt(120)},
			{MinPrice: decimal.NewFromInt(100), MaxPrice: decimal.NewFromInt(500), MarginPercent: decimal.NewFromInt(-3)},
		},
		DefaultPercent: decimal.NewFromInt(200),
	})

	if !setting.DefaultPercent.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("default percent not clamped: %s", setting.DefaultPercent.String())
	}
	if len(setting.Tiers) != 3 {
		t.Fatalf("unexpected tier count: %d", len(setting.Tiers))
	}
	if !setting.Tiers[0].MinPrice.IsZero() {
		t.Fatalf("first band must start at zero, got %s", setting.Tiers[0].MinPrice.String())
	}
	for i := 1; i < len(setting.Tiers); i++ {
		if !setting.Tiers[i].MinPrice.Equal(setting.Tiers[i-1].MaxPrice) {
			t.Fatalf("band %d does not seal against previous: %s vs %s",
				i, setting.Tiers[i].MinPrice.String(), setting.Tiers[i-1].MaxPrice.String())
		}
	}
	last := setting.Tiers[len(setting.Tiers)-1]
	if !last.MaxPrice.IsZero() {
		t.Fatalf("last band must be open-ended, got %s", last.MaxPrice.String())
	}
	if !setting.Tiers[0].MarginPercent.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("percent above 100 not clamped: %s", setting.Tiers[0].MarginPercent.String())
	}
	if !setting.Tiers[1].MarginPercent.IsZero() {
		t.Fatalf("negative percent not clamped: %s", setting.Tiers[1].MarginPercent.String())
	}
}

func TestValidateCommissionSettingRejectsGaps(t *testing.T) {
	err := ValidateCommissionSetting(CommissionSetting{
		Tiers: []TierBand{
			{MinPrice: decimal.Zero, MaxPrice: decimal.NewFromInt(100), MarginPercent: decimal.NewFromInt(10)},
			{MinPrice: decimal.NewFromInt(200), MaxPrice: decimal.Zero, MarginPercent: decimal.NewFromInt(5)},
		},
		DefaultPercent: decimal.NewFromInt(5),
	})
	if !errors.Is(err, ErrTierConfigInvalid) {
		t.Fatalf("expected tier config error, got %v", err)
	}

	err = ValidateCommissionSetting(CommissionSetting{
		Tiers:          []TierBand{},
		DefaultPercent: decimal.NewFromInt(5),
	})
	if !errors.Is(err, ErrTierConfigInvalid) {
		t.Fatalf("expected tier config error for empty tiers, got %v", err)
	}

	if err := ValidateCommissionSetting(DefaultCommissionSetting()); err != nil {
		t.Fatalf("default setting must validate: %v", err)
	}
}

func TestBandForPriceBoundaries(t *testing.T) {
	setting := DefaultCommissionSetting()

	cases := []struct {
		price   string
		percent int64
	}{
		{"0", 15},
		{"99.99", 15},
		{"100", 15}, // 边界价归属低档
		{"100.01", 10},
		{"500", 10},
		{"999.99", 8},
		{"1000.01", 5},
		{"99999", 5},
	}
	for _, tc := range cases {
		price, err := decimal.NewFromString(tc.price)
		if err != nil {
			t.Fatalf("bad case price %s: %v", tc.price, err)
		}
		band, ok := setting.BandForPrice(price)
		if !ok {
			t.Fatalf("no band for price %s", tc.price)
		}
		if !band.MarginPercent.Equal(decimal.NewFromInt(tc.percent)) {
			t.Fatalf("price %s: expected %d%%, got %s", tc.price, tc.percent, band.MarginPercent.String())
		}
	}
}

func TestCommissionSettingMapRoundTrip(t *testing.T) {
	original := DefaultCommissionSetting()
	restored := commissionSettingFromJSON(normalizeCommissionSettingMap(CommissionSettingToMap(original)), CommissionSetting{})

	if len(restored.Tiers) != len(original.Tiers) {
		t.Fatalf("tier count mismatch: %d vs %d", len(restored.Tiers), len(original.Tiers))
	}
	for i := range original.Tiers {
		if !restored.Tiers[i].MarginPercent.Equal(original.Tiers[i].MarginPercent) {
			t.Fatalf("band %d percent mismatch: %s vs %s",
				i, restored.Tiers[i].MarginPercent.String(), original.Tiers[i].MarginPercent.String())
		}
	}
	if !restored.DefaultPercent.Equal(original.DefaultPercent) {
		t.Fatalf("default percent mismatch: %s vs %s",
			restored.DefaultPercent.String(), original.DefaultPercent.String())
	}
}
