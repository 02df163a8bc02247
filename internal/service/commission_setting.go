package service

import (
	"fmt"
	"sort"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"

	"github.com/shopspring/decimal"
)

var (
	marginPercentMin       = decimal.Zero
	marginPercentMax       = decimal.NewFromInt(100)
	defaultCommissionRate  = decimal.NewFromInt(5)
	commissionTiersMaxSize = 50
)

// TierBand 佣金梯度区间（按供货价轴定义，MaxPrice 为零表示无上限）
type TierBand struct {
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// Contains 判断价格是否落在区间内（闭区间，末档无上限）
func (b TierBand) Contains(price decimal.Decimal) bool {
	if price.LessThan(b.MinPrice) {
		return false
	}
	if b.MaxPrice.IsZero() {
		return true
	}
	return price.LessThanOrEqual(b.MaxPrice)
}

// CommissionSetting 佣金梯度配置
type CommissionSetting struct {
	Tiers          []TierBand      `json:"tiers"`
	DefaultPercent decimal.Decimal `json:"default_percent"`
}

// DefaultCommissionSetting 默认佣金梯度配置
func DefaultCommissionSetting() CommissionSetting {
	return NormalizeCommissionSetting(CommissionSetting{
		Tiers: []TierBand{
			{MinPrice: decimal.Zero, MaxPrice: decimal.NewFromInt(100), MarginPercent: decimal.NewFromInt(15)},
			{MinPrice: decimal.NewFromInt(100), MaxPrice: decimal.NewFromInt(500), MarginPercent: decimal.NewFromInt(10)},
			{MinPrice: decimal.NewFromInt(500), MaxPrice: decimal.NewFromInt(1000), MarginPercent: decimal.NewFromInt(8)},
			{MinPrice: decimal.NewFromInt(1000), MaxPrice: decimal.Zero, MarginPercent: decimal.NewFromInt(5)},
		},
		DefaultPercent: defaultCommissionRate,
	})
}

// NormalizeCommissionSetting 归一化佣金梯度配置：
// 按下界排序、限制比例范围、强制区间首尾相接覆盖 [0, +inf)。
func NormalizeCommissionSetting(setting CommissionSetting) CommissionSetting {
	setting.DefaultPercent = clampMarginPercent(setting.DefaultPercent)

	bands := make([]TierBand, 0, len(setting.Tiers))
	for _, band := range setting.Tiers {
		if band.MinPrice.IsNegative() {
			band.MinPrice = decimal.Zero
		}
		if band.MaxPrice.IsNegative() {
			band.MaxPrice = decimal.Zero
		}
		band.MarginPercent = clampMarginPercent(band.MarginPercent)
		bands = append(bands, band)
		if len(bands) >= commissionTiersMaxSize {
			break
		}
	}
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].MinPrice.LessThan(bands[j].MinPrice)
	})

	// 区间首尾相接：首档下界归零，后档下界对齐前档上界，末档上界放开
	for i := range bands {
		if i == 0 {
			bands[i].MinPrice = decimal.Zero
		} else {
			bands[i].MinPrice = bands[i-1].MaxPrice
		}
		if i == len(bands)-1 {
			bands[i].MaxPrice = decimal.Zero
		} else if !bands[i].MaxPrice.GreaterThan(bands[i].MinPrice) {
			bands[i].MaxPrice = bands[i].MinPrice
		}
	}

	// 剔除归一化后宽度为零的中间档
	result := make([]TierBand, 0, len(bands))
	for i, band := range bands {
		if i != len(bands)-1 && band.MaxPrice.Equal(band.MinPrice) {
			continue
		}
		result = append(result, band)
	}
	if len(result) > 0 {
		result[0].MinPrice = decimal.Zero
		for i := 1; i < len(result); i++ {
			result[i].MinPrice = result[i-1].MaxPrice
		}
	}

	setting.Tiers = result
	return setting
}

// ValidateCommissionSetting 校验佣金梯度配置
func ValidateCommissionSetting(setting CommissionSetting) error {
	if len(setting.Tiers) == 0 {
		return fmt.Errorf("%w: 至少需要一个梯度区间", ErrTierConfigInvalid)
	}
	if setting.DefaultPercent.LessThan(marginPercentMin) || setting.DefaultPercent.GreaterThan(marginPercentMax) {
		return fmt.Errorf("%w: 兜底比例必须在 0-100 之间", ErrTierConfigInvalid)
	}
	for i, band := range setting.Tiers {
		if band.MarginPercent.LessThan(marginPercentMin) || band.MarginPercent.GreaterThan(marginPercentMax) {
			return fmt.Errorf("%w: 第 %d 档比例必须在 0-100 之间", ErrTierConfigInvalid, i+1)
		}
		if i == 0 && !band.MinPrice.IsZero() {
			return fmt.Errorf("%w: 首档下界必须为 0", ErrTierConfigInvalid)
		}
		if i > 0 && !band.MinPrice.Equal(setting.Tiers[i-1].MaxPrice) {
			return fmt.Errorf("%w: 第 %d 档下界必须衔接前一档上界", ErrTierConfigInvalid, i+1)
		}
		if i == len(setting.Tiers)-1 {
			if !band.MaxPrice.IsZero() {
				return fmt.Errorf("%w: 末档上界必须放开", ErrTierConfigInvalid)
			}
		} else if !band.MaxPrice.GreaterThan(band.MinPrice) {
			return fmt.Errorf("%w: 第 %d 档区间宽度必须大于 0", ErrTierConfigInvalid, i+1)
		}
	}
	return nil
}

// BandForPrice 查找价格所属梯度档；价格越界时收敛到最近的边界档。
func (s CommissionSetting) BandForPrice(price decimal.Decimal) (TierBand, bool) {
	if len(s.Tiers) == 0 {
		return TierBand{}, false
	}
	for _, band := range s.Tiers {
		if band.Contains(price) {
			return band, true
		}
	}
	if price.LessThan(s.Tiers[0].MinPrice) {
		return s.Tiers[0], true
	}
	return s.Tiers[len(s.Tiers)-1], true
}

// CommissionSettingToMap 将佣金梯度配置转换为 settings 存储结构
func CommissionSettingToMap(setting CommissionSetting) map[string]interface{} {
	normalized := NormalizeCommissionSetting(setting)
	tiers := make([]interface{}, 0, len(normalized.Tiers))
	for _, band := range normalized.Tiers {
		tiers = append(tiers, map[string]interface{}{
			"min_price":      band.MinPrice.String(),
			"max_price":      band.MaxPrice.String(),
			"margin_percent": band.MarginPercent.String(),
		})
	}
	return map[string]interface{}{
		"tiers":           tiers,
		"default_percent": normalized.DefaultPercent.String(),
	}
}

func commissionSettingFromJSON(raw models.JSON, fallback CommissionSetting) CommissionSetting {
	result := fallback

	if percentRaw, ok := raw["default_percent"]; ok {
		if parsed, err := parseSettingDecimal(percentRaw); err == nil {
			result.DefaultPercent = parsed
		}
	}
	if tiersRaw, ok := raw["tiers"]; ok {
		if items, ok := tiersRaw.([]interface{}); ok {
			tiers := make([]TierBand, 0, len(items))
			for _, item := range items {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				band := TierBand{}
				if parsed, err := parseSettingDecimal(entry["min_price"]); err == nil {
					band.MinPrice = parsed
				}
				if parsed, err := parseSettingDecimal(entry["max_price"]); err == nil {
					band.MaxPrice = parsed
				}
				if parsed, err := parseSettingDecimal(entry["margin_percent"]); err == nil {
					band.MarginPercent = parsed
				}
				tiers = append(tiers, band)
			}
			if len(tiers) > 0 {
				result.Tiers = tiers
			}
		}
	}

	return NormalizeCommissionSetting(result)
}

func normalizeCommissionSettingMap(value map[string]interface{}) models.JSON {
	setting := commissionSettingFromJSON(models.JSON(value), DefaultCommissionSetting())
	return models.JSON(CommissionSettingToMap(setting))
}

// GetCommissionSetting 获取佣金梯度设置（优先 settings，空时回退默认）
func (s *SettingService) GetCommissionSetting() (CommissionSetting, error) {
	fallback := DefaultCommissionSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyCommissionTiers)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return commissionSettingFromJSON(value, fallback), nil
}

// UpdateCommissionSetting 更新佣金梯度设置
func (s *SettingService) UpdateCommissionSetting(setting CommissionSetting) (CommissionSetting, error) {
	normalized := NormalizeCommissionSetting(setting)
	if err := ValidateCommissionSetting(normalized); err != nil {
		return DefaultCommissionSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyCommissionTiers, CommissionSettingToMap(normalized)); err != nil {
		return DefaultCommissionSetting(), err
	}
	return normalized, nil
}

func clampMarginPercent(percent decimal.Decimal) decimal.Decimal {
	if percent.LessThan(marginPercentMin) {
		return marginPercentMin
	}
	if percent.GreaterThan(marginPercentMax) {
		return marginPercentMax
	}
	return percent
}

func parseSettingDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(v)
	default:
		parsed, err := parseSettingFloat(value)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(parsed), nil
	}
}
