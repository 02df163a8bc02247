package service

import (
	"fmt"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"

	"github.com/shopspring/decimal"
)

// WithdrawalSetting 提现配置（MaxAmount 为零表示不限单笔上限）
type WithdrawalSetting struct {
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	FeeType   string          `json:"fee_type"`
	FeeValue  decimal.Decimal `json:"fee_value"`
}

// DefaultWithdrawalSetting 默认提现配置
func DefaultWithdrawalSetting() WithdrawalSetting {
	return WithdrawalSetting{
		MinAmount: decimal.NewFromInt(100),
		MaxAmount: decimal.Zero,
		FeeType:   constants.WithdrawalFeeTypePercent,
		FeeValue:  decimal.NewFromInt(2),
	}
}

// NormalizeWithdrawalSetting 归一化提现配置
func NormalizeWithdrawalSetting(setting WithdrawalSetting) WithdrawalSetting {
	if setting.MinAmount.IsNegative() {
		setting.MinAmount = decimal.Zero
	}
	if setting.MaxAmount.IsNegative() {
		setting.MaxAmount = decimal.Zero
	}
	if !setting.MaxAmount.IsZero() && setting.MaxAmount.LessThan(setting.MinAmount) {
		setting.MaxAmount = setting.MinAmount
	}
	switch setting.FeeType {
	case constants.WithdrawalFeeTypeFlat, constants.WithdrawalFeeTypePercent:
	default:
		setting.FeeType = constants.WithdrawalFeeTypePercent
	}
	if setting.FeeValue.IsNegative() {
		setting.FeeValue = decimal.Zero
	}
	if setting.FeeType == constants.WithdrawalFeeTypePercent && setting.FeeValue.GreaterThan(marginPercentMax) {
		setting.FeeValue = marginPercentMax
	}
	return setting
}

// ValidateWithdrawalSetting 校验提现配置
func ValidateWithdrawalSetting(setting WithdrawalSetting) error {
	if setting.MinAmount.IsNegative() {
		return fmt.Errorf("%w: 最低提现金额不能为负", ErrWithdrawalConfigInvalid)
	}
	if !setting.MaxAmount.IsZero() && setting.MaxAmount.LessThan(setting.MinAmount) {
		return fmt.Errorf("%w: 单笔上限不能低于最低提现金额", ErrWithdrawalConfigInvalid)
	}
	switch setting.FeeType {
	case constants.WithdrawalFeeTypeFlat, constants.WithdrawalFeeTypePercent:
	default:
		return fmt.Errorf("%w: 不支持的手续费类型 %s", ErrWithdrawalConfigInvalid, setting.FeeType)
	}
	if setting.FeeValue.IsNegative() {
		return fmt.Errorf("%w: 手续费不能为负", ErrWithdrawalConfigInvalid)
	}
	if setting.FeeType == constants.WithdrawalFeeTypePercent && setting.FeeValue.GreaterThan(marginPercentMax) {
		return fmt.Errorf("%w: 百分比手续费必须在 0-100 之间", ErrWithdrawalConfigInvalid)
	}
	return nil
}

// FeeFor 按配置计算提现手续费
func (s WithdrawalSetting) FeeFor(amount decimal.Decimal) decimal.Decimal {
	switch s.FeeType {
	case constants.WithdrawalFeeTypeFlat:
		return s.FeeValue
	default:
		return amount.Mul(s.FeeValue).Div(decimal.NewFromInt(100))
	}
}

// WithdrawalSettingToMap 将提现配置转换为 settings 存储结构
func WithdrawalSettingToMap(setting WithdrawalSetting) map[string]interface{} {
	normalized := NormalizeWithdrawalSetting(setting)
	return map[string]interface{}{
		"min_amount": normalized.MinAmount.String(),
		"max_amount": normalized.MaxAmount.String(),
		"fee_type":   normalized.FeeType,
		"fee_value":  normalized.FeeValue.String(),
	}
}

func withdrawalSettingFromJSON(raw models.JSON, fallback WithdrawalSetting) WithdrawalSetting {
	result := fallback

	if parsed, err := parseSettingDecimal(raw["min_amount"]); err == nil {
		result.MinAmount = parsed
	}
	if parsed, err := parseSettingDecimal(raw["max_amount"]); err == nil {
		result.MaxAmount = parsed
	}
	if text, ok := raw["fee_type"].(string); ok {
		result.FeeType = normalizeSettingText(text)
	}
	if parsed, err := parseSettingDecimal(raw["fee_value"]); err == nil {
		result.FeeValue = parsed
	}

	return NormalizeWithdrawalSetting(result)
}

func normalizeWithdrawalSettingMap(value map[string]interface{}) models.JSON {
	setting := withdrawalSettingFromJSON(models.JSON(value), DefaultWithdrawalSetting())
	return models.JSON(WithdrawalSettingToMap(setting))
}

// GetWithdrawalSetting 获取提现设置（优先 settings，空时回退默认）
func (s *SettingService) GetWithdrawalSetting() (WithdrawalSetting, error) {
	fallback := DefaultWithdrawalSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyWithdrawalConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return withdrawalSettingFromJSON(value, fallback), nil
}

// UpdateWithdrawalSetting 更新提现设置
func (s *SettingService) UpdateWithdrawalSetting(setting WithdrawalSetting) (WithdrawalSetting, error) {
	normalized := NormalizeWithdrawalSetting(setting)
	if err := ValidateWithdrawalSetting(normalized); err != nil {
		return DefaultWithdrawalSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyWithdrawalConfig, WithdrawalSettingToMap(normalized)); err != nil {
		return DefaultWithdrawalSetting(), err
	}
	return normalized, nil
}
