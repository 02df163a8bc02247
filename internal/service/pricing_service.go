package service

import (
	"fmt"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	decimalHundred = decimal.NewFromInt(100)
	decimalTwo     = decimal.NewFromInt(2)
	// 逆推收敛阈值：半个最小计价单位
	inversePriceEpsilon  = decimal.NewFromFloat(0.005)
	inverseBisectionMax  = 64
	bulkRecalcReasonSize = 200
)

// PricingService 定价服务：佣金计算与供货价/分销价双向推导
type PricingService struct {
	settingService *SettingService
	productRepo    repository.ProductRepository
}

// NewPricingService 创建定价服务
func NewPricingService(settingService *SettingService, productRepo repository.ProductRepository) *PricingService {
	return &PricingService{settingService: settingService, productRepo: productRepo}
}

// CommissionResult 佣金计算结果
type CommissionResult struct {
	Commission decimal.Decimal `json:"commission"`
	Degraded   bool            `json:"degraded"`
}

// CommissionForItems 按订单项逐项计算平台佣金。
// 每项按其供货单价所在梯度档取比例；订单项为空或单项数据异常时
// 退化为按订单总额乘兜底比例的平价模式并记录日志。
func (s *PricingService) CommissionForItems(setting CommissionSetting, orderNo string, items []models.OrderItem, totalAmount decimal.Decimal) CommissionResult {
	if len(items) == 0 {
		logger.Warnw("佣金计算退化为平价模式", "order_no", orderNo, "reason", "订单项为空")
		return CommissionResult{
			Commission: flatCommission(setting, totalAmount),
			Degraded:   true,
		}
	}

	total := decimal.Zero
	degraded := false
	for _, item := range items {
		unitPrice := item.UnitPrice.Decimal
		if unitPrice.LessThanOrEqual(decimal.Zero) || item.Quantity <= 0 {
			// 单项异常：按该项成交额走兜底比例
			logger.Warnw("订单项数据异常，按兜底比例计佣",
				"order_no", orderNo,
				"product_id", item.ProductID,
				"unit_price", unitPrice.String(),
				"quantity", item.Quantity)
			degraded = true
			lineTotal := item.TotalPrice.Decimal
			if lineTotal.GreaterThan(decimal.Zero) {
				total = total.Add(flatCommission(setting, lineTotal))
			}
			continue
		}

		band, ok := setting.BandForPrice(unitPrice)
		percent := setting.DefaultPercent
		if ok {
			percent = band.MarginPercent
		}
		lineBase := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineBase.Mul(percent).Div(decimalHundred))
	}

	return CommissionResult{Commission: total, Degraded: degraded}
}

func flatCommission(setting CommissionSetting, base decimal.Decimal) decimal.Decimal {
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return base.Mul(setting.DefaultPercent).Div(decimalHundred)
}

// ResellerPriceFor 由供货价正推分销价：分销价 = 供货价 × (1 + 档位比例/100)
func (s *PricingService) ResellerPriceFor(setting CommissionSetting, supplierPrice decimal.Decimal) (decimal.Decimal, error) {
	if supplierPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: 供货价不能为负", ErrPriceInvalid)
	}
	return forwardResellerPrice(setting, supplierPrice), nil
}

func forwardResellerPrice(setting CommissionSetting, supplierPrice decimal.Decimal) decimal.Decimal {
	percent := setting.DefaultPercent
	if band, ok := setting.BandForPrice(supplierPrice); ok {
		percent = band.MarginPercent
	}
	factor := decimal.NewFromInt(1).Add(percent.Div(decimalHundred))
	return supplierPrice.Mul(factor)
}

// SupplierPriceFor 由分销价逆推供货价。
// 先逐档试解（candidate = 分销价 / (1 + 比例/100)，解落回本档即命中）；
// 档位边界不连续导致无档命中时，在 [0, 分销价] 上有界二分逼近。
// 逆推结果保证与正推往返误差不超过一个计价单位。
func (s *PricingService) SupplierPriceFor(setting CommissionSetting, resellerPrice decimal.Decimal) (decimal.Decimal, error) {
	if resellerPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: 分销价不能为负", ErrPriceInvalid)
	}
	if resellerPrice.IsZero() {
		return decimal.Zero, nil
	}

	for _, band := range setting.Tiers {
		factor := decimal.NewFromInt(1).Add(band.MarginPercent.Div(decimalHundred))
		candidate := resellerPrice.Div(factor)
		if band.Contains(candidate) {
			return candidate, nil
		}
	}

	// 二分逼近：正推函数对供货价单调不减
	lo := decimal.Zero
	hi := resellerPrice
	for i := 0; i < inverseBisectionMax; i++ {
		mid := lo.Add(hi).Div(decimalTwo)
		diff := forwardResellerPrice(setting, mid).Sub(resellerPrice)
		if diff.Abs().LessThan(inversePriceEpsilon) {
			return mid, nil
		}
		if diff.GreaterThan(decimal.Zero) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo.Add(hi).Div(decimalTwo), nil
}

// PricePreview 价格推导预览
type PricePreview struct {
	SupplierPrice models.Money `json:"supplier_price"`
	ResellerPrice models.Money `json:"reseller_price"`
	MarginPercent string       `json:"margin_percent"`
}

// PreviewFromSupplierPrice 按供货价预览分销价与所用档位比例
func (s *PricingService) PreviewFromSupplierPrice(supplierPrice decimal.Decimal) (*PricePreview, error) {
	setting, err := s.settingService.GetCommissionSetting()
	if err != nil {
		return nil, err
	}
	resellerPrice, err := s.ResellerPriceFor(setting, supplierPrice)
	if err != nil {
		return nil, err
	}

	percent := setting.DefaultPercent
	if band, ok := setting.BandForPrice(supplierPrice); ok {
		percent = band.MarginPercent
	}
	return &PricePreview{
		SupplierPrice: models.NewMoneyFromDecimal(supplierPrice),
		ResellerPrice: models.NewMoneyFromDecimal(resellerPrice),
		MarginPercent: percent.String(),
	}, nil
}

// PreviewFromResellerPrice 按目标分销价预览逆推供货价
func (s *PricingService) PreviewFromResellerPrice(resellerPrice decimal.Decimal) (*PricePreview, error) {
	setting, err := s.settingService.GetCommissionSetting()
	if err != nil {
		return nil, err
	}
	supplierPrice, err := s.SupplierPriceFor(setting, resellerPrice)
	if err != nil {
		return nil, err
	}

	percent := setting.DefaultPercent
	if band, ok := setting.BandForPrice(supplierPrice); ok {
		percent = band.MarginPercent
	}
	return &PricePreview{
		SupplierPrice: models.NewMoneyFromDecimal(supplierPrice),
		ResellerPrice: models.NewMoneyFromDecimal(resellerPrice),
		MarginPercent: percent.String(),
	}, nil
}

// BulkRecalcItem 批量重算单条结果
type BulkRecalcItem struct {
	ProductID uint   `json:"product_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// BulkRecalcResult 批量重算汇总结果
type BulkRecalcResult struct {
	Total   int              `json:"total"`
	OK      int              `json:"ok"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Items   []BulkRecalcItem `json:"items"`
}

// RecalculateProducts 按当前梯度配置批量重算商品分销价。
// 每个商品独立事务，手工改价商品跳过，单条失败不影响其余商品。
func (s *PricingService) RecalculateProducts(filter repository.ProductListFilter) (*BulkRecalcResult, error) {
	setting, err := s.settingService.GetCommissionSetting()
	if err != nil {
		return nil, err
	}

	ids, err := s.productRepo.ListIDs(filter)
	if err != nil {
		return nil, err
	}

	result := &BulkRecalcResult{
		Total: len(ids),
		Items: make([]BulkRecalcItem, 0, len(ids)),
	}
	for _, id := range ids {
		item := s.recalcOne(setting, id)
		switch item.Status {
		case constants.BulkItemStatusOK:
			result.OK++
		case constants.BulkItemStatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	logger.Infow("商品分销价批量重算完成",
		"total", result.Total,
		"ok", result.OK,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

func (s *PricingService) recalcOne(setting CommissionSetting, productID uint) BulkRecalcItem {
	item := BulkRecalcItem{ProductID: productID}

	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		product, err := repo.GetByIDForUpdate(productID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if product.PriceOverridden {
			item.Status = constants.BulkItemStatusSkipped
			item.Reason = "手工改价商品不参与重算"
			return nil
		}

		price, err := s.ResellerPriceFor(setting, product.SupplierPrice.Decimal)
		if err != nil {
			return err
		}
		product.ResellerPrice = models.NewMoneyFromDecimal(price)
		if err := repo.Update(product); err != nil {
			return err
		}
		item.Status = constants.BulkItemStatusOK
		return nil
	})
	if err != nil {
		item.Status = constants.BulkItemStatusFailed
		item.Reason = trimReason(err.Error())
		logger.Warnw("商品分销价重算失败", "product_id", productID, "error", err)
	}
	return item
}

func trimReason(reason string) string {
	if len(reason) > bulkRecalcReasonSize {
		return reason[:bulkRecalcReasonSize]
	}
	return reason
}
