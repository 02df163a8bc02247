package service

import (
	"fmt"
	"strings"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务：上下架、定价推导与库存维护
type ProductService struct {
	productRepo    repository.ProductRepository
	userRepo       repository.UserRepository
	pricingService *PricingService
	settingService *SettingService
}

// NewProductService 创建商品服务
func NewProductService(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	pricingService *PricingService,
	settingService *SettingService,
) *ProductService {
	return &ProductService{
		productRepo:    productRepo,
		userRepo:       userRepo,
		pricingService: pricingService,
		settingService: settingService,
	}
}

// CreateProductParams 创建商品参数
type CreateProductParams struct {
	SupplierID    uint               `json:"supplier_id"`
	SKU           string             `json:"sku"`
	Name          string             `json:"name"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice decimal.Decimal    `json:"supplier_price"`
	ResellerPrice decimal.Decimal    `json:"reseller_price"` // 仅手工改价时生效
	PriceOverride bool               `json:"price_override"`
	StockQuantity int                `json:"stock_quantity"`
}

// Create 创建商品。分销价默认按佣金梯度由供货价推导，
// 手工改价商品落袋价格并打改价标记（批量重算时跳过）。
func (s *ProductService) Create(params CreateProductParams) (*models.Product, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.SKU = strings.TrimSpace(params.SKU)
	if params.SupplierID == 0 || params.Name == "" {
		return nil, fmt.Errorf("%w: 供应商与商品名称不能为空", ErrValidation)
	}
	if params.SupplierPrice.IsNegative() {
		return nil, fmt.Errorf("%w: 供货价不能为负", ErrPriceInvalid)
	}
	if params.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: 库存不能为负", ErrValidation)
	}

	supplier, err := s.userRepo.GetByID(params.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil || supplier.Role != constants.UserRoleSupplier {
		return nil, fmt.Errorf("%w: 供应商不存在或角色不符", ErrValidation)
	}

	if params.SKU != "" {
		existing, err := s.productRepo.GetBySKU(params.SKU)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: 商品编码 %s 已存在", ErrValidation, params.SKU)
		}
	}

	resellerPrice, err := s.resolveResellerPrice(params.SupplierPrice, params.ResellerPrice, params.PriceOverride)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		SupplierID:      params.SupplierID,
		SKU:             params.SKU,
		Name:            params.Name,
		Tags:            params.Tags,
		SupplierPrice:   models.NewMoneyFromDecimal(params.SupplierPrice),
		ResellerPrice:   models.NewMoneyFromDecimal(resellerPrice),
		PriceOverridden: params.PriceOverride,
		StockQuantity:   params.StockQuantity,
		IsActive:        true,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	logger.Infow("商品创建成功",
		"product_id", product.ID,
		"supplier_id", product.SupplierID,
		"supplier_price", product.SupplierPrice.String(),
		"reseller_price", product.ResellerPrice.String(),
		"price_overridden", product.PriceOverridden)
	return product, nil
}

// UpdateProductParams 更新商品参数（nil 字段不变更）
type UpdateProductParams struct {
	Name          *string            `json:"name"`
	Tags          models.StringArray `json:"tags"`
	SupplierPrice *decimal.Decimal   `json:"supplier_price"`
	ResellerPrice *decimal.Decimal   `json:"reseller_price"`
	PriceOverride *bool              `json:"price_override"`
	IsActive      *bool              `json:"is_active"`
}

// Update 更新商品。供货价变动且未改价时重推分销价；
// 清除改价标记时同样回到推导价。
func (s *ProductService) Update(productID uint, params UpdateProductParams) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: 商品名称不能为空", ErrValidation)
		}
		product.Name = name
	}
	if params.Tags != nil {
		product.Tags = params.Tags
	}
	if params.IsActive != nil {
		product.IsActive = *params.IsActive
	}

	supplierPrice := product.SupplierPrice.Decimal
	if params.SupplierPrice != nil {
		if params.SupplierPrice.IsNegative() {
			return nil, fmt.Errorf("%w: 供货价不能为负", ErrPriceInvalid)
		}
		supplierPrice = *params.SupplierPrice
		product.SupplierPrice = models.NewMoneyFromDecimal(supplierPrice)
	}

	override := product.PriceOverridden
	if params.PriceOverride != nil {
		override = *params.PriceOverride
	}
	manualPrice := decimal.Zero
	if params.ResellerPrice != nil {
		manualPrice = *params.ResellerPrice
	} else if override {
		manualPrice = product.ResellerPrice.Decimal
	}

	resellerPrice, err := s.resolveResellerPrice(supplierPrice, manualPrice, override)
	if err != nil {
		return nil, err
	}
	product.ResellerPrice = models.NewMoneyFromDecimal(resellerPrice)
	product.PriceOverridden = override

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) resolveResellerPrice(supplierPrice, manualPrice decimal.Decimal, override bool) (decimal.Decimal, error) {
	if override {
		if !manualPrice.GreaterThan(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: 手工改价必须提供大于 0 的分销价", ErrPriceInvalid)
		}
		return manualPrice, nil
	}
	setting, err := s.settingService.GetCommissionSetting()
	if err != nil {
		return decimal.Zero, err
	}
	return s.pricingService.ResellerPriceFor(setting, supplierPrice)
}

// Get 按ID获取商品
func (s *ProductService) Get(productID uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// List 分页查询商品
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

// Restock 调整商品库存（delta 为负时不得减到负库存）
func (s *ProductService) Restock(productID uint, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: 库存调整量不能为 0", ErrValidation)
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if delta < 0 && product.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("%w: 库存不足以扣减 %d", ErrValidation, -delta)
	}
	if err := s.productRepo.IncrementStock(productID, delta); err != nil {
		return nil, err
	}
	return s.Get(productID)
}
