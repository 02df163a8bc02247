package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementDispatcher 分润任务投递接口（异步队列可用时走队列）
type SettlementDispatcher interface {
	EnqueueProfitDistribute(orderID uint) error
}

// 订单状态流转表
var orderStatusTransitions = map[string][]string{
	constants.OrderStatusPending:    {constants.OrderStatusProcessing, constants.OrderStatusCanceled},
	constants.OrderStatusProcessing: {constants.OrderStatusShipped, constants.OrderStatusCanceled},
	constants.OrderStatusShipped:    {constants.OrderStatusDelivered, constants.OrderStatusCanceled},
	constants.OrderStatusDelivered:  {constants.OrderStatusCanceled},
	constants.OrderStatusCanceled:   {},
}

func canTransitionOrderStatus(from, to string) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderService 订单服务：下单、状态流转与结算联动
type OrderService struct {
	orderRepo         repository.OrderRepository
	productRepo       repository.ProductRepository
	userRepo          repository.UserRepository
	settlementService *SettlementService
	dispatcher        SettlementDispatcher
	distributeOnQueue bool
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	settlementService *SettlementService,
	distributeOnQueue bool,
) *OrderService {
	return &OrderService{
		orderRepo:         orderRepo,
		productRepo:       productRepo,
		userRepo:          userRepo,
		settlementService: settlementService,
		distributeOnQueue: distributeOnQueue,
	}
}

// SetDispatcher 注入异步分润投递器（可选）
func (s *OrderService) SetDispatcher(dispatcher SettlementDispatcher) {
	s.dispatcher = dispatcher
}

// CreateOrderItemParams 下单单项参数
type CreateOrderItemParams struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"sale_price"` // 推广者成交单价，零值取商品分销价
}

// CreateOrderParams 下单参数
type CreateOrderParams struct {
	CustomerID uint                    `json:"customer_id"`
	Items      []CreateOrderItemParams `json:"items"`
}

func generateOrderNo() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "SO" + time.Now().Format("20060102150405") + suffix
}

// Create 创建订单：锁定商品扣减库存并按下单方角色落成交价快照。
// 推广者按分销价（可上浮）成交，批发商按供货价成交；
// 供货成本合计一律按供货价快照计算。
func (s *OrderService) Create(params CreateOrderParams) (*models.Order, error) {
	if params.CustomerID == 0 || len(params.Items) == 0 {
		return nil, fmt.Errorf("%w: 下单方与订单项不能为空", ErrValidation)
	}

	customer, err := s.userRepo.GetByID(params.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrUserNotFound
	}
	if customer.Role != constants.UserRoleMarketer && customer.Role != constants.UserRoleWholesaler {
		return nil, fmt.Errorf("%w: 仅推广者或批发商可下单", ErrValidation)
	}

	var order *models.Order
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)

		var (
			supplierID  uint
			items       []models.OrderItem
			costTotal   = decimal.Zero
			amountTotal = decimal.Zero
		)
		for _, itemParams := range params.Items {
			if itemParams.Quantity <= 0 {
				return fmt.Errorf("%w: 商品 %d 数量必须大于 0", ErrValidation, itemParams.ProductID)
			}
			product, err := productRepo.GetByIDForUpdate(itemParams.ProductID)
			if err != nil {
				return err
			}
			if product == nil || !product.IsActive {
				return ErrProductNotFound
			}
			if supplierID == 0 {
				supplierID = product.SupplierID
			} else if supplierID != product.SupplierID {
				return fmt.Errorf("%w: 同一订单只能包含同一供应商的商品", ErrValidation)
			}
			if product.StockQuantity < itemParams.Quantity {
				return fmt.Errorf("%w: 商品 %s 库存不足", ErrValidation, product.Name)
			}
			if err := productRepo.IncrementStock(product.ID, -itemParams.Quantity); err != nil {
				return err
			}

			quantity := decimal.NewFromInt(int64(itemParams.Quantity))
			salePrice := product.SupplierPrice.Decimal
			if customer.Role == constants.UserRoleMarketer {
				salePrice = product.ResellerPrice.Decimal
				if itemParams.SalePrice.GreaterThan(decimal.Zero) {
					salePrice = itemParams.SalePrice
				}
			}

			lineCost := product.SupplierPrice.Mul(quantity)
			lineAmount := salePrice.Mul(quantity)
			costTotal = costTotal.Add(lineCost)
			amountTotal = amountTotal.Add(lineAmount)

			items = append(items, models.OrderItem{
				ProductID:  product.ID,
				Name:       product.Name,
				Tags:       product.Tags,
				UnitPrice:  product.SupplierPrice,
				Quantity:   itemParams.Quantity,
				TotalPrice: models.NewMoneyFromDecimal(lineAmount),
			})
		}

		order = &models.Order{
			OrderNo:           generateOrderNo(),
			SupplierID:        supplierID,
			CustomerID:        customer.ID,
			CustomerRole:      customer.Role,
			Status:            constants.OrderStatusPending,
			Currency:          constants.SiteCurrencyDefault,
			SupplierCostTotal: models.NewMoneyFromDecimal(costTotal),
			TotalAmount:       models.NewMoneyFromDecimal(amountTotal),
		}
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("订单创建成功",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"customer_role", order.CustomerRole,
		"total_amount", order.TotalAmount.String())
	return order, nil
}

// Get 按ID获取订单
func (s *OrderService) Get(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByOrderNo 按订单号获取订单
func (s *OrderService) GetByOrderNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 分页查询订单
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// UpdateStatus 订单状态流转。
// 交付时记录交付时间并触发分润（队列可用走异步，否则同步入账）；
// 取消时在同一事务内回退已入账分润并回补库存。
func (s *OrderService) UpdateStatus(orderID uint, newStatus string) (*models.Order, error) {
	if newStatus == constants.OrderStatusCanceled {
		return s.cancel(orderID)
	}

	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if !canTransitionOrderStatus(locked.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrOrderStatusTransition, locked.Status, newStatus)
		}

		updates := map[string]interface{}{}
		if newStatus == constants.OrderStatusDelivered {
			now := time.Now()
			updates["delivered_at"] = now
			locked.DeliveredAt = &now
		}
		if err := repo.UpdateStatus(locked.ID, newStatus, updates); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
		}
		locked.Status = newStatus
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status == constants.OrderStatusDelivered {
		s.triggerDistribution(order.ID)
	}
	return order, nil
}

func (s *OrderService) triggerDistribution(orderID uint) {
	if s.distributeOnQueue && s.dispatcher != nil {
		err := s.dispatcher.EnqueueProfitDistribute(orderID)
		if err == nil {
			return
		}
		logger.Warnw("分润任务入队失败，转同步入账", "order_id", orderID, "error", err)
	}
	if _, err := s.settlementService.Distribute(orderID); err != nil {
		logger.Errorw("订单交付后分润入账失败", "order_id", orderID, "error", err)
	}
}

func (s *OrderService) cancel(orderID uint) (*models.Order, error) {
	var (
		order    *models.Order
		reversal *ReversalResult
	)
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if !canTransitionOrderStatus(locked.Status, constants.OrderStatusCanceled) {
			return fmt.Errorf("%w: %s -> %s", ErrOrderStatusTransition, locked.Status, constants.OrderStatusCanceled)
		}

		// 已入账分润先回退，与取消动作同事务提交
		reversal, err = s.settlementService.ReverseInTx(tx, locked)
		if err != nil {
			return err
		}

		productRepo := s.productRepo.WithTx(tx)
		for _, item := range locked.Items {
			if err := productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := repo.UpdateStatus(locked.ID, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
		}
		locked.Status = constants.OrderStatusCanceled
		locked.CanceledAt = &now
		order = locked
		return nil
	})
	if err != nil {
		if isConflictError(err) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	if reversal != nil {
		s.settlementService.PublishReversal(reversal)
	}
	logger.Infow("订单已取消", "order_id", order.ID, "order_no", order.OrderNo, "reversed", reversal != nil)
	return order, nil
}

// Delete 删除单笔订单：已入账分润先原数回退，与删除动作同事务提交
func (s *OrderService) Delete(orderID uint) error {
	var reversal *ReversalResult
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}

		reversal, err = s.settlementService.ReverseInTx(tx, locked)
		if err != nil {
			return err
		}

		// 已取消订单在取消时回补过库存，不重复回补
		if locked.Status != constants.OrderStatusCanceled {
			productRepo := s.productRepo.WithTx(tx)
			for _, item := range locked.Items {
				if err := productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return repo.Delete(locked.ID)
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return err
	}

	if reversal != nil {
		s.settlementService.PublishReversal(reversal)
	}
	return nil
}

// BulkDeleteItem 批量删除单条结果
type BulkDeleteItem struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// BulkDeleteResult 批量删除汇总结果
type BulkDeleteResult struct {
	Total  int              `json:"total"`
	OK     int              `json:"ok"`
	Failed int              `json:"failed"`
	Items  []BulkDeleteItem `json:"items"`
}

// BulkDelete 批量删除订单：每单独立事务，单条失败不影响其余订单
func (s *OrderService) BulkDelete(orderIDs []uint) *BulkDeleteResult {
	result := &BulkDeleteResult{
		Total: len(orderIDs),
		Items: make([]BulkDeleteItem, 0, len(orderIDs)),
	}
	for _, orderID := range orderIDs {
		item := BulkDeleteItem{OrderID: orderID, Status: constants.BulkItemStatusOK}
		if err := s.Delete(orderID); err != nil {
			item.Status = constants.BulkItemStatusFailed
			item.Reason = trimReason(err.Error())
			result.Failed++
			logger.Warnw("批量删除订单失败", "order_id", orderID, "error", err)
		} else {
			result.OK++
		}
		result.Items = append(result.Items, item)
	}
	return result
}
