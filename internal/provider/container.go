package provider

import (
	"github.com/aminamgad/ribh-v1-sub006/internal/authz"
	"github.com/aminamgad/ribh-v1-sub006/internal/cache"
	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/queue"
	"github.com/aminamgad/ribh-v1-sub006/internal/repository"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Events      *cache.SettlementEvents

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	ProductRepo    repository.ProductRepository
	OrderRepo      repository.OrderRepository
	WalletRepo     repository.WalletRepository
	WithdrawalRepo repository.WithdrawalRepository
	SettingRepo    repository.SettingRepository
	StatsRepo      repository.SettlementStatsRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	UserAuthService   *service.UserAuthService
	SettingService    *service.SettingService
	PricingService    *service.PricingService
	ProductService    *service.ProductService
	WalletService     *service.WalletService
	SettlementService *service.SettlementService
	OrderService      *service.OrderService
	WithdrawalService *service.WithdrawalService
	SummaryService    *service.SummaryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Events:      cache.NewSettlementEvents(),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.StatsRepo = repository.NewSettlementStatsRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.PricingService = service.NewPricingService(c.SettingService, c.ProductRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.UserRepo, c.PricingService, c.SettingService)
	c.WalletService = service.NewWalletService(c.WalletRepo)
	c.SettlementService = service.NewSettlementService(c.OrderRepo, c.WalletService, c.PricingService, c.SettingService, c.Config.Settlement)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.UserRepo, c.SettlementService, c.Config.Settlement.DistributeOnQueue)
	c.WithdrawalService = service.NewWithdrawalService(c.WithdrawalRepo, c.WalletService, c.SettingService)
	c.SummaryService = service.NewSummaryService(c.StatsRepo)

	c.SettlementService.SetEventPublisher(c.Events)
	c.WithdrawalService.SetEventPublisher(c.Events)
	if c.QueueClient != nil && c.QueueClient.Enabled() {
		c.OrderService.SetDispatcher(c.QueueClient)
		c.WithdrawalService.SetNotifier(c.QueueClient)
	}
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Events != nil {
		c.Events.Close()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
}
