package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aminamgad/ribh-v1-sub006/internal/authz"
	"github.com/aminamgad/ribh-v1-sub006/internal/cache"
	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	adminhandlers "github.com/aminamgad/ribh-v1-sub006/internal/http/handlers/admin"
	publichandlers "github.com/aminamgad/ribh-v1-sub006/internal/http/handlers/public"
	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ribh"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
		}

		// 商户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 商户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)
			user.GET("/wallet", publicHandler.GetMyWallet)
			user.GET("/wallet/transactions", publicHandler.GetMyWalletTransactions)
			user.POST("/withdrawals", publicHandler.CreateWithdrawal)
			user.GET("/withdrawals", publicHandler.ListMyWithdrawals)
			user.GET("/withdrawals/:id", publicHandler.GetMyWithdrawal)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)

			// 供应商侧
			supplier := user.Group("")
			supplier.Use(RequireUserRole(constants.UserRoleSupplier))
			{
				supplier.GET("/products", publicHandler.ListMyProducts)
				supplier.GET("/products/:id", publicHandler.GetMyProduct)
				supplier.POST("/products", publicHandler.CreateMyProduct)
				supplier.PUT("/products/:id", publicHandler.UpdateMyProduct)
				supplier.POST("/products/:id/restock", publicHandler.RestockMyProduct)
				supplier.POST("/pricing/preview", publicHandler.PreviewMyPrice)
				supplier.PATCH("/orders/:id/status", publicHandler.UpdateMyOrderStatus)
			}

			// 采购侧（推广者/批发商）
			buyer := user.Group("")
			buyer.Use(RequireUserRole(constants.UserRoleMarketer, constants.UserRoleWholesaler))
			{
				buyer.GET("/catalog/products", publicHandler.GetCatalogProducts)
				buyer.POST("/orders", publicHandler.CreateOrder)
				buyer.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			}
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 结算总览
				authorized.GET("/summary/overview", adminHandler.GetSettlementOverview)

				// 商品与定价
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.POST("/products/:id/restock", adminHandler.RestockProduct)
				authorized.POST("/pricing/preview", adminHandler.PreviewPrice)
				authorized.POST("/pricing/recalculate", adminHandler.RecalculatePrices)

				// 订单与结算
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.PATCH("/orders/:id", adminHandler.AdminUpdateOrderStatus)
				authorized.DELETE("/orders/:id", adminHandler.AdminDeleteOrder)
				authorized.POST("/orders/bulk-delete", adminHandler.AdminBulkDeleteOrders)
				authorized.POST("/orders/:id/distribute", adminHandler.AdminDistributeOrder)
				authorized.POST("/orders/:id/reverse", adminHandler.AdminReverseOrder)

				// 钱包
				authorized.GET("/wallets", adminHandler.GetAdminWallets)
				authorized.GET("/wallets/:userId", adminHandler.GetAdminUserWallet)
				authorized.GET("/wallets/:userId/transactions", adminHandler.GetAdminUserWalletTransactions)
				authorized.POST("/wallets/:userId/adjust", adminHandler.AdjustAdminUserWallet)

				// 提现
				authorized.GET("/withdrawals", adminHandler.GetAdminWithdrawals)
				authorized.GET("/withdrawals/:id", adminHandler.GetAdminWithdrawal)
				authorized.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
				authorized.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
				authorized.POST("/withdrawals/:id/complete", adminHandler.CompleteWithdrawal)

				// 设置管理
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.PUT("/settings", adminHandler.UpdateSettings)
				authorized.GET("/settings/commission-tiers", adminHandler.GetCommissionTierSettings)
				authorized.PUT("/settings/commission-tiers", adminHandler.UpdateCommissionTierSettings)
				authorized.GET("/settings/withdrawal", adminHandler.GetWithdrawalSettings)
				authorized.PUT("/settings/withdrawal", adminHandler.UpdateWithdrawalSettings)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 商户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PUT("/users/:id", adminHandler.UpdateAdminUser)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
