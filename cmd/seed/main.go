package main

import (
	"github.com/aminamgad/ribh-v1-sub006/internal/config"
	"github.com/aminamgad/ribh-v1-sub006/internal/constants"
	"github.com/aminamgad/ribh-v1-sub006/internal/logger"
	"github.com/aminamgad/ribh-v1-sub006/internal/models"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 示例商户账号
	users := []models.User{
		{
			Email:       "supplier1@example.com",
			DisplayName: "华东电子",
			Role:        constants.UserRoleSupplier,
			CompanyName: "华东电子科技有限公司",
			Phone:       "13800000001",
			Status:      constants.UserStatusActive,
		},
		{
			Email:       "supplier2@example.com",
			DisplayName: "南方百货",
			Role:        constants.UserRoleSupplier,
			CompanyName: "南方百货贸易有限公司",
			Phone:       "13800000002",
			Status:      constants.UserStatusActive,
		},
		{
			Email:       "marketer1@example.com",
			DisplayName: "小李推广",
			Role:        constants.UserRoleMarketer,
			Phone:       "13800000003",
			Status:      constants.UserStatusActive,
		},
		{
			Email:       "wholesaler1@example.com",
			DisplayName: "中原批发",
			Role:        constants.UserRoleWholesaler,
			CompanyName: "中原批发商行",
			Phone:       "13800000004",
			Status:      constants.UserStatusActive,
		},
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash seed password: %v", err)
	}

	userIDs := map[string]uint{}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", user.Email)
			userIDs[user.Email] = existing.ID
			continue
		}
		user.PasswordHash = string(passwordHash)
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", user.Email, err)
			continue
		}
		stdLog.Printf("Created user: %s (%s)", user.Email, user.Role)
		userIDs[user.Email] = user.ID
	}

	// 为每个商户建立钱包账户
	for email, userID := range userIDs {
		var existing models.WalletAccount
		if err := models.DB.Where("user_id = ?", userID).First(&existing).Error; err == nil {
			continue
		}
		account := models.WalletAccount{UserID: userID, Currency: "CNY"}
		if err := models.DB.Create(&account).Error; err != nil {
			stdLog.Printf("Failed to create wallet for %s: %v", email, err)
		} else {
			stdLog.Printf("Created wallet for %s", email)
		}
	}

	// 示例商品（零售价按默认梯度由供货价推导）
	supplier1 := userIDs["supplier1@example.com"]
	supplier2 := userIDs["supplier2@example.com"]
	products := []models.Product{
		{
			SupplierID:    supplier1,
			SKU:           "ELEC-EARBUDS-001",
			Name:          "无线蓝牙耳机",
			Tags:          models.StringArray([]string{"数码", "音频"}),
			SupplierPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(80)),
			ResellerPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(92)),
			StockQuantity: 500,
			IsActive:      true,
		},
		{
			SupplierID:    supplier1,
			SKU:           "ELEC-WATCH-002",
			Name:          "智能手表",
			Tags:          models.StringArray([]string{"数码", "穿戴"}),
			SupplierPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(250)),
			ResellerPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(275)),
			StockQuantity: 200,
			IsActive:      true,
		},
		{
			SupplierID:    supplier2,
			SKU:           "HOME-KETTLE-001",
			Name:          "家用电热水壶",
			Tags:          models.StringArray([]string{"家居"}),
			SupplierPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
			ResellerPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(69)),
			StockQuantity: 800,
			IsActive:      true,
		},
		{
			SupplierID:    supplier2,
			SKU:           "HOME-PROJECTOR-002",
			Name:          "家用投影仪",
			Tags:          models.StringArray([]string{"家居", "影音"}),
			SupplierPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1200)),
			ResellerPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1260)),
			StockQuantity: 50,
			IsActive:      true,
		},
	}

	for _, product := range products {
		if product.SupplierID == 0 {
			continue
		}
		var existing models.Product
		if err := models.DB.Where("sku = ?", product.SKU).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", product.SKU)
			continue
		}
		if err := models.DB.Create(&product).Error; err != nil {
			stdLog.Printf("Failed to create product %s: %v", product.SKU, err)
		} else {
			stdLog.Printf("Created product: %s", product.SKU)
		}
	}

	// 初始化基础配置
	settings := []models.Setting{
		{
			Key: constants.SettingKeySiteConfig,
			ValueJSON: models.JSON(map[string]interface{}{
				"site_name": "Ribh",
				"locale":    constants.LocaleZhCN,
				"currency":  "CNY",
			}),
		},
		{
			Key:       constants.SettingKeyCommissionTiers,
			ValueJSON: models.JSON(service.CommissionSettingToMap(service.DefaultCommissionSetting())),
		},
		{
			Key:       constants.SettingKeyWithdrawalConfig,
			ValueJSON: models.JSON(service.WithdrawalSettingToMap(service.DefaultWithdrawalSetting())),
		},
	}

	for _, setting := range settings {
		var existing models.Setting
		if err := models.DB.Where("key = ?", setting.Key).First(&existing).Error; err == nil {
			stdLog.Printf("Setting already exists: %s", setting.Key)
			continue
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create setting %s: %v", setting.Key, err)
		} else {
			stdLog.Printf("Created setting: %s", setting.Key)
		}
	}

	stdLog.Println("Seed data created successfully!")
}
