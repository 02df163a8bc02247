package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// 用户角色常量
const (
	UserRoleSupplier   = "supplier"
	UserRoleMarketer   = "marketer"
	UserRoleWholesaler = "wholesaler"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 钱包流水类型常量
const (
	WalletTxnTypeCommission         = "commission"
	WalletTxnTypeMarketerProfit     = "marketer_profit"
	WalletTxnTypeSupplierProfit     = "supplier_profit"
	WalletTxnTypeCommissionReversal = "commission_reversal"
	WalletTxnTypeProfitReversal     = "profit_reversal"
	WalletTxnTypeWithdrawal         = "withdrawal"
	WalletTxnTypeAdminAdjust        = "admin_adjust"
)

// 钱包流水方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 提现申请状态常量
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCompleted = "completed"
)

// 提现手续费类型常量
const (
	WithdrawalFeeTypeFlat    = "flat"
	WithdrawalFeeTypePercent = "percent"
)

// 批量操作单项结果常量
const (
	BulkItemStatusOK      = "ok"
	BulkItemStatusSkipped = "skipped"
	BulkItemStatusFailed  = "failed"
)

// 队列常量
const (
	QueueDefault         = "default"
	TaskProfitDistribute = "settlement:distribute"
	TaskPriceBulkRecalc  = "pricing:bulk_recalc"
	TaskWithdrawalNotify = "withdrawal:notify"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ribh"
)

// 设置键常量
const (
	SettingKeySiteConfig       = "site_config"
	SettingKeyCommissionTiers  = "commission_tiers"
	SettingKeyWithdrawalConfig = "withdrawal_config"
	SettingFieldSiteCurrency   = "currency"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}
