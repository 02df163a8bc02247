package i18n

import (
	"fmt"
	"strings"

	"github.com/aminamgad/ribh-v1-sub006/internal/constants"

	"github.com/gin-gonic/gin"
)

// messages 各语言错误文案（key 未命中时回退 zh-CN，再回退 key 本身）
var messages = map[string]map[string]string{
	constants.LocaleZhCN: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "请先登录",
		"error.forbidden":              "没有操作权限",
		"error.not_found":              "资源不存在",
		"error.internal":               "服务器内部错误",
		"error.validation_failed":      "参数校验失败",
		"error.user_invalid":           "用户标识无效",
		"error.user_type_invalid":      "用户标识类型错误",
		"error.admin_invalid":          "管理员标识无效",
		"error.admin_type_invalid":     "管理员标识类型错误",
		"error.amount_invalid":         "金额无效",
		"error.amount_below_minimum":   "金额低于最低限额",
		"error.amount_above_maximum":   "金额超过最高限额",
		"error.insufficient_balance":   "可用余额不足",
		"error.concurrency_conflict":   "操作冲突，请重试",
		"error.ledger_invariant":       "账务状态异常，操作已中止",
		"error.order_not_found":        "订单不存在",
		"error.order_not_delivered":    "订单尚未交付完成",
		"error.order_not_distributed":  "订单分润尚未入账",
		"error.order_status_invalid":   "订单状态不允许该操作",
		"error.wallet_not_found":       "钱包不存在",
		"error.wallet_number_required": "收款账号不能为空",
		"error.withdrawal_not_found":   "提现申请不存在",
		"error.withdrawal_not_pending": "提现申请已处理",
		"error.product_not_found":      "商品不存在",
		"error.price_invalid":          "价格无效",
		"error.tier_config_invalid":    "佣金梯度配置无效",

		"error.jwt_secret_missing":     "服务端鉴权密钥未配置",
		"error.auth_header_missing":    "缺少认证信息",
		"error.auth_header_invalid":    "认证信息格式错误",
		"error.token_invalid":          "登录凭证无效或已过期",
		"error.token_revoked":          "登录凭证已失效，请重新登录",
		"error.user_disabled":          "账号已被禁用",
		"error.login_invalid":          "邮箱或密码错误",
		"error.admin_login_invalid":    "用户名或密码错误",
		"error.login_failed":           "登录失败，请稍后再试",
		"error.login_too_many":         "登录尝试过于频繁，请 %d 秒后再试",
		"error.rate_limited":           "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable": "限流服务暂不可用",
		"error.register_failed":        "注册失败，请稍后再试",
		"error.email_exists":           "邮箱已被注册",

		"error.user_id_invalid":       "用户标识无效",
		"error.user_id_type_invalid":  "用户标识类型错误",
		"error.admin_id_invalid":      "管理员标识无效",
		"error.admin_id_type_invalid": "管理员标识类型错误",
		"error.user_not_found":        "用户不存在",
		"error.user_fetch_failed":     "获取用户信息失败",
		"error.user_status_invalid":   "账号状态无效",
		"error.supplier_not_found":    "供应商不存在",
		"error.save_failed":           "保存失败",

		"error.password_weak":            "密码强度不足",
		"error.password_old_invalid":     "原密码错误",
		"error.password_min_length":      "密码长度不能少于 %d 个字符",
		"error.password_require_upper":   "密码必须包含大写字母",
		"error.password_require_lower":   "密码必须包含小写字母",
		"error.password_require_number":  "密码必须包含数字",
		"error.password_require_special": "密码必须包含特殊字符",

		"error.product_fetch_failed":        "获取商品失败",
		"error.product_price_invalid":       "商品价格无效",
		"error.price_preview_input_invalid": "请提供供货价或零售价之一",
		"error.price_preview_failed":        "价格试算失败",
		"error.recalc_enqueue_failed":       "重算任务入队失败",
		"error.recalc_failed":               "批量重算失败",

		"error.order_fetch_failed":  "获取订单失败",
		"error.order_create_failed": "创建订单失败",
		"error.order_item_invalid":  "订单明细无效",

		"error.settlement_conflict": "结算冲突，请稍后重试",
		"error.settlement_failed":   "结算操作失败",

		"error.wallet_fetch_failed":         "获取钱包失败",
		"error.wallet_insufficient_balance": "可用余额不足",

		"error.withdrawal_fetch_failed":  "获取提现记录失败",
		"error.withdrawal_create_failed": "提交提现申请失败",
		"error.withdrawal_not_approved":  "提现申请尚未审核通过",
		"error.withdraw_below_minimum":   "提现金额低于最低限额",
		"error.withdraw_above_maximum":   "提现金额超过单笔上限",

		"error.setting_fetch_failed":  "获取配置失败",
		"error.summary_range_invalid": "统计区间无效",
		"error.summary_fetch_failed":  "获取结算总览失败",
		"error.authz_fetch_failed":    "获取权限信息失败",
	},
	constants.LocaleEnUS: {
		"error.bad_request":            "invalid request",
		"error.unauthorized":           "authentication required",
		"error.forbidden":              "permission denied",
		"error.not_found":              "resource not found",
		"error.internal":               "internal server error",
		"error.validation_failed":      "validation failed",
		"error.user_invalid":           "invalid user identity",
		"error.user_type_invalid":      "invalid user identity type",
		"error.admin_invalid":          "invalid admin identity",
		"error.admin_type_invalid":     "invalid admin identity type",
		"error.amount_invalid":         "invalid amount",
		"error.amount_below_minimum":   "amount below the minimum limit",
		"error.amount_above_maximum":   "amount above the maximum limit",
		"error.insufficient_balance":   "insufficient available balance",
		"error.concurrency_conflict":   "operation conflict, please retry",
		"error.ledger_invariant":       "ledger state violation, operation aborted",
		"error.order_not_found":        "order not found",
		"error.order_not_delivered":    "order is not delivered yet",
		"error.order_not_distributed":  "order profits are not distributed",
		"error.order_status_invalid":   "order status does not allow this operation",
		"error.wallet_not_found":       "wallet not found",
		"error.wallet_number_required": "wallet number is required",
		"error.withdrawal_not_found":   "withdrawal request not found",
		"error.withdrawal_not_pending": "withdrawal request already processed",
		"error.product_not_found":      "product not found",
		"error.price_invalid":          "invalid price",
		"error.tier_config_invalid":    "invalid commission tier configuration",

		"error.jwt_secret_missing":     "server auth secret is not configured",
		"error.auth_header_missing":    "authorization header is missing",
		"error.auth_header_invalid":    "authorization header is malformed",
		"error.token_invalid":          "token is invalid or expired",
		"error.token_revoked":          "token has been revoked, please sign in again",
		"error.user_disabled":          "account is disabled",
		"error.login_invalid":          "invalid email or password",
		"error.admin_login_invalid":    "invalid username or password",
		"error.login_failed":           "sign-in failed, please try again later",
		"error.login_too_many":         "too many sign-in attempts, retry in %d seconds",
		"error.rate_limited":           "too many requests, retry in %d seconds",
		"error.rate_limit_unavailable": "rate limiter is unavailable",
		"error.register_failed":        "registration failed, please try again later",
		"error.email_exists":           "email is already registered",

		"error.user_id_invalid":       "invalid user identity",
		"error.user_id_type_invalid":  "invalid user identity type",
		"error.admin_id_invalid":      "invalid admin identity",
		"error.admin_id_type_invalid": "invalid admin identity type",
		"error.user_not_found":        "user not found",
		"error.user_fetch_failed":     "failed to load user",
		"error.user_status_invalid":   "invalid account status",
		"error.supplier_not_found":    "supplier not found",
		"error.save_failed":           "save failed",

		"error.password_weak":            "password is too weak",
		"error.password_old_invalid":     "current password is incorrect",
		"error.password_min_length":      "password must be at least %d characters",
		"error.password_require_upper":   "password must contain an uppercase letter",
		"error.password_require_lower":   "password must contain a lowercase letter",
		"error.password_require_number":  "password must contain a digit",
		"error.password_require_special": "password must contain a special character",

		"error.product_fetch_failed":        "failed to load product",
		"error.product_price_invalid":       "invalid product price",
		"error.price_preview_input_invalid": "provide exactly one of supplier price or reseller price",
		"error.price_preview_failed":        "price preview failed",
		"error.recalc_enqueue_failed":       "failed to enqueue recalculation task",
		"error.recalc_failed":               "bulk recalculation failed",

		"error.order_fetch_failed":  "failed to load order",
		"error.order_create_failed": "failed to create order",
		"error.order_item_invalid":  "invalid order item",

		"error.settlement_conflict": "settlement conflict, please retry later",
		"error.settlement_failed":   "settlement operation failed",

		"error.wallet_fetch_failed":         "failed to load wallet",
		"error.wallet_insufficient_balance": "insufficient available balance",

		"error.withdrawal_fetch_failed":  "failed to load withdrawal",
		"error.withdrawal_create_failed": "failed to submit withdrawal request",
		"error.withdrawal_not_approved":  "withdrawal request is not approved",
		"error.withdraw_below_minimum":   "withdrawal amount below the minimum limit",
		"error.withdraw_above_maximum":   "withdrawal amount above the per-request limit",

		"error.setting_fetch_failed":  "failed to load settings",
		"error.summary_range_invalid": "invalid summary range",
		"error.summary_fetch_failed":  "failed to load settlement overview",
		"error.authz_fetch_failed":    "failed to load permission info",
	},
}

// T 按语言取文案，未命中逐级回退
func T(locale, key string) string {
	if m, ok := messages[normalizeLocale(locale)]; ok {
		if msg, ok := m[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[constants.LocaleZhCN][key]; ok {
		return msg
	}
	return key
}

// Sprintf 按语言取文案并格式化参数
func Sprintf(locale, key string, args ...interface{}) string {
	text := T(locale, key)
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// ResolveLocale 解析请求语言（X-Locale / query / Accept-Language）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return constants.LocaleZhCN
	}
	if locale := normalizeLocale(c.GetHeader("X-Locale")); locale != "" {
		return locale
	}
	if locale := normalizeLocale(c.Query("locale")); locale != "" {
		return locale
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		lang := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale := normalizeLocale(lang); locale != "" {
			return locale
		}
	}
	return constants.LocaleZhCN
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	lower := strings.ToLower(locale)
	for _, supported := range constants.SupportedLocales {
		if strings.EqualFold(locale, supported) {
			return supported
		}
	}
	switch {
	case strings.HasPrefix(lower, "zh"):
		return constants.LocaleZhCN
	case strings.HasPrefix(lower, "en"):
		return constants.LocaleEnUS
	}
	return ""
}
