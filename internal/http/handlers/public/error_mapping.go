package public

import (
	"errors"

	"github.com/aminamgad/ribh-v1-sub006/internal/http/response"
	"github.com/aminamgad/ribh-v1-sub006/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	if errors.Is(err, service.ErrValidation) {
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrUserNotFound, code: response.CodeBadRequest, key: "error.user_not_found"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrPriceInvalid, code: response.CodeBadRequest, key: "error.product_price_invalid"},
	{target: service.ErrOrderCreateFailed, code: response.CodeInternal, key: "error.order_create_failed"},
}

var orderStatusErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderStatusTransition, code: response.CodeBadRequest, key: "error.order_status_invalid"},
	{target: service.ErrConcurrencyConflict, code: response.CodeConflict, key: "error.settlement_conflict"},
	{target: service.ErrLedgerInvariant, code: response.CodeConflict, key: "error.ledger_invariant"},
}

var withdrawalCreateErrorRules = []mappedHandlerError{
	{target: service.ErrWalletNumberMissing, code: response.CodeBadRequest, key: "error.wallet_number_required"},
	{target: service.ErrAmountInvalid, code: response.CodeBadRequest, key: "error.amount_invalid"},
	{target: service.ErrWithdrawBelowMinimum, code: response.CodeBadRequest, key: "error.withdraw_below_minimum"},
	{target: service.ErrWithdrawAboveMaximum, code: response.CodeBadRequest, key: "error.withdraw_above_maximum"},
	{target: service.ErrWalletInsufficientBalance, code: response.CodeBadRequest, key: "error.wallet_insufficient_balance"},
}

var productWriteErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrUserNotFound, code: response.CodeBadRequest, key: "error.supplier_not_found"},
	{target: service.ErrPriceInvalid, code: response.CodeBadRequest, key: "error.product_price_invalid"},
}

func respondProductWriteError(c *gin.Context, err error) {
	respondWithMappedError(c, err, productWriteErrorRules, response.CodeInternal, "error.save_failed")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "error.order_create_failed")
}

func respondOrderStatusError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderStatusErrorRules, response.CodeInternal, "error.save_failed")
}

func respondWithdrawalCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, withdrawalCreateErrorRules, response.CodeInternal, "error.withdrawal_create_failed")
}
