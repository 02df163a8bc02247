package service

import (
	"errors"
	"fmt"

	"github.com/aminamgad/ribh-v1-sub006/internal/models"
)

// 结算域统一哨兵错误，handler 层通过 errors.Is 匹配后映射响应码。
var (
	ErrValidation          = errors.New("validation failed")
	ErrAmountInvalid       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrWalletNumberMissing = fmt.Errorf("%w: wallet number required", ErrValidation)

	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrEmailExists        = errors.New("email already registered")

	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrPriceInvalid    = fmt.Errorf("%w: invalid price", ErrValidation)

	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotDelivered     = errors.New("order is not delivered")
	ErrOrderNotDistributed   = errors.New("order profits are not distributed")
	ErrOrderStatusTransition = errors.New("order status transition not allowed")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrOrderUpdateFailed     = errors.New("order update failed")

	ErrWalletAccountNotFound         = errors.New("wallet account not found")
	ErrWalletAccountCreateFailed     = errors.New("wallet account create failed")
	ErrWalletAccountUpdateFailed     = errors.New("wallet account update failed")
	ErrWalletTransactionCreateFailed = errors.New("wallet transaction create failed")
	ErrWalletInsufficientBalance     = errors.New("insufficient available balance")

	ErrWithdrawalNotFound     = errors.New("withdrawal request not found")
	ErrWithdrawalNotPending   = errors.New("withdrawal request is not pending")
	ErrWithdrawalNotApproved  = errors.New("withdrawal request is not approved")
	ErrWithdrawBelowMinimum   = fmt.Errorf("%w: amount below minimum", ErrValidation)
	ErrWithdrawAboveMaximum   = fmt.Errorf("%w: amount above maximum", ErrValidation)
	ErrWithdrawalUpdateFailed = errors.New("withdrawal request update failed")

	ErrSummaryRangeInvalid = fmt.Errorf("%w: invalid summary range", ErrValidation)

	ErrTierConfigInvalid       = errors.New("commission tier configuration invalid")
	ErrWithdrawalConfigInvalid = errors.New("withdrawal configuration invalid")

	// ErrConcurrencyConflict 事务因并发冲突中止，可安全重试有限次数。
	ErrConcurrencyConflict = errors.New("concurrent settlement conflict")
	// ErrLedgerInvariant 账务不变量被破坏，操作整体中止，需要人工介入。
	ErrLedgerInvariant = errors.New("ledger invariant violation")
)

// InsufficientBalanceError 余额不足错误，携带缺口金额供调用方展示。
type InsufficientBalanceError struct {
	Required  models.Money
	Available models.Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient available balance: required %s, available %s",
		e.Required.String(), e.Available.String())
}

// Is 支持 errors.Is(err, ErrWalletInsufficientBalance) 匹配。
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrWalletInsufficientBalance
}

// Shortfall 计算缺口金额
func (e *InsufficientBalanceError) Shortfall() models.Money {
	return models.NewMoneyFromDecimal(e.Required.Decimal.Sub(e.Available.Decimal))
}
