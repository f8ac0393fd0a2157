package service

import (
	"errors"
	"fmt"
)

// 结算与订单相关错误
var (
	ErrEmptyCheckout         = errors.New("checkout has no items")
	ErrInvalidCheckoutItem   = errors.New("invalid checkout item")
	ErrProductNotFound       = errors.New("product not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOutOfStock            = errors.New("out of stock")
	ErrMalformedProduct      = errors.New("product has no selling shop")
	ErrVoucherExhausted      = errors.New("voucher usage limit reached")
	ErrInvalidPayment        = errors.New("invalid payment method")
	ErrPaymentAmountMismatch = errors.New("payment amount mismatch")
	ErrReceiverRequired      = errors.New("receiver name, phone and address are required")
	ErrCheckoutTimeout       = errors.New("checkout commit timed out")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrPointsInsufficient    = errors.New("insufficient point balance")
)

// 订单生命周期相关错误
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrShopNotFound         = errors.New("shop not found or not owned by seller")
	ErrInvalidCancelState   = errors.New("order can only be cancelled while pending")
	ErrAlreadyFinalized     = errors.New("order already finalized")
	ErrInvalidConfirmState  = errors.New("order cannot be confirmed in its current status")
	ErrOrderStatusInvalid   = errors.New("invalid order status transition")
	ErrOrderFetchFailed     = errors.New("order fetch failed")
	ErrOrderUpdateFailed    = errors.New("order update failed")
	ErrCartUpdateFailed     = errors.New("cart update failed")
	ErrPointHistoryConflict = errors.New("point history reference conflict")
)

// ProductError 携带商品信息的业务错误，可通过 errors.Is 匹配原始哨兵错误
type ProductError struct {
	Err       error
	ProductID uint
	Requested int
	Available int
}

func (e *ProductError) Error() string {
	if e == nil || e.Err == nil {
		return "product error"
	}
	if e.Requested > 0 {
		return fmt.Sprintf("%s: product %d (requested %d, available %d)", e.Err.Error(), e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("%s: product %d", e.Err.Error(), e.ProductID)
}

func (e *ProductError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newProductError(err error, productID uint) error {
	return &ProductError{Err: err, ProductID: productID}
}

func newStockError(err error, productID uint, requested, available int) error {
	return &ProductError{Err: err, ProductID: productID, Requested: requested, Available: available}
}
