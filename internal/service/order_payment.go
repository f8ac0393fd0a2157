package service

import (
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"

	"github.com/shopspring/decimal"
)

// ConfirmOnlinePayment 处理网关支付结果通知
// 支付会话以批次首单为键，成功时整批在线订单一起标记为已支付；重复通知返回 0。
// 网关回传的实付金额必须等于整批订单应付之和。
func (s *OrderService) ConfirmOnlinePayment(orderRef uint, status string, amount decimal.Decimal) (int64, error) {
	if !strings.EqualFold(strings.TrimSpace(status), constants.PaymentStatusPaid) {
		logger.Infow("order_payment_notify_ignored", "order_ref", orderRef, "status", status)
		return 0, nil
	}
	order, err := s.orderRepo.GetByID(orderRef)
	if err != nil {
		return 0, ErrOrderFetchFailed
	}
	if order == nil {
		return 0, ErrOrderNotFound
	}
	if order.PaymentMethod != constants.PaymentMethodOnline {
		return 0, ErrInvalidPayment
	}

	siblings, err := s.orderRepo.ListByCheckoutNo(order.CheckoutNo)
	if err != nil {
		return 0, ErrOrderFetchFailed
	}
	expected := decimal.Zero
	for _, sibling := range siblings {
		expected = expected.Add(sibling.TotalAmount.Decimal)
	}
	if !amount.Equal(expected) {
		logger.Warnw("order_payment_amount_mismatch",
			"checkout_no", order.CheckoutNo,
			"expected", expected.StringFixed(2),
			"received", amount.StringFixed(2),
		)
		return 0, ErrPaymentAmountMismatch
	}

	rows, err := s.orderRepo.MarkCheckoutPaid(order.CheckoutNo)
	if err != nil {
		logger.Errorw("order_payment_mark_paid_failed", "checkout_no", order.CheckoutNo, "error", err)
		return 0, ErrOrderUpdateFailed
	}
	logger.Infow("order_payment_confirmed", "checkout_no", order.CheckoutNo, "orders", rows)
	return rows, nil
}
