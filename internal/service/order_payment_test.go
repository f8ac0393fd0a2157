package service

import (
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmOnlinePaymentMarksWholeCheckout(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shopA := f.createShop(t, 10, "Shop A")
	shopB := f.createShop(t, 20, "Shop B")
	tea := f.createProduct(t, shopA.ID, "Tea", "100", 5)
	cup := f.createProduct(t, shopB.ID, "Cup", "50", 5)
	result := placeOrder(t, f, 1, CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: tea.ID, Quantity: 1}, {ProductID: cup.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodOnline,
	})

	rows, err := f.orders.ConfirmOnlinePayment(result.Orders[0].ID, "PAID", result.TotalAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	var orders []models.Order
	require.NoError(t, f.db.Where("checkout_no = ?", result.CheckoutNo).Find(&orders).Error)
	for _, order := range orders {
		assert.Equal(t, constants.PaymentStatusPaid, order.PaymentStatus)
	}

	rows, err = f.orders.ConfirmOnlinePayment(result.Orders[0].ID, "paid", result.TotalAmount)
	require.NoError(t, err)
	assert.Zero(t, rows, "repeated notifications change nothing")
}

func TestConfirmOnlinePaymentRejectsCashOrders(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]

	_, err := f.orders.ConfirmOnlinePayment(order.ID, "paid", order.TotalAmount.Decimal)
	assert.ErrorIs(t, err, ErrInvalidPayment)

	rows, err := f.orders.ConfirmOnlinePayment(order.ID, "failed", decimal.Zero)
	require.NoError(t, err)
	assert.Zero(t, rows)

	_, err = f.orders.ConfirmOnlinePayment(9999, "paid", dec("1"))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmOnlinePaymentRejectsAmountMismatch(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shopA := f.createShop(t, 10, "Shop A")
	shopB := f.createShop(t, 20, "Shop B")
	tea := f.createProduct(t, shopA.ID, "Tea", "100", 5)
	cup := f.createProduct(t, shopB.ID, "Cup", "50", 5)
	result := placeOrder(t, f, 1, CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: tea.ID, Quantity: 1}, {ProductID: cup.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodOnline,
	})
	require.Len(t, result.Orders, 2)

	// 只付了首单的金额
	_, err := f.orders.ConfirmOnlinePayment(result.Orders[0].ID, "paid", result.Orders[0].TotalAmount.Decimal)
	assert.ErrorIs(t, err, ErrPaymentAmountMismatch)
	_, err = f.orders.ConfirmOnlinePayment(result.Orders[0].ID, "paid", result.TotalAmount.Add(dec("0.01")))
	assert.ErrorIs(t, err, ErrPaymentAmountMismatch)

	var orders []models.Order
	require.NoError(t, f.db.Where("checkout_no = ?", result.CheckoutNo).Find(&orders).Error)
	for _, order := range orders {
		assert.Equal(t, constants.PaymentStatusPending, order.PaymentStatus)
	}
}
