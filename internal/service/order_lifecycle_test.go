package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *checkoutFixture, userID uint, req CheckoutRequest) *CheckoutResult {
	t.Helper()
	if req.Receiver.Name == "" {
		req.Receiver = testReceiver()
	}
	result, err := f.orders.CreateOrder(context.Background(), userID, req)
	require.NoError(t, err)
	return result
}

func setOrderState(t *testing.T, f *checkoutFixture, orderID uint, status constants.OrderStatus, total string) {
	t.Helper()
	updates := map[string]interface{}{"status": status}
	if total != "" {
		updates["total_amount"] = testMoney(total)
	}
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error)
}

func TestCancelOrderRestoresStockVoucherAndCoins(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	voucher := f.createVoucher(t, models.Voucher{Code: "TEA10", Scope: constants.VoucherScopeShop, ShopID: shop.ID, Type: constants.VoucherTypeFixed, Value: testMoney("10")})
	f.seedPoints(t, 1, 300)

	result := placeOrder(t, f, 1, CheckoutRequest{
		Items:        []CheckoutItem{{ProductID: tea.ID, Quantity: 2}},
		VoucherCodes: []string{"TEA10"},
		UseCoins:     true,
	})
	order := result.Orders[0]
	require.Equal(t, 3, f.stockOf(t, tea.ID))
	require.Equal(t, int64(0), f.balanceOf(t, 1))

	cancelled, err := f.orders.CancelOrder(context.Background(), 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CanceledAt)
	assert.Equal(t, 5, f.stockOf(t, tea.ID))
	assert.Equal(t, 0, f.voucherUsedCount(t, voucher.ID))
	assert.Equal(t, int64(300), f.balanceOf(t, 1))

	_, err = f.orders.CancelOrder(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrInvalidCancelState)
	assert.Equal(t, 5, f.stockOf(t, tea.ID), "stock restored exactly once")
	assert.Equal(t, 0, f.voucherUsedCount(t, voucher.ID))
	assert.Equal(t, int64(300), f.balanceOf(t, 1))
}

func TestCancelEverySiblingRefundsAllCoins(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	items := make([]CheckoutItem, 0, 3)
	for i, name := range []string{"Shop A", "Shop B", "Shop C"} {
		shop := f.createShop(t, uint(10+i), name)
		product := f.createProduct(t, shop.ID, name+" Tea", "100", 5)
		items = append(items, CheckoutItem{ProductID: product.ID, Quantity: 1})
	}
	f.seedPoints(t, 1, 100)

	result := placeOrder(t, f, 1, CheckoutRequest{Items: items, UseCoins: true})
	require.Len(t, result.Orders, 3)
	require.Equal(t, int64(0), f.balanceOf(t, 1))

	var points int64
	for _, order := range result.Orders {
		points += order.CoinPoints
	}
	assert.Equal(t, int64(100), points, "every spent point belongs to exactly one order")

	for _, order := range result.Orders {
		_, err := f.orders.CancelOrder(context.Background(), 1, order.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(100), f.balanceOf(t, 1))
}

func TestCancelOrderRevertsSystemVoucherWithLastLiveSibling(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shopA := f.createShop(t, 10, "Shop A")
	shopB := f.createShop(t, 20, "Shop B")
	tea := f.createProduct(t, shopA.ID, "Tea", "100", 5)
	cup := f.createProduct(t, shopB.ID, "Cup", "100", 5)
	system := f.createVoucher(t, models.Voucher{Code: "ALL20", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("20")})

	result := placeOrder(t, f, 1, CheckoutRequest{
		Items:        []CheckoutItem{{ProductID: tea.ID, Quantity: 1}, {ProductID: cup.ID, Quantity: 1}},
		VoucherCodes: []string{"ALL20"},
	})
	require.Len(t, result.Orders, 2)
	require.Equal(t, 1, f.voucherUsedCount(t, system.ID))
	for _, order := range result.Orders {
		assert.True(t, order.SystemDiscount.Decimal.Equal(dec("10")))
	}

	_, err := f.orders.CancelOrder(context.Background(), 1, result.Orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.voucherUsedCount(t, system.ID), "sibling still carries the system voucher")

	_, err = f.orders.CancelOrder(context.Background(), 1, result.Orders[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.voucherUsedCount(t, system.ID))

	var userVoucher models.UserVoucher
	require.NoError(t, f.db.Where("user_id = ? AND voucher_id = ?", 1, system.ID).First(&userVoucher).Error)
	assert.False(t, userVoucher.IsUsed)
}

func TestCancelOrderRejectsOtherUsersAndStates(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]

	_, err := f.orders.CancelOrder(context.Background(), 2, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	setOrderState(t, f, order.ID, constants.OrderStatusShipping, "")
	_, err = f.orders.CancelOrder(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrInvalidCancelState)
}

func TestSellerDeliveredCreditsRewardOnce(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]
	setOrderState(t, f, order.ID, constants.OrderStatusShipping, "100000")

	updated, err := f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "delivered")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusDelivered, updated.Status)
	assert.NotNil(t, updated.DeliveredAt)
	assert.Equal(t, int64(10), f.balanceOf(t, 1))

	var histories []models.PointHistory
	require.NoError(t, f.db.Where("user_id = ?", 1).Find(&histories).Error)
	require.Len(t, histories, 1)
	assert.Equal(t, int64(10), histories[0].Amount)
	require.NotNil(t, histories[0].OrderID)
	assert.Equal(t, order.ID, *histories[0].OrderID)
	assert.Equal(t, constants.PointReasonOrderReward, histories[0].Reason)

	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "delivered")
	require.NoError(t, err, "re-delivering is an idempotent write")
	assert.Equal(t, int64(10), f.balanceOf(t, 1))
	var count int64
	require.NoError(t, f.db.Model(&models.PointHistory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// seedRewardConflict 让送达奖励的引用被其他用户占用，入账必然失败
func seedRewardConflict(t *testing.T, f *checkoutFixture, orderID uint) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.PointHistory{
		UserID:       2,
		Amount:       1,
		BalanceAfter: 1,
		Reason:       constants.PointReasonOrderReward,
		Reference:    fmt.Sprintf("order:%d:reward", orderID),
	}).Error)
}

func TestSellerDeliveredSurvivesRewardFailure(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	m := metrics.New(prometheus.NewRegistry())
	f.orders.metrics = m
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]
	setOrderState(t, f, order.ID, constants.OrderStatusShipping, "100000")
	seedRewardConflict(t, f, order.ID)

	updated, err := f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "delivered")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusDelivered, updated.Status)

	stored, err := f.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusDelivered, stored.Status)
	assert.Equal(t, int64(0), f.balanceOf(t, 1), "no reward credited")
	var count int64
	require.NoError(t, f.db.Model(&models.PointHistory{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RewardFailures))
}

func TestSellerStatusTransitions(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]

	_, err := f.orders.UpdateOrderStatus(context.Background(), order.ID, 99, "confirmed")
	assert.ErrorIs(t, err, ErrShopNotFound)

	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "bogus")
	assert.ErrorIs(t, err, ErrOrderStatusInvalid)

	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "cancelled")
	assert.ErrorIs(t, err, ErrOrderStatusInvalid)

	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "delivered")
	assert.ErrorIs(t, err, ErrOrderStatusInvalid, "pending orders must be confirmed or shipped first")
	assert.Equal(t, int64(0), f.balanceOf(t, 1))

	updated, err := f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "shipping")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusShipping, updated.Status)

	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "confirmed")
	assert.ErrorIs(t, err, ErrOrderStatusInvalid, "no backward moves")

	setOrderState(t, f, order.ID, constants.OrderStatusCancelled, "")
	_, err = f.orders.UpdateOrderStatus(context.Background(), order.ID, 10, "delivered")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestConfirmOrderReceivedTwice(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]

	_, err := f.orders.ConfirmOrderReceived(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrInvalidConfirmState, "pending orders cannot be confirmed")

	setOrderState(t, f, order.ID, constants.OrderStatusShipping, "25000")
	confirmation, err := f.orders.ConfirmOrderReceived(context.Background(), 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, confirmation.OrderID)
	assert.Equal(t, int64(2), confirmation.EarnedPoints)
	assert.Equal(t, int64(2), confirmation.NewBalance)

	_, err = f.orders.ConfirmOrderReceived(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, int64(2), f.balanceOf(t, 1), "wallet unchanged by the second confirmation")

	_, err = f.orders.ConfirmOrderReceived(context.Background(), 2, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmOrderReceivedBelowRateEarnsNothing(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]
	setOrderState(t, f, order.ID, constants.OrderStatusConfirmed, "9999")
	f.seedPoints(t, 1, 7)

	confirmation, err := f.orders.ConfirmOrderReceived(context.Background(), 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), confirmation.EarnedPoints)
	assert.Equal(t, int64(7), confirmation.NewBalance)
}

func TestConfirmOrderReceivedSurvivesRewardFailure(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	m := metrics.New(prometheus.NewRegistry())
	f.orders.metrics = m
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	order := placeOrder(t, f, 1, CheckoutRequest{Items: []CheckoutItem{{ProductID: tea.ID, Quantity: 1}}}).Orders[0]
	setOrderState(t, f, order.ID, constants.OrderStatusShipping, "100000")
	f.seedPoints(t, 1, 7)
	seedRewardConflict(t, f, order.ID)

	confirmation, err := f.orders.ConfirmOrderReceived(context.Background(), 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, confirmation.OrderID)
	assert.Equal(t, int64(0), confirmation.EarnedPoints)
	assert.Equal(t, int64(7), confirmation.NewBalance)

	stored, err := f.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, int64(7), f.balanceOf(t, 1))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RewardFailures))
}
