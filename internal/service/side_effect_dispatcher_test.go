package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *checkoutFixture) newDispatcher(m *metrics.CheckoutMetrics, synchronous bool) *SideEffectDispatcher {
	return NewSideEffectDispatcher(SideEffectDispatcherOptions{
		Cart:        f.cart,
		Gateway:     f.gateway,
		Carrier:     f.carrier,
		Tracker:     f.tracker,
		OrderRepo:   f.orderRepo,
		ShopRepo:    f.shopRepo,
		Retry:       f.retry,
		Metrics:     m,
		Timeout:     time.Second,
		Synchronous: synchronous,
	})
}

// committedOutcome 提交一笔在线支付结算，再以货到付款重放副作用
func committedOutcome(t *testing.T, f *checkoutFixture) CheckoutOutcome {
	t.Helper()
	shopA := f.createShop(t, 10, "Shop A")
	shopB := f.createShop(t, 20, "Shop B")
	tea := f.createProduct(t, shopA.ID, "Tea", "100", 5)
	cup := f.createProduct(t, shopB.ID, "Cup", "50", 5)
	result := placeOrder(t, f, 1, CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: tea.ID, Quantity: 1}, {ProductID: cup.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodOnline,
	})
	require.Len(t, result.Orders, 2)
	f.tracker.events = nil
	return CheckoutOutcome{
		UserID:              1,
		CheckoutNo:          result.CheckoutNo,
		PaymentMethod:       constants.PaymentMethodCOD,
		Receiver:            testReceiver(),
		Orders:              result.Orders,
		TotalAmount:         result.TotalAmount,
		PurchasedLines:      []models.CartLine{{ProductID: tea.ID}, {ProductID: cup.ID}},
	}
}

func TestDispatchPanickingCarrierDoesNotStopOtherTasks(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	require.NoError(t, f.cart.UpsertItem(UpsertCartItemInput{UserID: 1, ProductID: outcome.PurchasedLines[0].ProductID, Quantity: 1}))
	f.carrier.panicMsg = "carrier exploded"
	m := metrics.New(prometheus.NewRegistry())

	url := f.newDispatcher(m, true).Dispatch(context.Background(), outcome)

	assert.Empty(t, url)
	require.Len(t, f.tracker.events, 1, "analytics still emitted")
	assert.Equal(t, outcome.CheckoutNo, f.tracker.events[0].event.TargetID)
	items, err := f.cart.GetCart(1)
	require.NoError(t, err)
	assert.Empty(t, items, "cart still cleared")

	require.Len(t, f.retry.shipments, 2)
	assert.Equal(t, outcome.Orders[0].ID, f.retry.shipments[0].OrderID)
	assert.Equal(t, outcome.CheckoutNo, f.retry.shipments[1].CheckoutNo)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(constants.SideEffectShipmentRegister)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SideEffectRetries.WithLabelValues(constants.SideEffectShipmentRegister)))

	for _, order := range outcome.Orders {
		var stored models.Order
		require.NoError(t, f.db.First(&stored, order.ID).Error)
		assert.Equal(t, constants.OrderStatusPending, stored.Status, "committed orders are untouched")
	}
}

func TestClearPurchasedItemsKeepsOtherVariants(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	shop := f.createShop(t, 10, "Shop")
	tea := f.createProduct(t, shop.ID, "Tea", "100", 5)
	for _, variantID := range []uint{0, 7} {
		require.NoError(t, f.cartRepo.Upsert(&models.CartItem{UserID: 1, ProductID: tea.ID, VariantID: variantID, Quantity: 1}))
	}

	err := f.newDispatcher(nil, true).ClearPurchasedItems(context.Background(), queue.CartClearPayload{
		UserID: 1,
		Lines:  []models.CartLine{{ProductID: tea.ID}},
	})
	require.NoError(t, err)

	items, err := f.cartRepo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(7), items[0].VariantID)
}

func TestDispatchFailingTrackerEnqueuesRetry(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	f.tracker.err = errors.New("broker down")

	f.newDispatcher(nil, true).Dispatch(context.Background(), outcome)

	require.Len(t, f.retry.analytics, 1)
	assert.Equal(t, outcome.TotalAmount.StringFixed(2), f.retry.analytics[0].Revenue)
	assert.Equal(t, 2, f.retry.analytics[0].OrderCount)
	assert.Len(t, f.carrier.requests, 2, "shipments still registered")
	assert.Empty(t, f.retry.shipments)
}

func TestDispatchSkipsRetryWhenQueueDisabled(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	f.tracker.err = errors.New("broker down")
	f.retry.enabled = false

	f.newDispatcher(nil, true).Dispatch(context.Background(), outcome)

	assert.Empty(t, f.retry.analytics)
}

func TestDispatchOnlineReturnsPaymentURLWithoutShipments(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	outcome.PaymentMethod = constants.PaymentMethodOnline
	f.gateway.url = "https://pay.example/replay"

	url := f.newDispatcher(nil, true).Dispatch(context.Background(), outcome)

	assert.Equal(t, "https://pay.example/replay", url)
	assert.Equal(t, outcome.Orders[0].ID, f.gateway.orderID)
	assert.True(t, f.gateway.amount.Equal(outcome.TotalAmount))
	assert.Empty(t, f.carrier.requests)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, outcome.Orders[1].ID).Error)
	assert.Equal(t, "https://pay.example/replay", stored.PaymentURL)
}

func TestDispatchGatewayFailureLeavesEmptyURL(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	outcome.PaymentMethod = constants.PaymentMethodOnline
	f.gateway.err = errors.New("gateway timeout")
	m := metrics.New(prometheus.NewRegistry())

	url := f.newDispatcher(m, true).Dispatch(context.Background(), outcome)

	assert.Empty(t, url)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(constants.SideEffectPaymentSession)))
	assert.Len(t, f.tracker.events, 1)
}

func TestDispatchBackgroundRunsAfterCancelledRequest(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher := f.newDispatcher(nil, false)
	dispatcher.Dispatch(ctx, outcome)
	dispatcher.Wait()

	assert.Len(t, f.tracker.events, 1)
	assert.Len(t, f.carrier.requests, 2)
}

func TestRegisterShipmentFillsOriginAndSkipsTrackedOrders(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	outcome := committedOutcome(t, f)
	dispatcher := f.newDispatcher(nil, true)
	order := outcome.Orders[0]

	require.NoError(t, dispatcher.RegisterShipment(context.Background(), order.ID))
	require.Len(t, f.carrier.requests, 1)
	req := f.carrier.requests[0]
	assert.Equal(t, order.OrderNo, req.ClientOrderCode)
	assert.Equal(t, 1442, req.FromDistrictID)
	assert.Equal(t, "20101", req.FromWardCode)
	assert.Equal(t, 1451, req.ToDistrictID)
	assert.Equal(t, order.TotalAmount.Whole(), req.CODAmount)
	require.Len(t, req.Items, 1)
	assert.Equal(t, 1, req.Items[0].Quantity)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, "TRK-1-"+order.OrderNo, stored.TrackingCode)

	require.NoError(t, dispatcher.RegisterShipment(context.Background(), order.ID))
	assert.Len(t, f.carrier.requests, 1, "tracked orders are not registered twice")

	assert.ErrorIs(t, dispatcher.RegisterShipment(context.Background(), 9999), ErrOrderNotFound)
}
