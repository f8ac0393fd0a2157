package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bazaar-next/internal/analytics"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/shipping"

	"github.com/shopspring/decimal"
)

// CheckoutOutcome 已提交结算的副作用输入
type CheckoutOutcome struct {
	UserID              uint
	CheckoutNo          string
	PaymentMethod       string
	Receiver            ReceiverAddress
	Orders              []models.Order
	TotalAmount         decimal.Decimal
	PurchasedLines      []models.CartLine
	ClearCart           bool
}

// sideEffectTask 单个独立副作用；inline 任务在返回响应前同步执行
type sideEffectTask struct {
	name   string
	inline bool
	run    func(ctx context.Context) error
	retry  func() error
}

// SideEffectDispatcherOptions 副作用分发依赖
type SideEffectDispatcherOptions struct {
	Cart      CartStore
	Gateway   PaymentGateway
	Carrier   ShippingCarrier
	Tracker   AnalyticsTracker
	OrderRepo repository.OrderRepository
	ShopRepo  repository.ShopRepository
	Retry     RetryEnqueuer
	Metrics   *metrics.CheckoutMetrics
	Timeout   time.Duration
	// Synchronous 为 true 时后台任务也在调用方 goroutine 中执行
	Synchronous bool
}

// SideEffectDispatcher 下单后副作用分发器，任一任务失败都不影响其他任务与已提交的订单
type SideEffectDispatcher struct {
	cart        CartStore
	gateway     PaymentGateway
	carrier     ShippingCarrier
	tracker     AnalyticsTracker
	orderRepo   repository.OrderRepository
	shopRepo    repository.ShopRepository
	retry       RetryEnqueuer
	metrics     *metrics.CheckoutMetrics
	timeout     time.Duration
	synchronous bool
	wg          sync.WaitGroup
}

// NewSideEffectDispatcher 创建副作用分发器
func NewSideEffectDispatcher(opts SideEffectDispatcherOptions) *SideEffectDispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SideEffectDispatcher{
		cart:        opts.Cart,
		gateway:     opts.Gateway,
		carrier:     opts.Carrier,
		tracker:     opts.Tracker,
		orderRepo:   opts.OrderRepo,
		shopRepo:    opts.ShopRepo,
		retry:       opts.Retry,
		metrics:     opts.Metrics,
		timeout:     timeout,
		synchronous: opts.Synchronous,
	}
}

// Dispatch 执行下单后副作用，返回在线支付跳转地址（无则为空）
func (d *SideEffectDispatcher) Dispatch(ctx context.Context, outcome CheckoutOutcome) string {
	detached := context.WithoutCancel(ctx)
	var paymentURL string
	tasks := d.planTasks(outcome, &paymentURL)

	background := make([]sideEffectTask, 0, len(tasks))
	for _, task := range tasks {
		if task.inline {
			d.runTask(detached, outcome.CheckoutNo, task)
			continue
		}
		background = append(background, task)
	}
	if len(background) == 0 {
		return paymentURL
	}
	if d.synchronous {
		for _, task := range background {
			d.runTask(detached, outcome.CheckoutNo, task)
		}
		return paymentURL
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, task := range background {
			d.runTask(detached, outcome.CheckoutNo, task)
		}
	}()
	return paymentURL
}

// Wait 等待后台副作用执行完毕
func (d *SideEffectDispatcher) Wait() {
	d.wg.Wait()
}

func (d *SideEffectDispatcher) planTasks(outcome CheckoutOutcome, paymentURL *string) []sideEffectTask {
	tasks := make([]sideEffectTask, 0, len(outcome.Orders)+3)

	cartPayload := queue.CartClearPayload{
		UserID:     outcome.UserID,
		CheckoutNo: outcome.CheckoutNo,
		Lines:      outcome.PurchasedLines,
		ClearAll:   outcome.ClearCart,
	}
	tasks = append(tasks, sideEffectTask{
		name: constants.SideEffectCartClear,
		run: func(ctx context.Context) error {
			return d.ClearPurchasedItems(ctx, cartPayload)
		},
		retry: func() error {
			return d.retry.EnqueueCartClear(cartPayload)
		},
	})

	if outcome.PaymentMethod == constants.PaymentMethodOnline && len(outcome.Orders) > 0 {
		tasks = append(tasks, sideEffectTask{
			name:   constants.SideEffectPaymentSession,
			inline: true,
			run: func(ctx context.Context) error {
				url, err := d.CreatePaymentSession(ctx, outcome.CheckoutNo, outcome.Orders, outcome.TotalAmount)
				if err != nil {
					return err
				}
				*paymentURL = url
				return nil
			},
		})
	}

	if outcome.PaymentMethod == constants.PaymentMethodCOD && outcome.Receiver.HasDestination() {
		for _, order := range outcome.Orders {
			payload := queue.ShipmentRegisterPayload{OrderID: order.ID, CheckoutNo: outcome.CheckoutNo}
			tasks = append(tasks, sideEffectTask{
				name: constants.SideEffectShipmentRegister,
				run: func(ctx context.Context) error {
					return d.RegisterShipment(ctx, payload.OrderID)
				},
				retry: func() error {
					return d.retry.EnqueueShipmentRegister(payload)
				},
			})
		}
	}

	analyticsPayload := queue.AnalyticsPurchasePayload{
		UserID:     outcome.UserID,
		CheckoutNo: outcome.CheckoutNo,
		Revenue:    outcome.TotalAmount.StringFixed(2),
		OrderCount: len(outcome.Orders),
	}
	tasks = append(tasks, sideEffectTask{
		name: constants.SideEffectAnalytics,
		run: func(ctx context.Context) error {
			return d.EmitPurchaseEvent(ctx, analyticsPayload)
		},
		retry: func() error {
			return d.retry.EnqueueAnalyticsPurchase(analyticsPayload)
		},
	})
	return tasks
}

// runTask 独立执行单个任务：超时、panic 恢复、日志、指标与重试投递
func (d *SideEffectDispatcher) runTask(parent context.Context, checkoutNo string, task sideEffectTask) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return task.run(ctx)
	}()
	if err == nil {
		return
	}

	d.metrics.SideEffectFailed(task.name)
	logger.Warnw("checkout_side_effect_failed",
		"task", task.name,
		"checkout_no", checkoutNo,
		"error", err,
	)
	if task.retry == nil || d.retry == nil || !d.retry.Enabled() {
		return
	}
	if enqueueErr := task.retry(); enqueueErr != nil {
		logger.Errorw("checkout_side_effect_retry_enqueue_failed",
			"task", task.name,
			"checkout_no", checkoutNo,
			"error", enqueueErr,
		)
		return
	}
	d.metrics.SideEffectRetryEnqueued(task.name)
}

// ClearPurchasedItems 移除已购商品，未显式指定商品时清空购物车
func (d *SideEffectDispatcher) ClearPurchasedItems(ctx context.Context, payload queue.CartClearPayload) error {
	if d.cart == nil || payload.UserID == 0 {
		return nil
	}
	if payload.ClearAll {
		return d.cart.ClearCart(payload.UserID)
	}
	if len(payload.Lines) == 0 {
		return nil
	}
	return d.cart.RemoveItems(payload.UserID, payload.Lines)
}

// CreatePaymentSession 以首个订单为键创建支付会话，并将跳转地址写回同批订单
func (d *SideEffectDispatcher) CreatePaymentSession(ctx context.Context, checkoutNo string, orders []models.Order, total decimal.Decimal) (string, error) {
	if d.gateway == nil {
		return "", fmt.Errorf("payment gateway not configured")
	}
	if len(orders) == 0 {
		return "", nil
	}
	url, err := d.gateway.CreatePaymentSession(ctx, orders[0].ID, total, fmt.Sprintf("Checkout %s", checkoutNo))
	if err != nil {
		return "", err
	}
	ids := make([]uint, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	if d.orderRepo != nil {
		if err := d.orderRepo.SetPaymentURL(ids, url); err != nil {
			logger.Warnw("checkout_payment_url_save_failed", "checkout_no", checkoutNo, "error", err)
		}
	}
	return url, nil
}

// RegisterShipment 为货到付款订单登记运单，已有运单号时跳过
func (d *SideEffectDispatcher) RegisterShipment(ctx context.Context, orderID uint) error {
	if d.carrier == nil || d.orderRepo == nil {
		return nil
	}
	order, err := d.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if strings.TrimSpace(order.TrackingCode) != "" {
		return nil
	}
	if order.DistrictID <= 0 || strings.TrimSpace(order.WardCode) == "" {
		return nil
	}

	req := shipping.ShipmentRequest{
		ClientOrderCode: order.OrderNo,
		ToName:          order.RecipientName,
		ToPhone:         order.RecipientPhone,
		ToAddress:       order.RecipientAddr,
		ToDistrictID:    order.DistrictID,
		ToWardCode:      order.WardCode,
		CODAmount:       order.TotalAmount.Whole(),
		WeightGrams:     order.WeightGrams,
		Note:            order.Note,
	}
	if d.shopRepo != nil {
		shop, err := d.shopRepo.GetByID(order.ShopID)
		if err != nil {
			return err
		}
		if shop != nil {
			req.FromName = shop.Name
			req.FromPhone = shop.Phone
			req.FromAddress = shop.Address
			req.FromDistrictID = shop.DistrictID
			req.FromWardCode = shop.WardCode
		}
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, shipping.ShipmentItem{
			Name:     item.ProductName,
			Code:     fmt.Sprintf("%d-%d", item.ProductID, item.VariantID),
			Quantity: item.Quantity,
			Price:    item.UnitPrice.Whole(),
			Weight:   item.WeightGrams,
		})
	}

	result, err := d.carrier.CreateShipment(ctx, req)
	if err != nil {
		return err
	}
	rows, err := d.orderRepo.SetTrackingCode(order.ID, result.TrackingCode)
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.Infow("checkout_tracking_code_already_set", "order_id", order.ID)
		return nil
	}
	logger.Infow("checkout_shipment_registered",
		"order_id", order.ID,
		"tracking_code", result.TrackingCode,
	)
	return nil
}

// EmitPurchaseEvent 上报购买事件
func (d *SideEffectDispatcher) EmitPurchaseEvent(ctx context.Context, payload queue.AnalyticsPurchasePayload) error {
	if d.tracker == nil {
		return nil
	}
	return d.tracker.TrackEvent(ctx, payload.UserID, constants.AnalyticsChannelCheckout, analytics.Event{
		Type:     constants.AnalyticsEventPurchase,
		TargetID: payload.CheckoutNo,
		Metadata: map[string]interface{}{
			"revenue":     payload.Revenue,
			"order_count": payload.OrderCount,
		},
	})
}
