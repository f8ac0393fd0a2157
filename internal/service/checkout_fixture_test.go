package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bazaar-next/internal/analytics"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/shipping"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db          *gorm.DB
	orderRepo   *repository.GormOrderRepository
	productRepo *repository.GormProductRepository
	shopRepo    *repository.GormShopRepository
	cartRepo    *repository.GormCartRepository
	voucherRepo *repository.GormVoucherRepository
	pointRepo   *repository.GormPointRepository
	cart        *CartService
	points      *PointService
	promotions  *PromotionService
	resolver    *CartResolver
	pricing     *PricingEngine
	dispatcher  *SideEffectDispatcher
	orders      *OrderService
	gateway     *fakeGateway
	carrier     *fakeCarrier
	tracker     *fakeTracker
	retry       *fakeRetry
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.Models()...))

	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		_ = sqlDB.Close()
	})
	return db
}

func newCheckoutFixture(t *testing.T, rates ShippingRateProvider) *checkoutFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	f := &checkoutFixture{
		db:          db,
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		shopRepo:    repository.NewShopRepository(db),
		cartRepo:    repository.NewCartRepository(db),
		voucherRepo: repository.NewVoucherRepository(db),
		pointRepo:   repository.NewPointRepository(db),
		gateway:     &fakeGateway{url: "https://pay.example/session"},
		carrier:     &fakeCarrier{trackingCode: "TRK-1"},
		tracker:     &fakeTracker{},
		retry:       &fakeRetry{enabled: true},
	}
	cfg := config.DefaultCheckoutConfig()
	f.cart = NewCartService(f.cartRepo, f.productRepo)
	f.points = NewPointService(f.pointRepo)
	f.promotions = NewPromotionService(f.voucherRepo)
	f.resolver = NewCartResolver(f.cart, f.productRepo, f.shopRepo, cfg)
	f.pricing = NewPricingEngine(rates, f.promotions, f.points, cfg)
	f.dispatcher = NewSideEffectDispatcher(SideEffectDispatcherOptions{
		Cart:        f.cart,
		Gateway:     f.gateway,
		Carrier:     f.carrier,
		Tracker:     f.tracker,
		OrderRepo:   f.orderRepo,
		ShopRepo:    f.shopRepo,
		Retry:       f.retry,
		Timeout:     time.Second,
		Synchronous: true,
	})
	f.orders = NewOrderService(OrderServiceOptions{
		OrderRepo:   f.orderRepo,
		ProductRepo: f.productRepo,
		VoucherRepo: f.voucherRepo,
		ShopRepo:    f.shopRepo,
		Resolver:    f.resolver,
		Pricing:     f.pricing,
		Points:      f.points,
		Dispatcher:  f.dispatcher,
		CheckoutCfg: cfg,
	})
	return f
}

func (f *checkoutFixture) createShop(t *testing.T, ownerID uint, name string) models.Shop {
	t.Helper()
	shop := models.Shop{OwnerID: ownerID, Name: name, DistrictID: 1442, WardCode: "20101", IsActive: true}
	require.NoError(t, f.db.Create(&shop).Error)
	return shop
}

func (f *checkoutFixture) createProduct(t *testing.T, shopID uint, name, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{ShopID: shopID, Name: name, Price: testMoney(price), Stock: stock, IsActive: true}
	require.NoError(t, f.db.Create(&product).Error)
	return product
}

func (f *checkoutFixture) createVoucher(t *testing.T, voucher models.Voucher) models.Voucher {
	t.Helper()
	voucher.IsActive = true
	require.NoError(t, f.db.Create(&voucher).Error)
	return voucher
}

func (f *checkoutFixture) seedPoints(t *testing.T, userID uint, balance int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.PointWallet{UserID: userID, Balance: balance}).Error)
}

func (f *checkoutFixture) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, productID).Error)
	return product.Stock
}

func (f *checkoutFixture) balanceOf(t *testing.T, userID uint) int64 {
	t.Helper()
	balance, err := f.points.GetBalance(userID)
	require.NoError(t, err)
	return balance
}

func (f *checkoutFixture) voucherUsedCount(t *testing.T, voucherID uint) int {
	t.Helper()
	var voucher models.Voucher
	require.NoError(t, f.db.First(&voucher, voucherID).Error)
	return voucher.UsedCount
}

func testReceiver() ReceiverAddress {
	return ReceiverAddress{Name: "Lan", Phone: "0900000000", Address: "1 Le Loi", DistrictID: 1451, WardCode: "20814"}
}

func testMoney(value string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fakeRates struct {
	fee   int64
	err   error
	calls int
}

func (r *fakeRates) CalculateFee(ctx context.Context, req shipping.FeeRequest) (int64, error) {
	r.calls++
	return r.fee, r.err
}

type fakeGateway struct {
	mu      sync.Mutex
	url     string
	err     error
	orderID uint
	amount  decimal.Decimal
}

func (g *fakeGateway) CreatePaymentSession(ctx context.Context, orderID uint, amount decimal.Decimal, description string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderID = orderID
	g.amount = amount
	return g.url, g.err
}

type fakeCarrier struct {
	mu           sync.Mutex
	trackingCode string
	err          error
	panicMsg     string
	requests     []shipping.ShipmentRequest
}

func (c *fakeCarrier) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &shipping.ShipmentResult{TrackingCode: fmt.Sprintf("%s-%s", c.trackingCode, req.ClientOrderCode)}, nil
}

type trackedEvent struct {
	userID  uint
	channel string
	event   analytics.Event
}

type fakeTracker struct {
	mu     sync.Mutex
	err    error
	events []trackedEvent
}

func (t *fakeTracker) TrackEvent(ctx context.Context, userID uint, channel string, event analytics.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.events = append(t.events, trackedEvent{userID: userID, channel: channel, event: event})
	return nil
}

type fakeRetry struct {
	mu        sync.Mutex
	enabled   bool
	cart      []queue.CartClearPayload
	shipments []queue.ShipmentRegisterPayload
	analytics []queue.AnalyticsPurchasePayload
}

func (r *fakeRetry) Enabled() bool { return r.enabled }

func (r *fakeRetry) EnqueueCartClear(payload queue.CartClearPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = append(r.cart, payload)
	return nil
}

func (r *fakeRetry) EnqueueShipmentRegister(payload queue.ShipmentRegisterPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments = append(r.shipments, payload)
	return nil
}

func (r *fakeRetry) EnqueueAnalyticsPurchase(payload queue.AnalyticsPurchasePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analytics = append(r.analytics, payload)
	return nil
}
