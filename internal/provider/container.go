package provider

import (
	"time"

	"github.com/bazaar-next/internal/analytics"
	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/payment/gateway"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"
	"github.com/bazaar-next/internal/shipping"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.CheckoutMetrics

	// Repositories
	UserRepo    repository.UserRepository
	ShopRepo    repository.ShopRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	VoucherRepo repository.VoucherRepository
	PointRepo   repository.PointRepository
	OrderRepo   repository.OrderRepository

	// External clients（未配置时为 nil）
	ShippingClient   *shipping.Client
	PaymentGateway   *gateway.Client
	AnalyticsTracker *analytics.KafkaTracker

	// Services
	AuthzService         *authz.Service
	CartService          *service.CartService
	PointService         *service.PointService
	PromotionService     *service.PromotionService
	CartResolver         *service.CartResolver
	PricingEngine        *service.PricingEngine
	SideEffectDispatcher *service.SideEffectDispatcher
	OrderService         *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     metrics.Default(),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化外部客户端
	c.initClients()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ShopRepo = repository.NewShopRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.PointRepo = repository.NewPointRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initClients() {
	c.ShippingClient = shipping.NewClient(c.Config.Shipping)
	if c.ShippingClient == nil {
		logger.Infow("provider_shipping_client_disabled", "fallback_fee", c.Config.Checkout.DefaultShippingFee)
	}
	c.PaymentGateway = gateway.NewClient(c.Config.Payment)
	if c.PaymentGateway == nil {
		logger.Infow("provider_payment_gateway_disabled")
	}
	c.AnalyticsTracker = analytics.NewKafkaTracker(c.Config.Kafka)
	if !c.AnalyticsTracker.Enabled() {
		logger.Infow("provider_analytics_tracker_disabled")
	}
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	checkoutCfg := c.Config.Checkout

	// 接口字段只在客户端可用时赋值，避免出现带类型的 nil
	var (
		rates   service.ShippingRateProvider
		carrier service.ShippingCarrier
		payment service.PaymentGateway
		tracker service.AnalyticsTracker
		retry   service.RetryEnqueuer
	)
	if c.ShippingClient != nil {
		ttl := time.Duration(c.Config.Shipping.QuoteCacheTTLSecond) * time.Second
		rates = shipping.NewCachedRateProvider(c.ShippingClient, ttl)
		carrier = c.ShippingClient
	}
	if c.PaymentGateway != nil {
		payment = c.PaymentGateway
	}
	if c.AnalyticsTracker.Enabled() {
		tracker = c.AnalyticsTracker
	}
	if c.QueueClient != nil {
		retry = c.QueueClient
	}

	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.PointService = service.NewPointService(c.PointRepo)
	c.PromotionService = service.NewPromotionService(c.VoucherRepo)
	c.CartResolver = service.NewCartResolver(c.CartService, c.ProductRepo, c.ShopRepo, checkoutCfg)
	c.PricingEngine = service.NewPricingEngine(rates, c.PromotionService, c.PointService, checkoutCfg)
	c.SideEffectDispatcher = service.NewSideEffectDispatcher(service.SideEffectDispatcherOptions{
		Cart:      c.CartService,
		Gateway:   payment,
		Carrier:   carrier,
		Tracker:   tracker,
		OrderRepo: c.OrderRepo,
		ShopRepo:  c.ShopRepo,
		Retry:     retry,
		Metrics:   c.Metrics,
		Timeout:   time.Duration(checkoutCfg.SideEffectTimeoutSeconds) * time.Second,
	})
	c.OrderService = service.NewOrderService(service.OrderServiceOptions{
		OrderRepo:   c.OrderRepo,
		ProductRepo: c.ProductRepo,
		VoucherRepo: c.VoucherRepo,
		ShopRepo:    c.ShopRepo,
		Resolver:    c.CartResolver,
		Pricing:     c.PricingEngine,
		Points:      c.PointService,
		Dispatcher:  c.SideEffectDispatcher,
		Metrics:     c.Metrics,
		CheckoutCfg: checkoutCfg,
	})
}

// Close 释放外部连接，等待进行中的副作用结束
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.SideEffectDispatcher != nil {
		c.SideEffectDispatcher.Wait()
	}
	if c.AnalyticsTracker != nil {
		if err := c.AnalyticsTracker.Close(); err != nil {
			logger.Warnw("provider_close_analytics_failed", "error", err)
		}
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
