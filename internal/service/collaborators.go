package service

import (
	"context"

	"github.com/bazaar-next/internal/analytics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/shipping"

	"github.com/shopspring/decimal"
)

// CartStore 购物车协作方
type CartStore interface {
	GetCart(userID uint) ([]models.CartItem, error)
	RemoveItems(userID uint, lines []models.CartLine) error
	ClearCart(userID uint) error
}

// PromotionCalculator 优惠券计算协作方
type PromotionCalculator interface {
	CalculateMultiShopVouchers(ctx context.Context, userID uint, codes []string, groups []ShopGroup) (*VoucherCalculation, error)
}

// PointBalanceReader 积分余额读取
type PointBalanceReader interface {
	GetBalance(userID uint) (int64, error)
}

// ShippingRateProvider 运费报价协作方
type ShippingRateProvider interface {
	CalculateFee(ctx context.Context, req shipping.FeeRequest) (int64, error)
}

// ShippingCarrier 承运商运单登记
type ShippingCarrier interface {
	CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error)
}

// PaymentGateway 在线支付网关
type PaymentGateway interface {
	CreatePaymentSession(ctx context.Context, orderID uint, amount decimal.Decimal, description string) (string, error)
}

// AnalyticsTracker 行为分析上报
type AnalyticsTracker interface {
	TrackEvent(ctx context.Context, userID uint, channel string, event analytics.Event) error
}

// RetryEnqueuer 副作用失败后的异步重试投递
type RetryEnqueuer interface {
	Enabled() bool
	EnqueueCartClear(payload queue.CartClearPayload) error
	EnqueueShipmentRegister(payload queue.ShipmentRegisterPayload) error
	EnqueueAnalyticsPurchase(payload queue.AnalyticsPurchasePayload) error
}
