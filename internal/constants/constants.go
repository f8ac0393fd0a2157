package constants

// OrderStatus 订单履约状态（买家确认与卖家推进共用）
type OrderStatus string

// 订单状态常量
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Valid 是否为已知状态
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipping, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 支付状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// 支付方式常量
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

// 优惠券范围与类型
const (
	VoucherScopeShop   = "shop"
	VoucherScopeSystem = "system"
	VoucherTypeFixed   = "fixed"
	VoucherTypePercent = "percent"
)

// 积分流水原因
const (
	PointReasonCheckoutSpend = "checkout_spend"
	PointReasonOrderReward   = "order_reward"
	PointReasonCancelRefund  = "order_cancel_refund"
)

// 结算副作用任务名称
const (
	SideEffectCartClear        = "cart_clear"
	SideEffectPaymentSession   = "payment_session"
	SideEffectShipmentRegister = "shipment_register"
	SideEffectAnalytics        = "analytics_purchase"
)

// 分析事件常量
const (
	AnalyticsChannelCheckout = "checkout"
	AnalyticsEventPurchase   = "purchase"
)

// 队列与任务常量
const (
	QueueDefault              = "default"
	QueueCritical             = "critical"
	TaskCheckoutCartClear     = "checkout:cart_clear"
	TaskCheckoutShipment      = "checkout:shipment_register"
	TaskCheckoutAnalyticsEmit = "checkout:analytics_purchase"
)

// 管理员角色
const (
	AdminRoleSuper   = "super"
	AdminRoleSupport = "support"
	AdminRoleAuditor = "readonly_auditor"
)
