package service

import (
	"strings"

	"github.com/bazaar-next/internal/constants"

	"github.com/shopspring/decimal"
)

// CheckoutItem 显式下单项
type CheckoutItem struct {
	ProductID uint `json:"product_id"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// ReceiverAddress 收件信息
type ReceiverAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	ProvinceID int    `json:"province_id"`
	DistrictID int    `json:"district_id"`
	WardCode   string `json:"ward_code"`
}

// HasDestination 是否具备可计算运费/可登记运单的目的地
func (r ReceiverAddress) HasDestination() bool {
	return r.DistrictID > 0 && strings.TrimSpace(r.WardCode) != ""
}

// GiftOptions 礼品选项
type GiftOptions struct {
	Enabled    bool   `json:"enabled"`
	WrapStyle  int    `json:"wrap_style"`
	CardStyle  int    `json:"card_style"`
	Message    string `json:"message"`
	SenderName string `json:"sender_name"`
}

// PerShopNote 买家备注：按店铺指定，未指定的店铺使用通用备注
type PerShopNote struct {
	Fallback string          `json:"fallback"`
	ByShop   map[uint]string `json:"by_shop"`
}

// Resolve 返回店铺备注
func (n PerShopNote) Resolve(shopID uint) string {
	if note, ok := n.ByShop[shopID]; ok && strings.TrimSpace(note) != "" {
		return strings.TrimSpace(note)
	}
	return strings.TrimSpace(n.Fallback)
}

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	Items         []CheckoutItem  `json:"items"`
	UseCart       bool            `json:"use_cart"`
	Receiver      ReceiverAddress `json:"receiver"`
	Gift          GiftOptions     `json:"gift"`
	VoucherCodes  []string        `json:"voucher_codes"`
	UseCoins      bool            `json:"use_coins"`
	PaymentMethod string          `json:"payment_method"`
	Notes         PerShopNote     `json:"notes"`
}

// usesExplicitItems 请求是否携带显式商品列表
func (r CheckoutRequest) usesExplicitItems() bool {
	return len(r.Items) > 0
}

// ShippingOrigin 店铺发货地
type ShippingOrigin struct {
	ProvinceID int    `json:"province_id"`
	DistrictID int    `json:"district_id"`
	WardCode   string `json:"ward_code"`
}

// Known 发货地是否完整
func (o ShippingOrigin) Known() bool {
	return o.DistrictID > 0 && strings.TrimSpace(o.WardCode) != ""
}

// LineItem 已校验的结算行
type LineItem struct {
	ProductID    uint            `json:"product_id"`
	VariantID    uint            `json:"variant_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
	WeightGrams  int             `json:"weight_grams"`
}

// ShopGroup 同一店铺的结算分组
type ShopGroup struct {
	ShopID      uint            `json:"shop_id"`
	ShopName    string          `json:"shop_name"`
	Origin      ShippingOrigin  `json:"origin"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	WeightGrams int             `json:"weight_grams"`
	Note        string          `json:"note"`
}

// AppliedVoucher 实际生效的优惠券
type AppliedVoucher struct {
	VoucherID uint            `json:"voucher_id"`
	Code      string          `json:"code"`
	Scope     string          `json:"scope"`
	ShopID    uint            `json:"shop_id"`
	Discount  decimal.Decimal `json:"discount"`
}

// PricedShopGroup 带价格明细的店铺分组
type PricedShopGroup struct {
	ShopGroup
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	GiftFee        decimal.Decimal `json:"gift_fee"`
	ShopDiscount   decimal.Decimal `json:"shop_discount"`
	SystemDiscount decimal.Decimal `json:"system_discount"`
	CoinDiscount   decimal.Decimal `json:"coin_discount"`
	CoinPoints     int64           `json:"coin_points"`
	Total          decimal.Decimal `json:"total"`
	ShopVoucherID  *uint           `json:"shop_voucher_id,omitempty"`
}

// PreviewSummary 结算汇总
type PreviewSummary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	GiftFee        decimal.Decimal `json:"gift_fee"`
	ShopDiscount   decimal.Decimal `json:"shop_discount"`
	SystemDiscount decimal.Decimal `json:"system_discount"`
	CoinDiscount   decimal.Decimal `json:"coin_discount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// OrderPreview 结算预览
type OrderPreview struct {
	Groups          []PricedShopGroup `json:"groups"`
	Summary         PreviewSummary    `json:"summary"`
	AppliedVouchers []AppliedVoucher  `json:"applied_vouchers"`
	SystemVoucherID *uint             `json:"system_voucher_id,omitempty"`
	CoinsUsed       int64             `json:"coins_used"`
}

// normalizePaymentMethod 校验支付方式，为空时按货到付款处理
func normalizePaymentMethod(raw string) (string, error) {
	method := strings.ToLower(strings.TrimSpace(raw))
	switch method {
	case "":
		return constants.PaymentMethodCOD, nil
	case constants.PaymentMethodCOD, constants.PaymentMethodOnline:
		return method, nil
	}
	return "", ErrInvalidPayment
}
