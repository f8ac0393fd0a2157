package service

import (
	"context"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/shipping"

	"github.com/shopspring/decimal"
)

// 礼品包装与贺卡价目表（按样式下标）
var (
	giftWrapFees = []int64{0, 15000, 25000}
	giftCardFees = []int64{0, 5000, 10000}
)

// PricingEngine 结算计价引擎
type PricingEngine struct {
	rates       ShippingRateProvider
	promotions  PromotionCalculator
	points      PointBalanceReader
	checkoutCfg config.CheckoutConfig
}

// NewPricingEngine 创建计价引擎
func NewPricingEngine(rates ShippingRateProvider, promotions PromotionCalculator, points PointBalanceReader, checkoutCfg config.CheckoutConfig) *PricingEngine {
	return &PricingEngine{
		rates:       rates,
		promotions:  promotions,
		points:      points,
		checkoutCfg: checkoutCfg.Normalize(),
	}
}

// Price 计算各店铺运费、礼品费、优惠与积分抵扣
func (e *PricingEngine) Price(ctx context.Context, userID uint, groups []ShopGroup, req CheckoutRequest) (*OrderPreview, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyCheckout
	}

	priced := make([]PricedShopGroup, len(groups))
	for i, group := range groups {
		priced[i] = PricedShopGroup{
			ShopGroup:      group,
			ShippingFee:    e.quoteShipping(ctx, group, req.Receiver),
			GiftFee:        giftFee(req.Gift),
			ShopDiscount:   decimal.Zero,
			SystemDiscount: decimal.Zero,
			CoinDiscount:   decimal.Zero,
		}
	}

	preview := &OrderPreview{}
	systemDiscount := decimal.Zero
	if e.promotions != nil && len(req.VoucherCodes) > 0 {
		calc, err := e.promotions.CalculateMultiShopVouchers(ctx, userID, req.VoucherCodes, groups)
		if err != nil {
			return nil, err
		}
		for i := range priced {
			shopID := priced[i].ShopID
			if discount, ok := calc.ShopDiscounts[shopID]; ok {
				priced[i].ShopDiscount = discount
				voucherID := calc.ShopVoucherIDs[shopID]
				priced[i].ShopVoucherID = &voucherID
			}
		}
		systemDiscount = calc.SystemDiscount
		preview.SystemVoucherID = calc.SystemVoucherID
		preview.AppliedVouchers = calc.AppliedVouchers
	}

	summary := PreviewSummary{
		Subtotal:       decimal.Zero,
		ShippingFee:    decimal.Zero,
		GiftFee:        decimal.Zero,
		ShopDiscount:   decimal.Zero,
		SystemDiscount: systemDiscount,
		CoinDiscount:   decimal.Zero,
	}
	for _, group := range priced {
		summary.Subtotal = summary.Subtotal.Add(group.Subtotal)
		summary.ShippingFee = summary.ShippingFee.Add(group.ShippingFee)
		summary.GiftFee = summary.GiftFee.Add(group.GiftFee)
		summary.ShopDiscount = summary.ShopDiscount.Add(group.ShopDiscount)
	}

	payable := summary.Subtotal.Add(summary.ShippingFee).Add(summary.GiftFee).
		Sub(summary.ShopDiscount).Sub(summary.SystemDiscount)
	if req.UseCoins {
		coins, err := e.coinsToUse(userID, payable)
		if err != nil {
			return nil, err
		}
		preview.CoinsUsed = coins
		summary.CoinDiscount = decimal.NewFromInt(coins)
	}

	systemShares := allocateBySubtotal(summary.SystemDiscount, priced, summary.Subtotal)
	coinShares := allocateBySubtotal(summary.CoinDiscount, priced, summary.Subtotal)
	coinPoints := allocatePoints(preview.CoinsUsed, priced, summary.Subtotal)
	for i := range priced {
		group := &priced[i]
		group.SystemDiscount = systemShares[i]
		group.CoinDiscount = coinShares[i]
		group.CoinPoints = coinPoints[i]
		group.Total = clampZero(group.Subtotal.Add(group.ShippingFee).Add(group.GiftFee).
			Sub(group.ShopDiscount).Sub(group.SystemDiscount).Sub(group.CoinDiscount))
	}
	summary.GrandTotal = clampZero(payable.Sub(summary.CoinDiscount))

	preview.Groups = priced
	preview.Summary = summary
	return preview, nil
}

// quoteShipping 运费报价失败或无法计算时使用默认运费，不阻断结算
func (e *PricingEngine) quoteShipping(ctx context.Context, group ShopGroup, receiver ReceiverAddress) decimal.Decimal {
	fallback := decimal.NewFromInt(e.checkoutCfg.DefaultShippingFee)
	if e.rates == nil || !receiver.HasDestination() || !group.Origin.Known() {
		return fallback
	}
	fee, err := e.rates.CalculateFee(ctx, shipping.FeeRequest{
		FromDistrictID: group.Origin.DistrictID,
		FromWardCode:   group.Origin.WardCode,
		ToDistrictID:   receiver.DistrictID,
		ToWardCode:     receiver.WardCode,
		WeightGrams:    group.WeightGrams,
		InsuranceValue: group.Subtotal.IntPart(),
	})
	if err != nil {
		logger.Warnw("checkout_shipping_quote_failed",
			"shop_id", group.ShopID,
			"error", err,
		)
		return fallback
	}
	if fee <= 0 {
		return fallback
	}
	return decimal.NewFromInt(fee)
}

// coinsToUse 可用积分 = min(余额, 抵扣上限, 应付金额)，按整数积分取整
func (e *PricingEngine) coinsToUse(userID uint, payable decimal.Decimal) (int64, error) {
	if e.points == nil || payable.LessThanOrEqual(decimal.Zero) {
		return 0, nil
	}
	balance, err := e.points.GetBalance(userID)
	if err != nil {
		return 0, err
	}
	coins := balance
	if coins > e.checkoutCfg.CoinDiscountCeiling {
		coins = e.checkoutCfg.CoinDiscountCeiling
	}
	if limit := payable.Floor().IntPart(); coins > limit {
		coins = limit
	}
	if coins < 0 {
		return 0, nil
	}
	return coins, nil
}

func giftFee(gift GiftOptions) decimal.Decimal {
	if !gift.Enabled {
		return decimal.Zero
	}
	return decimal.NewFromInt(feeAt(giftWrapFees, gift.WrapStyle) + feeAt(giftCardFees, gift.CardStyle))
}

func feeAt(table []int64, idx int) int64 {
	if idx < 0 || idx >= len(table) {
		return 0
	}
	return table[idx]
}

// allocateBySubtotal 按小计占比分摊金额，每份向下取整到分，余数不再分配
func allocateBySubtotal(amount decimal.Decimal, groups []PricedShopGroup, total decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(groups))
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if amount.LessThanOrEqual(decimal.Zero) || total.LessThanOrEqual(decimal.Zero) {
		return shares
	}
	for i, group := range groups {
		shares[i] = amount.Mul(group.Subtotal).Div(total).RoundFloor(2)
	}
	return shares
}

// allocatePoints 按小计占比把扣除的整数积分拆到各店铺，余数归小计最大的店铺
// 各份之和恒等于 points，取消订单时按此退回
func allocatePoints(points int64, groups []PricedShopGroup, total decimal.Decimal) []int64 {
	shares := make([]int64, len(groups))
	if points <= 0 || len(groups) == 0 {
		return shares
	}
	largest := 0
	var assigned int64
	for i, group := range groups {
		if group.Subtotal.GreaterThan(groups[largest].Subtotal) {
			largest = i
		}
		if total.GreaterThan(decimal.Zero) {
			shares[i] = decimal.NewFromInt(points).Mul(group.Subtotal).Div(total).Floor().IntPart()
		}
		assigned += shares[i]
	}
	shares[largest] += points - assigned
	return shares
}

func clampZero(value decimal.Decimal) decimal.Decimal {
	if value.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return value
}
