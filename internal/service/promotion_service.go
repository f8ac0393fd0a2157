package service

import (
	"context"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// VoucherCalculation 多店铺优惠计算结果
type VoucherCalculation struct {
	ShopDiscounts   map[uint]decimal.Decimal
	ShopVoucherIDs  map[uint]uint
	SystemDiscount  decimal.Decimal
	SystemVoucherID *uint
	AppliedVouchers []AppliedVoucher
}

// PromotionService 优惠券计算服务
type PromotionService struct {
	voucherRepo repository.VoucherRepository
	now         func() time.Time
}

// NewPromotionService 创建优惠券服务
func NewPromotionService(voucherRepo repository.VoucherRepository) *PromotionService {
	return &PromotionService{voucherRepo: voucherRepo, now: time.Now}
}

// CalculateMultiShopVouchers 计算店铺券与平台券优惠
// 每个店铺最多生效一张店铺券，整单最多生效一张平台券，均取优惠额最大者；
// 不可用的优惠码直接忽略，不作为错误返回。
func (s *PromotionService) CalculateMultiShopVouchers(ctx context.Context, userID uint, codes []string, groups []ShopGroup) (*VoucherCalculation, error) {
	result := &VoucherCalculation{
		ShopDiscounts:  make(map[uint]decimal.Decimal, len(groups)),
		ShopVoucherIDs: make(map[uint]uint, len(groups)),
		SystemDiscount: decimal.Zero,
	}
	codes = dedupeCodes(codes)
	if len(codes) == 0 || len(groups) == 0 {
		return result, nil
	}

	vouchers, err := s.voucherRepo.ListByCodes(codes)
	if err != nil {
		return nil, err
	}
	used, err := s.usedVoucherSet(userID, vouchers)
	if err != nil {
		return nil, err
	}

	subtotals := make(map[uint]decimal.Decimal, len(groups))
	totalSubtotal := decimal.Zero
	for _, group := range groups {
		subtotals[group.ShopID] = group.Subtotal
		totalSubtotal = totalSubtotal.Add(group.Subtotal)
	}

	now := s.now()
	bestShop := make(map[uint]*AppliedVoucher)
	var bestSystem *AppliedVoucher
	for i := range vouchers {
		voucher := &vouchers[i]
		if reason := voucherUnavailableReason(voucher, now); reason != "" {
			logger.Debugw("voucher_skipped", "code", voucher.Code, "reason", reason)
			continue
		}
		if used[voucher.ID] {
			logger.Debugw("voucher_skipped", "code", voucher.Code, "reason", "already_used")
			continue
		}
		switch voucher.Scope {
		case constants.VoucherScopeShop:
			base, ok := subtotals[voucher.ShopID]
			if !ok {
				continue
			}
			discount := computeVoucherDiscount(voucher, base)
			if discount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			if current := bestShop[voucher.ShopID]; current == nil || discount.GreaterThan(current.Discount) {
				bestShop[voucher.ShopID] = newAppliedVoucher(voucher, discount)
			}
		case constants.VoucherScopeSystem:
			discount := computeVoucherDiscount(voucher, totalSubtotal)
			if discount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			if bestSystem == nil || discount.GreaterThan(bestSystem.Discount) {
				bestSystem = newAppliedVoucher(voucher, discount)
			}
		}
	}

	shopDiscountTotal := decimal.Zero
	for _, group := range groups {
		applied := bestShop[group.ShopID]
		if applied == nil {
			continue
		}
		result.ShopDiscounts[group.ShopID] = applied.Discount
		result.ShopVoucherIDs[group.ShopID] = applied.VoucherID
		result.AppliedVouchers = append(result.AppliedVouchers, *applied)
		shopDiscountTotal = shopDiscountTotal.Add(applied.Discount)
	}
	if bestSystem != nil {
		remaining := totalSubtotal.Sub(shopDiscountTotal)
		if bestSystem.Discount.GreaterThan(remaining) {
			bestSystem.Discount = decimal.Max(remaining, decimal.Zero)
		}
		if bestSystem.Discount.GreaterThan(decimal.Zero) {
			id := bestSystem.VoucherID
			result.SystemDiscount = bestSystem.Discount
			result.SystemVoucherID = &id
			result.AppliedVouchers = append(result.AppliedVouchers, *bestSystem)
		}
	}
	return result, nil
}

func (s *PromotionService) usedVoucherSet(userID uint, vouchers []models.Voucher) (map[uint]bool, error) {
	ids := make([]uint, 0, len(vouchers))
	for _, voucher := range vouchers {
		ids = append(ids, voucher.ID)
	}
	usedIDs, err := s.voucherRepo.ListUsedVoucherIDs(userID, ids)
	if err != nil {
		return nil, err
	}
	used := make(map[uint]bool, len(usedIDs))
	for _, id := range usedIDs {
		used[id] = true
	}
	return used, nil
}

func voucherUnavailableReason(voucher *models.Voucher, now time.Time) string {
	if !voucher.IsActive {
		return "inactive"
	}
	if voucher.StartsAt != nil && now.Before(*voucher.StartsAt) {
		return "not_started"
	}
	if voucher.EndsAt != nil && now.After(*voucher.EndsAt) {
		return "expired"
	}
	if voucher.UsageLimit > 0 && voucher.UsedCount >= voucher.UsageLimit {
		return "usage_limit_reached"
	}
	if voucher.Scope == constants.VoucherScopeShop && voucher.ShopID == 0 {
		return "scope_mismatch"
	}
	return ""
}

// computeVoucherDiscount 计算优惠额，不超过门槛金额基数与封顶金额
func computeVoucherDiscount(voucher *models.Voucher, base decimal.Decimal) decimal.Decimal {
	if base.LessThanOrEqual(decimal.Zero) || base.LessThan(voucher.MinAmount.Decimal) {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch voucher.Type {
	case constants.VoucherTypeFixed:
		discount = voucher.Value.Decimal
	case constants.VoucherTypePercent:
		discount = base.Mul(voucher.Value.Decimal).Div(decimal.NewFromInt(100))
	default:
		return decimal.Zero
	}
	if voucher.MaxDiscount.Decimal.GreaterThan(decimal.Zero) && discount.GreaterThan(voucher.MaxDiscount.Decimal) {
		discount = voucher.MaxDiscount.Decimal
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return discount.RoundFloor(2)
}

func newAppliedVoucher(voucher *models.Voucher, discount decimal.Decimal) *AppliedVoucher {
	return &AppliedVoucher{
		VoucherID: voucher.ID,
		Code:      voucher.Code,
		Scope:     voucher.Scope,
		ShopID:    voucher.ShopID,
		Discount:  discount,
	}
}

func dedupeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	result := make([]string, 0, len(codes))
	for _, code := range codes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
