package service

import (
	"context"
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromotionPicksBestShopVoucherPerShop(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	f.createVoucher(t, models.Voucher{Code: "A10", Scope: constants.VoucherScopeShop, ShopID: 1, Type: constants.VoucherTypeFixed, Value: testMoney("10")})
	best := f.createVoucher(t, models.Voucher{Code: "A20P", Scope: constants.VoucherScopeShop, ShopID: 1, Type: constants.VoucherTypePercent, Value: testMoney("20")})
	f.createVoucher(t, models.Voucher{Code: "C5", Scope: constants.VoucherScopeShop, ShopID: 3, Type: constants.VoucherTypeFixed, Value: testMoney("5")})

	calc, err := f.promotions.CalculateMultiShopVouchers(context.Background(), 1, []string{"A10", " A20P ", "C5", "A10"}, twoShopGroups())
	require.NoError(t, err)
	assert.True(t, calc.ShopDiscounts[1].Equal(dec("20")))
	assert.Equal(t, best.ID, calc.ShopVoucherIDs[1])
	_, hasShopB := calc.ShopDiscounts[2]
	assert.False(t, hasShopB)
	require.Len(t, calc.AppliedVouchers, 1, "voucher for a shop outside the checkout is dropped")
	assert.Nil(t, calc.SystemVoucherID)
}

func TestPromotionDropsUnusableVouchers(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	f.createVoucher(t, models.Voucher{Code: "EXPIRED", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("5"), EndsAt: &past})
	f.createVoucher(t, models.Voucher{Code: "LATER", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("5"), StartsAt: &future})
	f.createVoucher(t, models.Voucher{Code: "FULL", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("5"), UsageLimit: 1, UsedCount: 1})
	f.createVoucher(t, models.Voucher{Code: "MIN", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("5"), MinAmount: testMoney("1000")})
	used := f.createVoucher(t, models.Voucher{Code: "USED", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypeFixed, Value: testMoney("5")})
	usedAt := time.Now()
	require.NoError(t, f.db.Create(&models.UserVoucher{UserID: 1, VoucherID: used.ID, IsUsed: true, UsedAt: &usedAt}).Error)

	calc, err := f.promotions.CalculateMultiShopVouchers(context.Background(), 1,
		[]string{"EXPIRED", "LATER", "FULL", "MIN", "USED", "UNKNOWN"}, twoShopGroups())
	require.NoError(t, err)
	assert.Empty(t, calc.AppliedVouchers)
	assert.True(t, calc.SystemDiscount.IsZero())
}

func TestPromotionSystemVoucherPercentWithCap(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	system := f.createVoucher(t, models.Voucher{
		Code: "ALL50", Scope: constants.VoucherScopeSystem, Type: constants.VoucherTypePercent,
		Value: testMoney("50"), MaxDiscount: testMoney("40"),
	})

	calc, err := f.promotions.CalculateMultiShopVouchers(context.Background(), 2, []string{"ALL50"}, twoShopGroups())
	require.NoError(t, err)
	assert.True(t, calc.SystemDiscount.Equal(dec("40")))
	require.NotNil(t, calc.SystemVoucherID)
	assert.Equal(t, system.ID, *calc.SystemVoucherID)
}

func TestComputeVoucherDiscountNeverExceedsBase(t *testing.T) {
	voucher := &models.Voucher{Type: constants.VoucherTypeFixed, Value: testMoney("80")}
	assert.True(t, computeVoucherDiscount(voucher, dec("50")).Equal(dec("50")))
	assert.True(t, computeVoucherDiscount(voucher, dec("0")).IsZero())

	percent := &models.Voucher{Type: constants.VoucherTypePercent, Value: testMoney("15")}
	assert.True(t, computeVoucherDiscount(percent, dec("33.33")).Equal(dec("4.99")))
}
