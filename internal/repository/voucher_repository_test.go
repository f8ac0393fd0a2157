package repository

import (
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoucherRepositoryIncrementUsageRespectsLimit(t *testing.T) {
	db := setupRepositoryTestDB(t, "voucher_repo_limit")
	repo := NewVoucherRepository(db)

	voucher := models.Voucher{
		Code:       "ONCE",
		Scope:      constants.VoucherScopeSystem,
		Type:       constants.VoucherTypeFixed,
		Value:      money("5.00"),
		UsageLimit: 1,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&voucher).Error)

	rows, err := repo.IncrementUsage(voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.IncrementUsage(voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	rows, err = repo.DecrementUsage(voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.DecrementUsage(voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "used_count must not go below zero")
}

func TestVoucherRepositoryUserVoucherMarkedOnce(t *testing.T) {
	db := setupRepositoryTestDB(t, "voucher_repo_user")
	repo := NewVoucherRepository(db)
	now := time.Now()

	rows, err := repo.MarkUserVoucherUsed(7, 3, 11, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.MarkUserVoucherUsed(7, 3, 12, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	ids, err := repo.ListUsedVoucherIDs(7, []uint{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, ids)

	rows, err = repo.RevertUserVoucher(7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.RevertUserVoucher(7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	var count int64
	require.NoError(t, db.Model(&models.UserVoucher{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVoucherRepositoryListByCodesTrimsInput(t *testing.T) {
	db := setupRepositoryTestDB(t, "voucher_repo_codes")
	repo := NewVoucherRepository(db)
	require.NoError(t, db.Create(&models.Voucher{Code: "SHOPA", Scope: constants.VoucherScopeShop, ShopID: 1, Type: constants.VoucherTypeFixed, Value: money("1.00"), IsActive: true}).Error)

	vouchers, err := repo.ListByCodes([]string{" SHOPA ", "", "MISSING"})
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	assert.Equal(t, "SHOPA", vouchers[0].Code)
}
