package service

import (
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointCreditIsIdempotentPerReference(t *testing.T) {
	f := newCheckoutFixture(t, nil)

	first, err := f.points.CreditInTx(f.db, 1, 15, constants.PointReasonOrderReward, "order:9:reward", nil, "reward")
	require.NoError(t, err)
	assert.True(t, first.Credited)
	assert.Equal(t, int64(15), first.Balance)

	second, err := f.points.CreditInTx(f.db, 1, 15, constants.PointReasonOrderReward, "order:9:reward", nil, "reward")
	require.NoError(t, err)
	assert.False(t, second.Credited)
	assert.Equal(t, int64(15), second.Balance)

	_, err = f.points.CreditInTx(f.db, 2, 15, constants.PointReasonOrderReward, "order:9:reward", nil, "reward")
	assert.ErrorIs(t, err, ErrPointHistoryConflict)

	_, err = f.points.CreditInTx(f.db, 1, 5, constants.PointReasonOrderReward, "  ", nil, "reward")
	assert.ErrorIs(t, err, ErrPointHistoryConflict)
}

func TestPointSpendRequiresBalance(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	f.seedPoints(t, 1, 50)

	_, err := f.points.SpendInTx(f.db, 1, 51, "checkout:CK1:coins", "spend")
	assert.ErrorIs(t, err, ErrPointsInsufficient)
	assert.Equal(t, int64(50), f.balanceOf(t, 1))

	balance, err := f.points.SpendInTx(f.db, 1, 20, "checkout:CK1:coins", "spend")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	var history models.PointHistory
	require.NoError(t, f.db.Where("reference = ?", "checkout:CK1:coins").First(&history).Error)
	assert.Equal(t, int64(-20), history.Amount)
	assert.Equal(t, int64(30), history.BalanceAfter)
	assert.Equal(t, constants.PointReasonCheckoutSpend, history.Reason)
}

func TestPointListHistoryFiltersByReason(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	_, err := f.points.AddPoints(f.db, 1, 10, constants.PointReasonOrderReward, "order:1:reward", nil, "reward")
	require.NoError(t, err)
	_, err = f.points.AddPoints(f.db, 1, 4, constants.PointReasonCancelRefund, "order:2:coin_refund", nil, "refund")
	require.NoError(t, err)

	rows, total, err := f.points.ListHistory(repository.PointHistoryListFilter{UserID: 1, Page: 1, PageSize: 20, Reason: constants.PointReasonCancelRefund})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Amount)
	assert.Equal(t, int64(14), f.balanceOf(t, 1))
}
