package repository

import (
	"fmt"
	"testing"

	"github.com/bazaar-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPagination(t *testing.T) {
	db := setupRepositoryTestDB(t, "pagination")
	for i := 1; i <= 5; i++ {
		require.NoError(t, db.Create(&models.User{Email: fmt.Sprintf("u%d@example.com", i)}).Error)
	}

	var users []models.User
	require.NoError(t, applyPagination(db.Model(&models.User{}).Order("id asc"), 2, 2).Find(&users).Error)
	require.Len(t, users, 2)
	assert.Equal(t, "u3@example.com", users[0].Email)

	users = nil
	require.NoError(t, applyPagination(db.Model(&models.User{}), 0, 0).Find(&users).Error)
	assert.Len(t, users, 5, "non-positive page size returns everything")

	users = nil
	require.NoError(t, applyPagination(db.Model(&models.User{}).Order("id asc"), -1, 2).Find(&users).Error)
	require.Len(t, users, 2)
	assert.Equal(t, "u1@example.com", users[0].Email)
}
