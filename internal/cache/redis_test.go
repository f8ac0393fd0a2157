package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: false}))
	assert.False(t, Enabled())
	assert.Nil(t, Client())

	var dest map[string]int
	hit, err := GetJSON(context.Background(), "k", &dest)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, SetJSON(context.Background(), "k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, Del(context.Background(), "k"))
	assert.NoError(t, Close())
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	assert.Equal(t, redisPrefix+":shipping:quote", BuildKey(" shipping:quote "))
	assert.Equal(t, redisPrefix, BuildKey(""))
}
