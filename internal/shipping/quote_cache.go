package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/logger"
)

// FeeCalculator 运费报价接口
type FeeCalculator interface {
	CalculateFee(ctx context.Context, req FeeRequest) (int64, error)
}

// CachedRateProvider 带 Redis 缓存的运费报价
type CachedRateProvider struct {
	next FeeCalculator
	ttl  time.Duration
}

// NewCachedRateProvider 包装报价接口，ttl <= 0 时不缓存
func NewCachedRateProvider(next FeeCalculator, ttl time.Duration) *CachedRateProvider {
	return &CachedRateProvider{next: next, ttl: ttl}
}

type cachedQuote struct {
	Fee int64 `json:"fee"`
}

// CalculateFee 先读缓存，未命中时调用物流接口并回写；缓存异常不影响报价
func (p *CachedRateProvider) CalculateFee(ctx context.Context, req FeeRequest) (int64, error) {
	key := quoteCacheKey(req)
	if p.ttl > 0 {
		var cached cachedQuote
		hit, err := cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warnw("shipping_quote_cache_read_failed", "key", key, "error", err)
		} else if hit {
			return cached.Fee, nil
		}
	}

	fee, err := p.next.CalculateFee(ctx, req)
	if err != nil {
		return 0, err
	}
	if p.ttl > 0 && fee > 0 {
		if err := cache.SetJSON(ctx, key, cachedQuote{Fee: fee}, p.ttl); err != nil {
			logger.Warnw("shipping_quote_cache_write_failed", "key", key, "error", err)
		}
	}
	return fee, nil
}

// 重量按 100 克分档，避免同一线路因小幅重量差异缓存过多条目
func quoteCacheKey(req FeeRequest) string {
	weightBucket := (req.WeightGrams + 99) / 100
	return fmt.Sprintf("shipping:quote:%d:%s:%d:%s:%d:%d",
		req.FromDistrictID, req.FromWardCode,
		req.ToDistrictID, req.ToWardCode,
		weightBucket, req.InsuranceValue,
	)
}
