package config

import "time"

// 结算规则默认值（金额单位：最小货币单位）
const (
	DefaultShippingFee              int64 = 30000
	DefaultItemWeightGrams                = 200
	DefaultCoinDiscountCeiling      int64 = 50000
	DefaultPointConversionRate      int64 = 10000
	DefaultCommitTimeoutSeconds           = 30
	DefaultSideEffectTimeoutSeconds       = 20
)

// Normalize 将非法配置回退为默认值
func (c CheckoutConfig) Normalize() CheckoutConfig {
	if c.DefaultShippingFee < 0 {
		c.DefaultShippingFee = DefaultShippingFee
	}
	if c.DefaultItemWeightGrams <= 0 {
		c.DefaultItemWeightGrams = DefaultItemWeightGrams
	}
	if c.CoinDiscountCeiling < 0 {
		c.CoinDiscountCeiling = DefaultCoinDiscountCeiling
	}
	if c.PointConversionRate <= 0 {
		c.PointConversionRate = DefaultPointConversionRate
	}
	if c.CommitTimeoutSeconds <= 0 {
		c.CommitTimeoutSeconds = DefaultCommitTimeoutSeconds
	}
	if c.SideEffectTimeoutSeconds <= 0 {
		c.SideEffectTimeoutSeconds = DefaultSideEffectTimeoutSeconds
	}
	return c
}

// CommitTimeout 下单事务超时
func (c CheckoutConfig) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutSeconds) * time.Second
}

// SideEffectTimeout 下单后副作用执行超时
func (c CheckoutConfig) SideEffectTimeout() time.Duration {
	return time.Duration(c.SideEffectTimeoutSeconds) * time.Second
}

// DefaultCheckoutConfig 默认结算规则
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		DefaultShippingFee:       DefaultShippingFee,
		DefaultItemWeightGrams:   DefaultItemWeightGrams,
		CoinDiscountCeiling:      DefaultCoinDiscountCeiling,
		PointConversionRate:      DefaultPointConversionRate,
		CommitTimeoutSeconds:     DefaultCommitTimeoutSeconds,
		SideEffectTimeoutSeconds: DefaultSideEffectTimeoutSeconds,
	}
}
