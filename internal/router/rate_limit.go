package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流主体
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	// Message 超限提示，可包含一个 %d 占位符表示需等待的秒数
	Message string
}

func (r RateLimitRule) active() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// hitCounter 记录一次命中，返回窗口内计数与剩余时间
type hitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// 首次命中时设置过期，保证窗口从第一次请求开始计算
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// RateLimitMiddleware Redis 固定窗口限流；未启用 Redis 或规则为空时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if client == nil {
		return rateLimit(nil, rule, keyFunc)
	}
	return rateLimit(redisCounter{client: client}, rule, keyFunc)
}

func rateLimit(counter hitCounter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	return func(c *gin.Context) {
		if counter == nil || !rule.active() {
			c.Next()
			return
		}

		subject := strings.TrimSpace(keyFunc(c))
		if subject == "" {
			subject = c.ClientIP()
		}
		key := subject
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + subject
		}

		count, remaining, err := counter.Hit(c.Request.Context(), key, rule.window())
		if err != nil {
			logger.Warnw("rate_limit_hit_failed", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeInternal, "rate limit unavailable")
			c.Abort()
			return
		}
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		wait := int((remaining + time.Second - 1) / time.Second)
		if wait < 1 {
			wait = rule.WindowSeconds
		}
		c.Header("Retry-After", strconv.Itoa(wait))
		logger.Infow("rate_limit_exceeded", "prefix", rule.Prefix, "subject", subject, "count", count)
		response.Error(c, response.CodeTooManyRequests, rule.message(wait))
		c.Abort()
	}
}

func (r RateLimitRule) message(wait int) string {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "too many requests, retry in %d seconds"
	}
	if strings.Contains(msg, "%d") {
		return fmt.Sprintf(msg, wait)
	}
	return msg
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUserID 登录用户按用户 ID 限流，未登录时退化为 IP
func KeyByUserID(c *gin.Context) string {
	if uid := c.GetUint("user_id"); uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return c.ClientIP()
}
