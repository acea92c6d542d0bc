package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"driverops/internal/config"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error)
}

// RateLimitResult 限流结果
type RateLimitResult struct {
	// 是否允许通过
	Allowed bool
	// 剩余请求数
	Remaining int
	// 重置时间（Unix时间戳）
	ResetAt int64
	// 总限制数
	Limit int
}

// fixedWindowScript counts a request in the current window, starting its TTL on first use
var fixedWindowScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or 0)
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local allowed = current < limit
	local remaining = limit - current - 1

	if allowed then
		redis.call('INCR', KEYS[1])
		if current == 0 then
			redis.call('EXPIRE', KEYS[1], ttl)
		end
	else
		remaining = 0
	end

	return {allowed and 1 or 0, remaining, limit}
`)

// RedisRateLimiter 基于Redis的固定窗口限流器
type RedisRateLimiter struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(redisClient *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redisClient, now: time.Now}
}

// Allow 检查是否允许请求通过
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error) {
	seconds := int64(rule.Window / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	window := r.now().Unix() / seconds
	windowKey := fmt.Sprintf("driverops:ratelimit:%s:%d", key, window)

	result, err := fixedWindowScript.Run(ctx, r.redis, []string{windowKey}, rule.Limit, seconds+1).Result()
	if err != nil {
		return nil, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply %v", result)
	}
	return &RateLimitResult{
		Allowed:   values[0].(int64) == 1,
		Remaining: int(values[1].(int64)),
		ResetAt:   (window + 1) * seconds,
		Limit:     int(values[2].(int64)),
	}, nil
}

// RateLimit applies the first rule whose path prefixes the request path, keyed by
// client IP. Requests pass when no rule matches or the limiter fails.
func RateLimit(limiter RateLimiter, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		rule, ok := cfg.RuleForPath(c.Request.URL.Path)
		if !ok || rule.Limit <= 0 {
			c.Next()
			return
		}

		key := rule.Path + ":" + clientIP(c)
		result, err := limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			// Redis错误时，允许请求通过（降级策略）
			log.Printf("[API] Rate limiter unavailable: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": result.ResetAt - time.Now().Unix(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
