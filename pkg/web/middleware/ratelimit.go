package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/cache/lru"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/web/errors"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// Burst 突发容量
	Burst int `mapstructure:"burst"`
	// PerIP 按客户端 IP 限流，否则全局限流
	PerIP bool `mapstructure:"per_ip"`
	// SkipPaths 跳过的路径
	SkipPaths []string `mapstructure:"skip_paths"`
	// WaitTimeout 大于 0 时进入等待模式，超时才拒绝
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// MaxLimiters 最多保留的 IP 限流器数量
	MaxLimiters int `mapstructure:"max_limiters"`
	// LimiterTTL 限流器空闲过期时间
	LimiterTTL time.Duration `mapstructure:"limiter_ttl"`
	// CleanupInterval 清理间隔
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultRateLimitConfig 默认限流配置
// 每个浏览器每 5 秒轮询一次，编辑操作零星出现
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		PerIP:             true,
		SkipPaths:         []string{"/health", "/metrics"},
		MaxLimiters:       10000,
		LimiterTTL:        10 * time.Minute,
		CleanupInterval:   time.Minute,
	}
}

// RateLimiter 限流器
type RateLimiter struct {
	cfg      *RateLimitConfig
	global   *rate.Limiter
	limiters *lru.LRU[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg *RateLimitConfig) *RateLimiter {
	if cfg == nil {
		cfg = DefaultRateLimitConfig()
	}
	rl := &RateLimiter{
		cfg:    cfg,
		global: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger: l,
	}

	rl.limiters = lru.New[string, *rate.Limiter](
		&lru.Config{
			MaxSize:         cfg.MaxLimiters,
			DefaultTTL:      cfg.LimiterTTL,
			CleanupInterval: cfg.CleanupInterval,
		},
		lru.WithOnEvict(func(key string, _ *rate.Limiter) {
			l.Debug("rate limiter evicted", "key", key)
		}),
	)

	return rl
}

// Allow 检查是否允许请求，key 为空时使用全局限流器
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Wait 等待直到允许请求
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.limiter(key).Wait(ctx)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if key == "" {
		return rl.global
	}
	return rl.limiters.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	})
}

// Close 关闭限流器
func (rl *RateLimiter) Close() error {
	return rl.limiters.Close()
}

// RateLimit 限流中间件
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(limiter.cfg.SkipPaths))
	for _, path := range limiter.cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, skip := skipPaths[path]; skip {
			c.Next()
			return
		}

		var key string
		if limiter.cfg.PerIP {
			key = "ip:" + c.ClientIP()
		}

		if limiter.cfg.WaitTimeout > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), limiter.cfg.WaitTimeout)
			defer cancel()

			if err := limiter.Wait(ctx, key); err != nil {
				limiter.logger.Warn("rate limit wait timeout", "key", key, "path", path, "error", err)
				abortWithRateLimitError(c)
				return
			}
		} else if !limiter.Allow(key) {
			limiter.logger.Warn("rate limit exceeded", "key", key, "path", path)
			abortWithRateLimitError(c)
			return
		}

		c.Next()
	}
}

// abortWithRateLimitError 返回限流错误
func abortWithRateLimitError(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(1))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    errors.CodeRateLimited,
		"message": "too many requests",
		"data":    nil,
	})
}
