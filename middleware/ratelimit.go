package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lms-ai-backend/internal/logger"
	"lms-ai-backend/utils"
)

// WindowCounter counts hits on a key within a fixed window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps one expiring counter key per window.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimitMiddleware limits requests per caller and route. Authenticated
// callers are keyed by user, others by IP. When the counter is unavailable
// requests are let through.
func RateLimitMiddleware(counter WindowCounter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.FullPath() == "/health" {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if userID := GetUserID(c); userID != "" {
			caller = "user:" + userID
		}
		key := "ratelimit:" + caller + ":" + c.Request.Method + ":" + c.FullPath()

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		count, err := counter.Incr(ctx, key, window)
		cancel()
		if err != nil {
			logger.Warn("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"rate_limit_exceeded",
				"Too many requests. Please try again later.",
				gin.H{
					"retry_after": int(window.Seconds()),
					"limit":       limit,
				})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Next()
	}
}
