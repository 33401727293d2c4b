// app/ratelimit.go
package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit 固定窗口限流（按 IP+路由计数）。Redis 不可用时放行，不阻塞业务.
func RateLimit(rdb *redis.Client, cfg Config, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.RateLimitEnabled {
			c.Next()
			return
		}

		key := "ratelimit:" + c.FullPath() + ":" + c.ClientIP()
		n, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			c.Next()
			return
		}
		if n == 1 {
			_ = rdb.Expire(c.Request.Context(), key, window).Err()
		}
		if n > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
