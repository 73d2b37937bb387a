package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	"go.uber.org/zap"
)

const rateLimitWindow = time.Minute

// RateLimit enforces a fixed-window limit of perMinute requests per client IP.
// Redis failures let the request through.
func RateLimit(rc *pkgredis.Client, perMinute int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || rc == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / int64(rateLimitWindow/time.Second)
		key := fmt.Sprintf("memory-explorer:rate_limit:%s:%d", ip, window)

		count, err := rc.Incr(ctx, key, rateLimitWindow+time.Second)
		if err != nil {
			log.Warn("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(perMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(perMinute) {
			c.Header("Retry-After", strconv.Itoa(int(rateLimitWindow/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests, slow down.",
			})
			return
		}

		c.Next()
	}
}
