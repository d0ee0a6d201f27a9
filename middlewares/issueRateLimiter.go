package middlewares

import (
	"net/http"
	"time"

	"civictrack-be/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = 24 * time.Hour

// IssueRateLimiter caps write requests per identity per day. Anonymous callers
// are keyed by client IP. A nil client disables limiting.
func IssueRateLimiter(rdb *redis.Client, prefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if userID := c.GetString(UserIDKey); userID != "" {
			subject = "user:" + userID
		}
		userKey := prefix + ":" + subject
		ctx := c.Request.Context()

		count, err := rdb.Incr(ctx, userKey).Result()
		if err != nil {
			requestLogger(c).Error("rate_limit_incr", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limiter unavailable, please try again later"})
			c.Abort()
			return
		}

		// Set TTL only for the first increment
		if count == 1 {
			if err := rdb.Expire(ctx, userKey, rateLimitWindow).Err(); err != nil {
				requestLogger(c).Error("rate_limit_expire", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limiter unavailable, please try again later"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			metrics.RateLimitedTotal.Inc()
			retryAfter, _ := rdb.TTL(ctx, userKey).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
