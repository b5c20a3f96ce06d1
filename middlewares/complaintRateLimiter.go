package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ad-it-ya-pa-til/cityvoice/config"
)

const rateLimitKeyPrefix = "cityvoice:complaint-limit"

// ComplaintRateLimiter caps how many complaints a user may submit per day.
// The counter is a Redis INCR with a 24h TTL set on first increment, so the
// check stays atomic under concurrent submissions.
func ComplaintRateLimiter(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID, ok := userIDVal.(string)
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		ctx := config.Ctx
		userKey := rateLimitKeyPrefix + ":" + userID

		count, err := config.RedisClient.Incr(ctx, userKey).Result()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			c.Abort()
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			if err := config.RedisClient.Expire(ctx, userKey, 24*time.Hour).Err(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := config.RedisClient.TTL(ctx, userKey).Result()
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
