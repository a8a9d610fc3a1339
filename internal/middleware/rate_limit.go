package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit applies a fixed-window counter per client IP, backed by redis.
// Credential endpoints sit behind it so password guessing costs attempts,
// not throughput. Redis trouble fails open: losing the limiter must not
// take logins down with it.
func RateLimit(client *redis.Client, log zerolog.Logger, name string, limit int, window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		if limit <= 0 || client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		ctx := c.Request.Context()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter incr failed")
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter expire failed")
			}
		}

		if int(count) > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many attempts, try again later",
			})
			return
		}

		c.Next()
	}
}
