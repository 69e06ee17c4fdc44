package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a per-IP sliding-window request cap backed by Redis.
// If Redis is unreachable the limiter fails open: a down rate-limiter must
// never take down submission intake.
func RateLimiter(rdb *redis.Client, maxRequestsPerMinute int) gin.HandlerFunc {
	window := time.Minute

	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := fmt.Sprintf("judge-executor:ratelimit:%s", ip)
		now := time.Now()
		member := float64(now.UnixNano())
		windowStart := float64(now.Add(-window).UnixNano())

		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', -1, 64))
		countCmd := pipe.ZCard(ctx, key)
		pipe.ZAdd(ctx, key, redis.Z{Score: member, Member: member})
		pipe.Expire(ctx, key, window+time.Second)

		if _, err := pipe.Exec(ctx); err != nil {
			c.Next()
			return
		}

		count := countCmd.Val()
		if count >= int64(maxRequestsPerMinute) {
			rdb.ZRemRangeByScore(ctx, key, strconv.FormatFloat(member, 'f', -1, 64), strconv.FormatFloat(member, 'f', -1, 64))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("rate limit exceeded: max %d requests per minute", maxRequestsPerMinute),
			})
			return
		}

		c.Next()
	}
}
