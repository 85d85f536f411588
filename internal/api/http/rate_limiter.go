package http

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/auth"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// SubmitRateLimiter caps how many requests one member may submit per window. It is a
// fixed window counter in Redis and lets traffic through when Redis is unavailable.
func SubmitRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) fiber.Handler {
	if client == nil {
		return passThrough
	}
	return submitRateLimiter(client, limit, window, logger)
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

func submitRateLimiter(client redis.Cmdable, limit int, window time.Duration, logger *zap.Logger) fiber.Handler {
	if limit <= 0 || window <= 0 {
		return passThrough
	}
	return func(c *fiber.Ctx) error {
		session, ok := auth.SessionFromContext(c)
		if !ok {
			return c.Next()
		}

		key := submitRateKey(session.UserID)
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		ttl, err := client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			// First hit of the window, or a counter whose expiry was never set.
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				logger.Warn("rate limiter expiry not set", zap.String("key", key), zap.Error(err))
			}
			ttl = window
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-int(count))))
		if int(count) > limit {
			return apperrors.NewRateLimited(int64(ttl.Seconds()))
		}
		return c.Next()
	}
}

func submitRateKey(userID string) string {
	return fmt.Sprintf("rate_limit:submit:%s", userID)
}
