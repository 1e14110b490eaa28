package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadstack/lead-service/internal/config"
)

const (
	rateLimitKeyPrefix = "ratelimit:"
	blockedIPKeyPrefix = "blocked_ip:"
)

// RateLimiter returns a fixed-window per-IP limiter for the auth endpoints.
// Exceeding the window limit blocks the IP for the configured duration.
// Redis failures fail open: login must keep working when Redis is down.
func RateLimiter(cfg config.RateLimitConfig, client *redis.Client, logger *zap.Logger) fiber.Handler {
	if !cfg.Enabled || client == nil {
		return nil
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		ip := c.IP()

		blocked, err := client.Exists(ctx, blockedIPKeyPrefix+ip).Result()
		if err == nil && blocked > 0 {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests. Please try again later.",
			})
		}

		key := rateLimitKeyPrefix + ip
		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			client.Expire(ctx, key, cfg.Window())
		}

		if count > int64(cfg.MaxRequests) {
			if err := client.Set(ctx, blockedIPKeyPrefix+ip, "1", cfg.BlockDuration()).Err(); err != nil {
				logger.Warn("failed to block ip", zap.String("ip", ip), zap.Error(err))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests. Please try again later.",
			})
		}

		return c.Next()
	}
}
