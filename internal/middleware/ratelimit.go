package middleware

import (
	"strconv"

	"github.com/emmayusufu/googledriveclone/internal/ratelimit"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// RateLimit counts requests per user, method and path. Requests without a
// user are counted per client IP. A failing counter store lets requests through.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if user := GetCurrentUser(c); user != nil {
			subject = user.ID.String()
		}

		decision, err := limiter.Allow(c.UserContext(), subject, c.Method(), c.Path())
		if err != nil {
			logger.Error("rate_limit_store_failed", err, map[string]interface{}{
				"path":   c.Path(),
				"method": c.Method(),
			})
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetSeconds(decision), 10))

		if !decision.Allowed {
			logger.Warn("rate_limit_exceeded", map[string]interface{}{
				"subject": subject,
				"method":  c.Method(),
				"path":    c.Path(),
				"limit":   decision.Limit,
			})
			return utils.Error(c, fiber.StatusTooManyRequests, "too many requests, please try again later")
		}
		return c.Next()
	}
}

// resetSeconds rounds the window end up to whole unix seconds.
func resetSeconds(d ratelimit.Decision) int64 {
	ms := d.ResetAt.UnixMilli()
	return (ms + 999) / 1000
}
