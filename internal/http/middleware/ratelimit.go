package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"filemaster/internal/ratelimit"
)

// Limiter decides whether subject may make another request.
type Limiter interface {
	Allow(ctx context.Context, subject string) (ratelimit.Decision, error)
}

// RateLimit throttles mutating requests per authenticated user and path. It
// must run after Auth. Limiter errors let the request through.
func RateLimit(l Limiter, log zerolog.Logger) fiber.Handler {
	if l == nil {
		return Noop()
	}
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}

		subject := UserIDFromCtx(c)
		if subject == "" {
			subject = "anonymous"
		}
		subject += ":" + c.Path()

		d, err := l.Allow(c.UserContext(), subject)
		if err != nil {
			log.Warn().Err(err).Str("request_id", RequestIDFromCtx(c)).Msg("rate limiter check failed")
			return c.Next()
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if d.Allowed {
			return c.Next()
		}

		retryAfter := max(int(d.RetryAfter.Round(time.Second).Seconds()), 1)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return &APIError{Status: fiber.StatusTooManyRequests, Code: "RATE_LIMITED", Message: "rate limit exceeded"}
	}
}
