package middleware

import "github.com/gofiber/fiber/v2"

// Noop passes every request through. Optional middlewares return it when
// they are switched off.
func Noop() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}
