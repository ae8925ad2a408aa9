package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/env"
)

// CronSecretMiddleware guards internal cron trigger routes with a shared
// secret supplied via the X-Cron-Secret header.
func CronSecretMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := strings.TrimSpace(env.GetEnv("CRON_SECRET", ""))
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cron_disabled", "message": "CRON_SECRET is not configured"})
		}

		provided := strings.TrimSpace(c.Get("X-Cron-Secret"))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid cron secret"})
		}
		return c.Next()
	}
}
