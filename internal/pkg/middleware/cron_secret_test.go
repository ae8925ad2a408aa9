package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCronTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/internal/cron/renewal-sweep", CronSecretMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestCronSecretMiddleware(t *testing.T) {
	t.Setenv("CRON_SECRET", "sweep-secret")
	app := newCronTestApp()

	tests := []struct {
		name       string
		secret     string
		wantStatus int
	}{
		{name: "valid secret", secret: "sweep-secret", wantStatus: fiber.StatusOK},
		{name: "wrong secret", secret: "guess", wantStatus: fiber.StatusUnauthorized},
		{name: "missing header", secret: "", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/internal/cron/renewal-sweep", nil)
			if tt.secret != "" {
				req.Header.Set("X-Cron-Secret", tt.secret)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCronSecretMiddlewareUnconfigured(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	app := newCronTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/internal/cron/renewal-sweep", nil)
	req.Header.Set("X-Cron-Secret", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
