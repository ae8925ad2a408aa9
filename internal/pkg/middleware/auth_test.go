package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/usercontext"
)

func newAuthTestApp(loggedIn, isAdmin bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyFromProtected, loggedIn)
		c.Locals(usercontext.KeyIsAdmin, isAdmin)
		return c.Next()
	})
	app.Get("/user", RequireAuth, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		loggedIn   bool
		wantStatus int
	}{
		{name: "logged in", loggedIn: true, wantStatus: fiber.StatusOK},
		{name: "anonymous", loggedIn: false, wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthTestApp(tt.loggedIn, false)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/user", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		loggedIn   bool
		isAdmin    bool
		wantStatus int
	}{
		{name: "admin", loggedIn: true, isAdmin: true, wantStatus: fiber.StatusOK},
		{name: "plain user", loggedIn: true, isAdmin: false, wantStatus: fiber.StatusForbidden},
		{name: "anonymous", loggedIn: false, isAdmin: false, wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthTestApp(tt.loggedIn, tt.isAdmin)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/admin", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
