package router

import (
	"github.com/MartinKoehl/OfficeBase/app/controllers"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Account + session
	app.Post("/register", controllers.HandleRegister)
	app.Post("/login", controllers.HandleLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)

	// Payment gateway webhook (no session, signature-verified in controller)
	app.Post("/webhooks/gateway", controllers.HandleGatewayWebhook)
}
