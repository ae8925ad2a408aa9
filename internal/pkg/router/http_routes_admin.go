package router

import (
	"github.com/MartinKoehl/OfficeBase/app/controllers"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)

	// Subscription review
	adminGroup.Get("/subscriptions/:id", controllers.HandleAdminSubscriptionShow)
	adminGroup.Post("/subscriptions/:id/actions", controllers.HandleAdminSubscriptionAction)
}
