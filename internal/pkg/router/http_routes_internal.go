package router

import (
	"github.com/MartinKoehl/OfficeBase/app/controllers"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// Internal routes are called by the scheduler host (system cron / k8s
// CronJob), never by browsers. They are guarded by a shared secret instead
// of a session.
func (h HttpRouter) registerInternalRoutes(app *fiber.App) {
	internalGroup := app.Group("/internal", middleware.CronSecretMiddleware())

	internalGroup.Post("/cron/renewal-sweep", controllers.HandleRenewalSweep)
}
