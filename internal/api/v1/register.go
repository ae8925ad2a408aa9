package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/middleware"
)

// RegisterHandlers attaches the v1 routes to the given router group. Ping
// stays open; everything else requires a valid API key.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)

	authed := router.Group("", middleware.APIKeyAuthMiddleware())
	authed.Get("/subscription", s.GetSubscription)
	authed.Get("/notifications", s.GetNotifications)
	authed.Post("/notifications/:id/read", s.PostNotificationRead)
}
