package router

import (
	"github.com/MartinKoehl/OfficeBase/internal/pkg/middleware"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
	h.registerInternalRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
