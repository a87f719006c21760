package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lti-bridge-api/internal/config"
	"github.com/noah-isme/lti-bridge-api/internal/handler"
	"github.com/noah-isme/lti-bridge-api/internal/middleware"
	"github.com/noah-isme/lti-bridge-api/internal/observability"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LaunchHandler    *handler.LaunchHandler
	SetupHandler     *handler.SetupHandler
	ConsentHandler   *handler.ConsentHandler
	DashboardHandler *handler.DashboardHandler
	AdminHandler     *handler.AdminHandler
	TokenStore       tokenstore.Store
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// LMS launch surfaces and their browser follow-ups.
	lti := app.Group("/lti")
	if deps.LaunchHandler != nil {
		deps.LaunchHandler.Register(lti)
	}
	if deps.SetupHandler != nil {
		deps.SetupHandler.Register(lti)
	}
	if deps.ConsentHandler != nil {
		deps.ConsentHandler.Register(lti)
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.RegisterPage(lti)

		dashboardAPI := api.Group("/dashboard", middleware.DashboardToken(deps.TokenStore))
		deps.DashboardHandler.RegisterAPI(dashboardAPI)
	}

	if deps.AdminHandler != nil {
		jwtMiddleware := deps.JWTMiddleware
		if jwtMiddleware == nil {
			jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
		}
		admin := api.Group("/admin", jwtMiddleware)
		deps.AdminHandler.Register(admin)
	}
}
