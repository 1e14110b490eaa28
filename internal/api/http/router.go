package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leadstack/lead-service/internal/api/http/handlers"
	"github.com/leadstack/lead-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Leads          *handlers.LeadsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	users := api.Group("/users")
	if cfg.RateLimiter != nil {
		users.Post("/register", cfg.RateLimiter, cfg.Users.Register)
		users.Post("/login", cfg.RateLimiter, cfg.Users.Login)
		users.Post("/refresh", cfg.RateLimiter, cfg.Users.Refresh)
	} else {
		users.Post("/register", cfg.Users.Register)
		users.Post("/login", cfg.Users.Login)
		users.Post("/refresh", cfg.Users.Refresh)
	}
	users.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)
	users.Get("/logout", cfg.AuthMiddleware.Handle, cfg.Users.Logout)

	leads := api.Group("/leads", cfg.AuthMiddleware.Handle)
	leads.Get("/", cfg.Leads.List)
	leads.Post("/", cfg.Leads.Create)
	leads.Get("/:id", cfg.Leads.Get)
	leads.Put("/:id", cfg.Leads.Update)
	leads.Delete("/:id", cfg.Leads.Delete)
	leads.Get("/:id/activity", cfg.Leads.Activity)
}
