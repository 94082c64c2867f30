package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/astro-gateway/internal/api/http/handlers"
	"github.com/spec-kit/astro-gateway/internal/gate"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Session  *handlers.SessionHandler
	Cart     *handlers.CartHandler
	Realtime *handlers.RealtimeHandler
	Pages    *handlers.PageHandler
	Gate     *gate.Gate
}

// RegisterRoutes wires HTTP routes. Anything not served by the gateway
// itself goes through the route gate and on to the page renderer.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	sessionGroup := api.Group("/session")
	sessionGroup.Get("/", cfg.Session.State)
	sessionGroup.Post("/refresh", cfg.Session.Refresh)
	sessionGroup.Post("/login", cfg.Session.Login)
	sessionGroup.Post("/logout", cfg.Session.Logout)
	sessionGroup.Get("/events", cfg.Session.Events)
	sessionGroup.Get("/history", cfg.Session.History)

	cart := api.Group("/cart")
	cart.Get("/", cfg.Cart.Items)
	cart.Get("/count", cfg.Cart.Count)
	cart.Post("/items", cfg.Cart.Add)

	rt := api.Group("/realtime")
	rt.Get("/", cfg.Realtime.Status)
	rt.Post("/connect", cfg.Realtime.Connect)
	rt.Delete("/connect", cfg.Realtime.Disconnect)

	api.All("/*", func(*fiber.Ctx) error { return fiber.ErrNotFound })

	app.Use(cfg.Gate.Handle)
	app.Use(cfg.Pages.Forward)
}
