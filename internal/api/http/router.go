package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-hub/internal/api/http/handlers"
	"github.com/spec-kit/incident-hub/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
	WebhookGuard   fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")

	guard := cfg.WebhookGuard
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}
	webhooks := api.Group("/webhooks")
	webhooks.Get("", cfg.Webhooks.Adapters)
	webhooks.Post("/:adapter", guard, cfg.Webhooks.Receive)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}
	writer := auth.RequireTicketWriter()

	tickets := api.Group("/tickets", authenticated...)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/open", cfg.Tickets.ListOpen)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("", writer, cfg.Tickets.CreateTicket)
	tickets.Put("/:id", writer, cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/receive", writer, cfg.Tickets.Receive)
	tickets.Post("/:id/assign", writer, cfg.Tickets.Assign)
	tickets.Post("/:id/claim", writer, cfg.Tickets.Claim)
	tickets.Post("/:id/transition", writer, cfg.Tickets.Transition)
	tickets.Post("/:id/resolve", writer, cfg.Tickets.Resolve)
	tickets.Post("/:id/comments", writer, cfg.Tickets.AddComment)

	notifications := api.Group("/notifications", authenticated...)
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Get("/settings", cfg.Notifications.Settings)
	notifications.Put("/settings", cfg.Notifications.UpdateSetting)
	notifications.Post("/read-all", cfg.Notifications.MarkAllAsRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkAsRead)
	notifications.Post("/:id/retry", writer, cfg.Notifications.Retry)
}
