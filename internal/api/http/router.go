package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-dashboard/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Orders   *handlers.OrdersHandler
	Settings *handlers.SettingsHandler
	Stats    *handlers.StatsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	orders := app.Group("/orders")
	orders.Post("/", cfg.Orders.CreateOrder)
	orders.Get("/", cfg.Orders.ListOrders)
	orders.Get("/board", cfg.Orders.GetBoard)
	orders.Get("/:id", cfg.Orders.GetOrder)
	orders.Post("/:id/assign", cfg.Orders.AssignOrder)
	orders.Post("/:id/tasks/:taskId/toggle", cfg.Orders.ToggleTask)
	orders.Patch("/:id/details", cfg.Orders.UpdateDetails)
	orders.Delete("/:id", cfg.Orders.DeleteOrder)

	departments := app.Group("/departments")
	departments.Get("/", cfg.Settings.ListDepartments)
	departments.Post("/", cfg.Settings.CreateDepartment)
	departments.Put("/:name", cfg.Settings.RenameDepartment)
	departments.Delete("/:name", cfg.Settings.DeleteDepartment)
	agents := app.Group("/agents")
	agents.Post("/", cfg.Settings.CreateAgent)
	agents.Delete("/:name", cfg.Settings.DeleteAgent)

	categories := app.Group("/categories")
	categories.Get("/", cfg.Settings.ListCategories)
	categories.Post("/", cfg.Settings.CreateCategory)
	categories.Delete("/:name", cfg.Settings.DeleteCategory)

	stats := app.Group("/stats")
	stats.Get("/", cfg.Stats.GetStats)
	stats.Post("/agents/recompute", cfg.Stats.RecomputeAgentCounters)
}
