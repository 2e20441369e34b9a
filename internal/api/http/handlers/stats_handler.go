package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-dashboard/internal/api/dto"
	"github.com/spec-kit/order-dashboard/internal/service"
)

// StatsHandler serves the dashboard stats snapshot.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats GET /stats.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stats.Current(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		TotalOrders:     stats.TotalOrders,
		CompletedOrders: stats.CompletedOrders,
		PendingOrders:   stats.PendingOrders,
	}})
}

// RecomputeAgentCounters POST /stats/agents/recompute rebuilds the derived
// per-agent counters from the order set.
func (h *StatsHandler) RecomputeAgentCounters(c *fiber.Ctx) error {
	if err := h.stats.RecomputeAgentCounters(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"recomputed": true}})
}
