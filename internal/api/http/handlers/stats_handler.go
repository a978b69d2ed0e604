package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/feedback-service/internal/api/dto"
	"github.com/campusvoice/feedback-service/internal/service"
)

// StatsHandler serves dashboard rollups.
type StatsHandler struct {
	dashboard *service.DashboardService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(dashboardService *service.DashboardService) *StatsHandler {
	return &StatsHandler{dashboard: dashboardService}
}

// Dashboard handles GET /api/stats/dashboard.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.dashboard.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		TotalIssues: stats.TotalIssues,
		Open:        stats.Open,
		InProgress:  stats.InProgress,
		Escalated:   stats.Escalated,
		Resolved:    stats.Resolved,
		Categories:  stats.Categories,
	}})
}
