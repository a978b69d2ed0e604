package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/feedback-service/internal/service"
)

// SweepHandler exposes the SLA sweep to an external scheduler.
type SweepHandler struct {
	issues *service.IssueService
}

// NewSweepHandler constructs handler.
func NewSweepHandler(issueService *service.IssueService) *SweepHandler {
	return &SweepHandler{issues: issueService}
}

// Run handles POST /api/cron/sweep.
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	count, err := h.issues.SweepEscalations(c.UserContext(), time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"escalated_count": count}})
}
