package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/feedback-service/internal/api/dto"
	"github.com/campusvoice/feedback-service/internal/auth"
	"github.com/campusvoice/feedback-service/internal/domain"
	"github.com/campusvoice/feedback-service/internal/service"
	apperrors "github.com/campusvoice/feedback-service/pkg/util"
)

// FeedbackHandler accepts anonymous feedback submissions from students.
type FeedbackHandler struct {
	issues *service.IssueService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(issueService *service.IssueService) *FeedbackHandler {
	return &FeedbackHandler{issues: issueService}
}

// Submit handles POST /api/feedback.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Category == "" || strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("category and text required", nil)
	}

	result, err := h.issues.Submit(c.UserContext(), principal.User.ID, service.SubmitInput{
		Category:     domain.Category(strings.ToUpper(strings.TrimSpace(req.Category))),
		Text:         req.Text,
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		return err
	}

	message := "Feedback submitted successfully"
	status := http.StatusCreated
	if result.Duplicate {
		message = "Similar issue already reported"
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"data": dto.SubmitFeedbackResponse{
			IssueID:   result.IssueID,
			Duplicate: result.Duplicate,
			Message:   message,
		},
	})
}
