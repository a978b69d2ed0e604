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

// IssuesHandler exposes issue listing and lifecycle endpoints.
type IssuesHandler struct {
	issues *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{issues: issueService}
}

// ListMine handles GET /api/issues/my.
func (h *IssuesHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	issues, err := h.issues.ListIssuesFor(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// ListAll handles GET /api/issues/all.
func (h *IssuesHandler) ListAll(c *fiber.Ctx) error {
	issues, err := h.issues.ListAllIssues(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueSummaries(issues)})
}

// Get handles GET /api/issues/:id.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	issue, updates, err := h.issues.GetIssue(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueDetail(issue, updates)})
}

// AddUpdate handles POST /api/issues/:id/updates.
func (h *IssuesHandler) AddUpdate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	kind := domain.UpdateContentKind(strings.ToUpper(strings.TrimSpace(req.ContentKind)))
	switch kind {
	case domain.ContentKindText:
		if req.Body == nil || strings.TrimSpace(*req.Body) == "" {
			return apperrors.NewValidationError("body required for text updates", nil)
		}
	case domain.ContentKindArtifact:
		if req.ArtifactURL == nil || strings.TrimSpace(*req.ArtifactURL) == "" {
			return apperrors.NewValidationError("artifact_url required for artifact updates", nil)
		}
	default:
		return apperrors.NewValidationError("content_kind must be TEXT or ARTIFACT", nil)
	}

	update, err := h.issues.AddUpdate(c.UserContext(), c.Params("id"), principal.Role, kind, req.Body, req.ArtifactURL)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": updateResponse(update)})
}

// Escalate handles POST /api/issues/:id/escalate.
func (h *IssuesHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	nextRole, err := h.issues.Escalate(c.UserContext(), c.Params("id"), principal.Role, strings.TrimSpace(req.Reason))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"issue_id":      c.Params("id"),
		"assigned_role": nextRole,
	}})
}

// SetStatus handles POST /api/issues/:id/status.
func (h *IssuesHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.IssueStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	if err := h.issues.SetStatus(c.UserContext(), c.Params("id"), principal.Role, status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"issue_id": c.Params("id"),
		"status":   status,
	}})
}

func issueSummaries(issues []domain.Issue) []dto.IssueSummary {
	items := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		items = append(items, issueSummary(&issues[i]))
	}
	return items
}

func issueSummary(issue *domain.Issue) dto.IssueSummary {
	return dto.IssueSummary{
		ID:             issue.ID,
		Category:       issue.Category,
		Summary:        issue.Summary,
		Status:         issue.Status,
		UrgencyScore:   issue.UrgencyScore,
		AssignedRole:   issue.AssignedRole,
		FrequencyCount: issue.FrequencyCount,
		CreatedAt:      issue.CreatedAt,
		SLADeadline:    issue.SLADeadline,
		EvidenceURLs:   issue.EvidenceURLs,
	}
}

func issueDetail(issue *domain.Issue, updates []domain.IssueUpdate) dto.IssueDetailResponse {
	items := make([]dto.IssueUpdateResponse, 0, len(updates))
	for i := range updates {
		items = append(items, updateResponse(&updates[i]))
	}
	return dto.IssueDetailResponse{
		IssueSummary: issueSummary(issue),
		OriginalText: issue.OriginalText,
		Updates:      items,
	}
}

func updateResponse(update *domain.IssueUpdate) dto.IssueUpdateResponse {
	return dto.IssueUpdateResponse{
		ID:          update.ID,
		AuthorRole:  update.AuthorRole,
		ContentKind: update.ContentKind,
		Body:        update.Body,
		ArtifactURL: update.ArtifactURL,
		CreatedAt:   update.CreatedAt,
	}
}
