package dto

import (
	"time"

	"github.com/campusvoice/feedback-service/internal/domain"
)

// IssueSummary response. The anonymity token is deliberately absent: no
// listing or detail response ever carries it.
type IssueSummary struct {
	ID             string             `json:"id"`
	Category       domain.Category    `json:"category"`
	Summary        string             `json:"summary"`
	Status         domain.IssueStatus `json:"status"`
	UrgencyScore   int                `json:"urgency_score"`
	AssignedRole   domain.Role        `json:"assigned_role"`
	FrequencyCount int                `json:"frequency_count"`
	CreatedAt      time.Time          `json:"created_at"`
	SLADeadline    time.Time          `json:"sla_deadline"`
	EvidenceURLs   []string           `json:"evidence_urls"`
}

// IssueDetailResponse provides the issue with its update log.
type IssueDetailResponse struct {
	IssueSummary
	OriginalText string                `json:"original_text"`
	Updates      []IssueUpdateResponse `json:"updates"`
}

// IssueUpdateResponse represents one log entry.
type IssueUpdateResponse struct {
	ID          string                   `json:"id"`
	AuthorRole  domain.Role              `json:"author_role"`
	ContentKind domain.UpdateContentKind `json:"content_kind"`
	Body        *string                  `json:"body,omitempty"`
	ArtifactURL *string                  `json:"artifact_url,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// AddUpdateRequest payload.
type AddUpdateRequest struct {
	ContentKind string  `json:"content_kind"`
	Body        *string `json:"body"`
	ArtifactURL *string `json:"artifact_url"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	Reason string `json:"reason"`
}

// SetStatusRequest payload.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// DashboardResponse aggregates issue counts.
type DashboardResponse struct {
	TotalIssues int64                     `json:"total_issues"`
	Open        int64                     `json:"open_issues"`
	InProgress  int64                     `json:"in_progress"`
	Escalated   int64                     `json:"escalated"`
	Resolved    int64                     `json:"resolved"`
	Categories  map[domain.Category]int64 `json:"categories"`
}
