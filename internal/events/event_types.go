package events

import (
	"time"

	"github.com/campusvoice/feedback-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueDuplicate     EventType = "issue_duplicate"
	EventIssueUpdateAdded   EventType = "issue_update_added"
	EventIssueEscalated     EventType = "issue_escalated"
	EventIssueStatusChanged EventType = "issue_status_changed"
)

// Event represents a domain event emitted by the lifecycle engine. The
// acting role is recorded instead of any identity; submissions stay
// anonymous end to end.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Category     domain.Category `json:"category"`
	AssignedRole domain.Role     `json:"assigned_role"`
	UrgencyScore int             `json:"urgency_score"`
	Summary      string          `json:"summary"`
}

// IssueDuplicatePayload payload.
type IssueDuplicatePayload struct {
	Category       domain.Category `json:"category"`
	FrequencyCount int             `json:"frequency_count"`
}

// IssueUpdateAddedPayload payload.
type IssueUpdateAddedPayload struct {
	UpdateID    string                   `json:"update_id"`
	ContentKind domain.UpdateContentKind `json:"content_kind"`
	BodyPreview string                   `json:"body_preview"`
}

// IssueEscalatedPayload payload.
type IssueEscalatedPayload struct {
	FromRole  domain.Role `json:"from_role"`
	ToRole    domain.Role `json:"to_role"`
	Automatic bool        `json:"automatic"`
	Reason    string      `json:"reason,omitempty"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
}
