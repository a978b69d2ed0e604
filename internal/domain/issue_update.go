package domain

import "time"

// UpdateContentKind differentiates free-text notes from artifact references.
type UpdateContentKind string

const (
	ContentKindText     UpdateContentKind = "TEXT"
	ContentKindArtifact UpdateContentKind = "ARTIFACT"
)

// IssueUpdate is an append-only log entry attached to an issue. Entries are
// never mutated after creation and are displayed newest first.
type IssueUpdate struct {
	ID          string
	IssueID     string
	AuthorRole  Role
	ContentKind UpdateContentKind
	Body        *string
	ArtifactURL *string
	CreatedAt   time.Time
}
