package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campusvoice/feedback-service/internal/anon"
	"github.com/campusvoice/feedback-service/internal/domain"
	"github.com/campusvoice/feedback-service/internal/escalation"
	"github.com/campusvoice/feedback-service/internal/events"
	"github.com/campusvoice/feedback-service/internal/moderation"
	"github.com/campusvoice/feedback-service/internal/repository"
	apperrors "github.com/campusvoice/feedback-service/pkg/util"
)

const defaultEscalationReason = "Manual escalation"

// IssueService owns the issue lifecycle: moderated submission with
// dedup, the update log, manual and automatic escalation, and status
// transitions. It holds no mutable state of its own; every operation is a
// read-then-write sequence against the repositories.
type IssueService struct {
	issues     repository.IssueRepository
	updates    repository.IssueUpdateRepository
	gateway    moderation.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	slaGrace   time.Duration
	dedupLimit int
}

// IssueDependencies bundles collaborators for the lifecycle engine.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	UpdateRepo repository.IssueUpdateRepository
	Gateway    moderation.Gateway
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
	SLAGrace   time.Duration
	DedupLimit int
}

// SubmitInput describes a feedback submission.
type SubmitInput struct {
	Category     domain.Category
	Text         string
	EvidenceURLs []string
}

// SubmitResult reports whether the submission created a new issue or
// bumped an existing near-duplicate.
type SubmitResult struct {
	IssueID   string
	Duplicate bool
}

// NewIssueService constructs the engine.
func NewIssueService(deps IssueDependencies) *IssueService {
	svc := &IssueService{
		issues:     deps.IssueRepo,
		updates:    deps.UpdateRepo,
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
		slaGrace:   deps.SLAGrace,
		dedupLimit: deps.DedupLimit,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.slaGrace <= 0 {
		svc.slaGrace = 48 * time.Hour
	}
	if svc.dedupLimit <= 0 {
		svc.dedupLimit = 100
	}
	return svc
}

// Submit moderates the feedback text and either bumps a near-duplicate
// issue or creates a new one. A failing moderation gateway degrades to a
// permissive verdict rather than blocking submission; the only content
// gate is an explicit inappropriate verdict.
func (s *IssueService) Submit(ctx context.Context, submitterID string, input SubmitInput) (*SubmitResult, error) {
	verdict, err := s.gateway.Moderate(ctx, input.Text)
	if err != nil {
		s.logger.Warn("moderation gateway failed; applying permissive fallback", zap.Error(err))
		verdict = moderation.Fallback(input.Text)
	}
	if !verdict.IsAppropriate {
		return nil, apperrors.NewContentRejected("feedback contains inappropriate content")
	}

	existing, err := s.issues.ListActiveByCategory(ctx, input.Category, s.dedupLimit)
	if err != nil {
		return nil, err
	}
	newSummary := strings.ToLower(verdict.Summary)
	for i := range existing {
		if !strings.Contains(strings.ToLower(existing[i].Summary), newSummary) {
			continue
		}
		if err := s.issues.IncrementFrequency(ctx, existing[i].ID); err != nil {
			return nil, err
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventIssueDuplicate,
			IssueID:   existing[i].ID,
			ActorRole: domain.RoleStudent,
			Payload: events.IssueDuplicatePayload{
				Category:       input.Category,
				FrequencyCount: existing[i].FrequencyCount + 1,
			},
		})
		return &SubmitResult{IssueID: existing[i].ID, Duplicate: true}, nil
	}

	// A nil slice would reach the store as SQL NULL; the column is NOT NULL.
	evidence := input.EvidenceURLs
	if evidence == nil {
		evidence = []string{}
	}

	chain := escalation.Chain(input.Category)
	now := s.now()
	issue := &domain.Issue{
		ID:             uuid.NewString(),
		Category:       input.Category,
		Summary:        verdict.Summary,
		OriginalText:   input.Text,
		Status:         domain.IssueStatusOpen,
		UrgencyScore:   verdict.UrgencyScore,
		AssignedRole:   chain[0],
		FrequencyCount: 1,
		CreatedAt:      now,
		SLADeadline:    now.Add(s.slaGrace),
		AnonToken:      anon.Token(submitterID, now),
		EvidenceURLs:   evidence,
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueCreated,
		IssueID:   issue.ID,
		ActorRole: domain.RoleStudent,
		Payload: events.IssueCreatedPayload{
			Category:     issue.Category,
			AssignedRole: issue.AssignedRole,
			UrgencyScore: issue.UrgencyScore,
			Summary:      issue.Summary,
		},
	})
	return &SubmitResult{IssueID: issue.ID}, nil
}

// AddUpdate appends a log entry to an issue and moves it to In Progress.
// The status set is unconditional: a Resolved issue touched by an update
// returns to In Progress (kept from the reference workflow).
func (s *IssueService) AddUpdate(ctx context.Context, issueID string, role domain.Role, kind domain.UpdateContentKind, body, artifactURL *string) (*domain.IssueUpdate, error) {
	if !role.IsStaff() {
		return nil, apperrors.NewForbidden("students cannot update issues")
	}
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		return nil, issueNotFound(err, issueID)
	}

	update := &domain.IssueUpdate{
		ID:          uuid.NewString(),
		IssueID:     issueID,
		AuthorRole:  role,
		ContentKind: kind,
		Body:        body,
		ArtifactURL: artifactURL,
		CreatedAt:   s.now(),
	}
	if err := s.updates.Create(ctx, update); err != nil {
		return nil, err
	}
	if err := s.issues.SetStatus(ctx, issueID, domain.IssueStatusInProgress); err != nil {
		return nil, err
	}

	preview := ""
	if body != nil {
		preview = stringPreview(*body, 120)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueUpdateAdded,
		IssueID:   issueID,
		ActorRole: role,
		Payload: events.IssueUpdateAddedPayload{
			UpdateID:    update.ID,
			ContentKind: kind,
			BodyPreview: preview,
		},
	})
	return update, nil
}

// Escalate advances the issue exactly one position along its category
// chain and marks it Escalated. Role advancement is monotonic; once at
// the chain's last role the issue can go no further.
func (s *IssueService) Escalate(ctx context.Context, issueID string, actingRole domain.Role, reason string) (domain.Role, error) {
	if !actingRole.IsStaff() {
		return "", apperrors.NewForbidden("students cannot escalate issues")
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return "", issueNotFound(err, issueID)
	}

	chain := escalation.Chain(issue.Category)
	nextRole, ok := escalation.Next(chain, issue.AssignedRole)
	if !ok {
		return "", apperrors.NewAtCeiling("issue is already at the highest escalation level")
	}

	if err := s.issues.AdvanceRole(ctx, issueID, nextRole, domain.IssueStatusEscalated); err != nil {
		return "", err
	}

	if reason == "" {
		reason = defaultEscalationReason
	}
	body := fmt.Sprintf("Escalated to %s. Reason: %s", nextRole, reason)
	if err := s.appendLogUpdate(ctx, issueID, actingRole, body); err != nil {
		return "", err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueEscalated,
		IssueID:   issueID,
		ActorRole: actingRole,
		Payload: events.IssueEscalatedPayload{
			FromRole: issue.AssignedRole,
			ToRole:   nextRole,
			Reason:   reason,
		},
	})
	return nextRole, nil
}

// SetStatus sets an issue to any enumerated status. There is no
// transition matrix: any status is reachable from any status, and the
// assigned role is never touched by this path.
func (s *IssueService) SetStatus(ctx context.Context, issueID string, actingRole domain.Role, status domain.IssueStatus) error {
	if !actingRole.IsStaff() {
		return apperrors.NewForbidden("only staff can change issue status")
	}
	if !domain.ValidStatus(status) {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return issueNotFound(err, issueID)
	}
	if err := s.issues.SetStatus(ctx, issueID, status); err != nil {
		return issueNotFound(err, issueID)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueStatusChanged,
		IssueID:   issueID,
		ActorRole: actingRole,
		Payload: events.IssueStatusChangedPayload{
			OldStatus: issue.Status,
			NewStatus: status,
		},
	})
	return nil
}

// SweepEscalations auto-escalates every Open or In Progress issue whose
// SLA deadline passed before now. Issues already at their chain ceiling
// are skipped. The conditional role advance makes overlapping sweeps
// safe: an issue flipped to Escalated by one sweep is invisible to the
// next selection and un-advanceable by a concurrent one.
func (s *IssueService) SweepEscalations(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.issues.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range overdue {
		issue := &overdue[i]
		chain := escalation.Chain(issue.Category)
		nextRole, ok := escalation.Next(chain, issue.AssignedRole)
		if !ok {
			continue
		}

		advanced, err := s.issues.AdvanceRoleIfActive(ctx, issue.ID, nextRole, domain.IssueStatusEscalated)
		if err != nil {
			return count, err
		}
		if !advanced {
			continue
		}

		body := fmt.Sprintf("Auto-escalated to %s due to SLA breach", nextRole)
		update := &domain.IssueUpdate{
			ID:          uuid.NewString(),
			IssueID:     issue.ID,
			AuthorRole:  domain.RoleSystem,
			ContentKind: domain.ContentKindText,
			Body:        &body,
			CreatedAt:   now,
		}
		if err := s.updates.Create(ctx, update); err != nil {
			return count, err
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventIssueEscalated,
			IssueID:   issue.ID,
			ActorRole: domain.RoleSystem,
			Payload: events.IssueEscalatedPayload{
				FromRole:  issue.AssignedRole,
				ToRole:    nextRole,
				Automatic: true,
				Reason:    "SLA breach",
			},
		})
		s.logger.Info("auto-escalated overdue issue",
			zap.String("issue_id", issue.ID),
			zap.String("to_role", string(nextRole)))
		count++
	}
	return count, nil
}

// ListIssuesFor returns the issues visible to a caller: students see the
// issues tagged with their current-day anonymity token, the Principal
// sees everything escalated, and other staff see issues assigned to
// their role.
func (s *IssueService) ListIssuesFor(ctx context.Context, user *domain.User) ([]domain.Issue, error) {
	switch {
	case user.Role == domain.RoleStudent:
		return s.issues.ListByAnonToken(ctx, anon.Token(user.ID, s.now()))
	case user.Role == domain.RolePrincipal:
		return s.issues.ListByStatus(ctx, domain.IssueStatusEscalated)
	default:
		return s.issues.ListByAssignedRole(ctx, user.Role)
	}
}

// ListAllIssues returns every issue. Route guards restrict this to
// Admin and Principal.
func (s *IssueService) ListAllIssues(ctx context.Context) ([]domain.Issue, error) {
	return s.issues.ListAll(ctx)
}

// GetIssue fetches an issue with its update log, newest first.
func (s *IssueService) GetIssue(ctx context.Context, issueID string) (*domain.Issue, []domain.IssueUpdate, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, nil, issueNotFound(err, issueID)
	}
	updates, err := s.updates.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	return issue, updates, nil
}

func (s *IssueService) appendLogUpdate(ctx context.Context, issueID string, role domain.Role, body string) error {
	update := &domain.IssueUpdate{
		ID:          uuid.NewString(),
		IssueID:     issueID,
		AuthorRole:  role,
		ContentKind: domain.ContentKindText,
		Body:        &body,
		CreatedAt:   s.now(),
	}
	return s.updates.Create(ctx, update)
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func issueNotFound(err error, issueID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
	}
	return err
}

// stringPreview shortens body to at most max runes, never cutting inside
// a multi-byte character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
