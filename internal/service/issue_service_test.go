package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/campusvoice/feedback-service/internal/anon"
	"github.com/campusvoice/feedback-service/internal/domain"
	"github.com/campusvoice/feedback-service/internal/events"
	"github.com/campusvoice/feedback-service/internal/moderation"
	"github.com/campusvoice/feedback-service/internal/repository"
	apperrors "github.com/campusvoice/feedback-service/pkg/util"
)

// fakeIssueRepo is an in-memory IssueRepository preserving insertion order,
// which the dedup scan's first-match-wins rule depends on.
type fakeIssueRepo struct {
	issues []*domain.Issue
}

var _ repository.IssueRepository = (*fakeIssueRepo)(nil)

func (r *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	copied := *issue
	r.issues = append(r.issues, &copied)
	return nil
}

func (r *fakeIssueRepo) find(id string) *domain.Issue {
	for _, issue := range r.issues {
		if issue.ID == id {
			return issue
		}
	}
	return nil
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	if issue := r.find(id); issue != nil {
		copied := *issue
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeIssueRepo) ListActiveByCategory(_ context.Context, category domain.Category, limit int) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, issue := range r.issues {
		if issue.Category != category || issue.Status == domain.IssueStatusResolved {
			continue
		}
		out = append(out, *issue)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) ListByAnonToken(_ context.Context, token string) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, issue := range r.issues {
		if issue.AnonToken == token {
			out = append(out, *issue)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) ListByAssignedRole(_ context.Context, role domain.Role) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, issue := range r.issues {
		if issue.AssignedRole == role {
			out = append(out, *issue)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) ListByStatus(_ context.Context, status domain.IssueStatus) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, issue := range r.issues {
		if issue.Status == status {
			out = append(out, *issue)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) ListAll(_ context.Context) ([]domain.Issue, error) {
	out := make([]domain.Issue, 0, len(r.issues))
	for _, issue := range r.issues {
		out = append(out, *issue)
	}
	return out, nil
}

func (r *fakeIssueRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, issue := range r.issues {
		active := issue.Status == domain.IssueStatusOpen || issue.Status == domain.IssueStatusInProgress
		if active && issue.SLADeadline.Before(now) {
			out = append(out, *issue)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) IncrementFrequency(_ context.Context, id string) error {
	issue := r.find(id)
	if issue == nil {
		return pgx.ErrNoRows
	}
	issue.FrequencyCount++
	return nil
}

func (r *fakeIssueRepo) AdvanceRole(_ context.Context, id string, role domain.Role, status domain.IssueStatus) error {
	issue := r.find(id)
	if issue == nil {
		return pgx.ErrNoRows
	}
	issue.AssignedRole = role
	issue.Status = status
	return nil
}

func (r *fakeIssueRepo) AdvanceRoleIfActive(_ context.Context, id string, role domain.Role, status domain.IssueStatus) (bool, error) {
	issue := r.find(id)
	if issue == nil {
		return false, nil
	}
	if issue.Status != domain.IssueStatusOpen && issue.Status != domain.IssueStatusInProgress {
		return false, nil
	}
	issue.AssignedRole = role
	issue.Status = status
	return true, nil
}

func (r *fakeIssueRepo) SetStatus(_ context.Context, id string, status domain.IssueStatus) error {
	issue := r.find(id)
	if issue == nil {
		return pgx.ErrNoRows
	}
	issue.Status = status
	return nil
}

func (r *fakeIssueRepo) CountByStatus(_ context.Context) (map[domain.IssueStatus]int64, error) {
	counts := make(map[domain.IssueStatus]int64)
	for _, issue := range r.issues {
		counts[issue.Status]++
	}
	return counts, nil
}

func (r *fakeIssueRepo) CountByCategory(_ context.Context) (map[domain.Category]int64, error) {
	counts := make(map[domain.Category]int64)
	for _, issue := range r.issues {
		counts[issue.Category]++
	}
	return counts, nil
}

type fakeUpdateRepo struct {
	updates []domain.IssueUpdate
}

var _ repository.IssueUpdateRepository = (*fakeUpdateRepo)(nil)

func (r *fakeUpdateRepo) Create(_ context.Context, update *domain.IssueUpdate) error {
	r.updates = append(r.updates, *update)
	return nil
}

func (r *fakeUpdateRepo) ListByIssue(_ context.Context, issueID string) ([]domain.IssueUpdate, error) {
	var out []domain.IssueUpdate
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].IssueID == issueID {
			out = append(out, r.updates[i])
		}
	}
	return out, nil
}

func (r *fakeUpdateRepo) forIssue(issueID string) []domain.IssueUpdate {
	var out []domain.IssueUpdate
	for _, u := range r.updates {
		if u.IssueID == issueID {
			out = append(out, u)
		}
	}
	return out
}

// stubGateway returns a scripted verdict or error.
type stubGateway struct {
	verdict *moderation.Verdict
	err     error
}

func (g *stubGateway) Moderate(context.Context, string) (*moderation.Verdict, error) {
	if g.err != nil {
		return nil, g.err
	}
	v := *g.verdict
	return &v, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

var testClock = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type engineFixture struct {
	svc        *IssueService
	issues     *fakeIssueRepo
	updates    *fakeUpdateRepo
	gateway    *stubGateway
	dispatcher *recordingDispatcher
}

func newEngine(t *testing.T, gateway *stubGateway) *engineFixture {
	t.Helper()
	if gateway == nil {
		gateway = &stubGateway{verdict: &moderation.Verdict{
			IsAppropriate: true,
			RewrittenText: "rewritten",
			UrgencyScore:  40,
			Summary:       "wifi down in hostel block b",
		}}
	}
	issues := &fakeIssueRepo{}
	updates := &fakeUpdateRepo{}
	dispatcher := &recordingDispatcher{}
	svc := NewIssueService(IssueDependencies{
		IssueRepo:  issues,
		UpdateRepo: updates,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Clock:      func() time.Time { return testClock },
	})
	return &engineFixture{svc: svc, issues: issues, updates: updates, gateway: gateway, dispatcher: dispatcher}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return de.Code
}

func TestSubmitCreatesIssue(t *testing.T) {
	fx := newEngine(t, nil)

	res, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category:     domain.CategoryHostel,
		Text:         "the wifi in hostel block b has been down for three days",
		EvidenceURLs: []string{"https://example.com/speedtest.png"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Duplicate {
		t.Fatal("first submission must not be a duplicate")
	}

	issue := fx.issues.find(res.IssueID)
	if issue == nil {
		t.Fatal("issue not persisted")
	}
	if issue.Status != domain.IssueStatusOpen {
		t.Errorf("status = %s, want OPEN", issue.Status)
	}
	if issue.AssignedRole != domain.RoleWarden {
		t.Errorf("assigned role = %s, want WARDEN for hostel issues", issue.AssignedRole)
	}
	if issue.FrequencyCount != 1 {
		t.Errorf("frequency = %d, want 1", issue.FrequencyCount)
	}
	if issue.UrgencyScore != 40 {
		t.Errorf("urgency = %d, want 40", issue.UrgencyScore)
	}
	if want := testClock.Add(48 * time.Hour); !issue.SLADeadline.Equal(want) {
		t.Errorf("sla deadline = %v, want %v", issue.SLADeadline, want)
	}
	if want := anon.Token("student-1", testClock); issue.AnonToken != want {
		t.Errorf("anon token = %q, want %q", issue.AnonToken, want)
	}
	if len(fx.dispatcher.published) != 1 || fx.dispatcher.published[0].Type != events.EventIssueCreated {
		t.Errorf("expected one issue_created event, got %+v", fx.dispatcher.published)
	}
}

func TestSubmitWithoutEvidenceStoresEmptySlice(t *testing.T) {
	// Most submissions carry no evidence_urls field, which decodes to a
	// nil slice. The stored column is NOT NULL, so nil must be normalized
	// to an empty slice before it reaches the insert.
	fx := newEngine(t, nil)

	res, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryHostel,
		Text:     "wifi down in block b",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	issue := fx.issues.find(res.IssueID)
	if issue.EvidenceURLs == nil {
		t.Fatal("evidence urls must be an empty slice, not nil")
	}
	if len(issue.EvidenceURLs) != 0 {
		t.Errorf("evidence urls = %v, want empty", issue.EvidenceURLs)
	}
}

func TestSubmitRoutesByCategoryChain(t *testing.T) {
	tests := []struct {
		category domain.Category
		want     domain.Role
	}{
		{domain.CategoryAcademics, domain.RoleStaff},
		{domain.CategoryHostel, domain.RoleWarden},
		{domain.CategoryFood, domain.RoleStaff},
		{domain.Category("UNKNOWN"), domain.RoleStaff},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			fx := newEngine(t, nil)
			res, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
				Category: tt.category,
				Text:     "something needs attention",
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if got := fx.issues.find(res.IssueID).AssignedRole; got != tt.want {
				t.Errorf("assigned role = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSubmitDeduplicatesBySummarySubstring(t *testing.T) {
	fx := newEngine(t, &stubGateway{verdict: &moderation.Verdict{
		IsAppropriate: true,
		UrgencyScore:  60,
		Summary:       "Projector broken in lecture hall 5",
	}})

	first, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryInfrastructure,
		Text:     "projector in hall 5 does not turn on",
	})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	// Second verdict's summary is a case-insensitive substring of the first.
	fx.gateway.verdict.Summary = "projector BROKEN in lecture hall 5"
	second, err := fx.svc.Submit(context.Background(), "student-2", SubmitInput{
		Category: domain.CategoryInfrastructure,
		Text:     "hall 5 projector still broken",
	})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if !second.Duplicate {
		t.Fatal("expected duplicate detection")
	}
	if second.IssueID != first.IssueID {
		t.Fatalf("duplicate resolved to %s, want %s", second.IssueID, first.IssueID)
	}
	if got := fx.issues.find(first.IssueID).FrequencyCount; got != 2 {
		t.Errorf("frequency = %d, want 2", got)
	}
	if len(fx.issues.issues) != 1 {
		t.Errorf("issue count = %d, want 1", len(fx.issues.issues))
	}
	last := fx.dispatcher.published[len(fx.dispatcher.published)-1]
	if last.Type != events.EventIssueDuplicate {
		t.Errorf("last event = %s, want issue_duplicate", last.Type)
	}
}

func TestSubmitDedupIsLiteralNotSemantic(t *testing.T) {
	// Reordered words defeat the substring check, so two issues result.
	fx := newEngine(t, &stubGateway{verdict: &moderation.Verdict{
		IsAppropriate: true,
		UrgencyScore:  60,
		Summary:       "projector broken in room 5",
	}})

	if _, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryInfrastructure,
		Text:     "projector broken in room 5",
	}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	fx.gateway.verdict.Summary = "the projector in room 5 is broken"
	res, err := fx.svc.Submit(context.Background(), "student-2", SubmitInput{
		Category: domain.CategoryInfrastructure,
		Text:     "the projector in room 5 is broken",
	})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if res.Duplicate {
		t.Fatal("reordered summary must not match as duplicate")
	}
	if len(fx.issues.issues) != 2 {
		t.Errorf("issue count = %d, want 2", len(fx.issues.issues))
	}
}

func TestSubmitDedupIgnoresResolvedIssues(t *testing.T) {
	fx := newEngine(t, &stubGateway{verdict: &moderation.Verdict{
		IsAppropriate: true,
		UrgencyScore:  30,
		Summary:       "leaking tap in mess",
	}})

	first, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryFood,
		Text:     "tap leaking near the mess entrance",
	})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	fx.issues.find(first.IssueID).Status = domain.IssueStatusResolved

	second, err := fx.svc.Submit(context.Background(), "student-2", SubmitInput{
		Category: domain.CategoryFood,
		Text:     "tap leaking again",
	})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.Duplicate {
		t.Fatal("resolved issues must not absorb new reports")
	}
	if second.IssueID == first.IssueID {
		t.Fatal("expected a fresh issue id")
	}
}

func TestSubmitRejectsInappropriateContent(t *testing.T) {
	fx := newEngine(t, &stubGateway{verdict: &moderation.Verdict{
		IsAppropriate: false,
		UrgencyScore:  0,
		Summary:       "abusive text",
	}})

	_, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryOther,
		Text:     "abusive rant",
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	if code := domainCode(t, err); code != "CONTENT_REJECTED" {
		t.Errorf("code = %s, want CONTENT_REJECTED", code)
	}
	if len(fx.issues.issues) != 0 {
		t.Error("rejected submission must not persist an issue")
	}
}

func TestSubmitGatewayFailureFallsBackPermissively(t *testing.T) {
	fx := newEngine(t, &stubGateway{err: moderation.ErrUnavailable})

	longText := strings.Repeat("x", 150)
	res, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryOther,
		Text:     longText,
	})
	if err != nil {
		t.Fatalf("Submit with failing gateway: %v", err)
	}

	issue := fx.issues.find(res.IssueID)
	if issue.UrgencyScore != 50 {
		t.Errorf("fallback urgency = %d, want 50", issue.UrgencyScore)
	}
	if issue.Summary != longText[:100] {
		t.Errorf("fallback summary = %q, want first 100 chars of text", issue.Summary)
	}
	if issue.OriginalText != longText {
		t.Error("original text must be stored unmodified")
	}
}

func TestAddUpdate(t *testing.T) {
	fx := newEngine(t, nil)
	res, err := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryHostel,
		Text:     "wifi down",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	body := "technician dispatched"

	t.Run("staff update moves issue to in progress", func(t *testing.T) {
		update, err := fx.svc.AddUpdate(context.Background(), res.IssueID, domain.RoleWarden, domain.ContentKindText, &body, nil)
		if err != nil {
			t.Fatalf("AddUpdate: %v", err)
		}
		if update.AuthorRole != domain.RoleWarden {
			t.Errorf("author role = %s, want WARDEN", update.AuthorRole)
		}
		if got := fx.issues.find(res.IssueID).Status; got != domain.IssueStatusInProgress {
			t.Errorf("status = %s, want IN_PROGRESS", got)
		}
	})

	t.Run("update reopens resolved issue", func(t *testing.T) {
		fx.issues.find(res.IssueID).Status = domain.IssueStatusResolved
		if _, err := fx.svc.AddUpdate(context.Background(), res.IssueID, domain.RoleWarden, domain.ContentKindText, &body, nil); err != nil {
			t.Fatalf("AddUpdate: %v", err)
		}
		if got := fx.issues.find(res.IssueID).Status; got != domain.IssueStatusInProgress {
			t.Errorf("status = %s, want IN_PROGRESS after update on resolved issue", got)
		}
	})

	t.Run("students cannot update", func(t *testing.T) {
		_, err := fx.svc.AddUpdate(context.Background(), res.IssueID, domain.RoleStudent, domain.ContentKindText, &body, nil)
		if code := domainCode(t, err); code != "FORBIDDEN" {
			t.Errorf("code = %s, want FORBIDDEN", code)
		}
	})

	t.Run("unknown issue", func(t *testing.T) {
		_, err := fx.svc.AddUpdate(context.Background(), "missing", domain.RoleWarden, domain.ContentKindText, &body, nil)
		if code := domainCode(t, err); code != "NOT_FOUND" {
			t.Errorf("code = %s, want NOT_FOUND", code)
		}
	})
}

func TestEscalate(t *testing.T) {
	t.Run("advances one level and logs", func(t *testing.T) {
		fx := newEngine(t, nil)
		res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
			Category: domain.CategoryHostel,
			Text:     "wifi down",
		})

		next, err := fx.svc.Escalate(context.Background(), res.IssueID, domain.RoleWarden, "no response for a week")
		if err != nil {
			t.Fatalf("Escalate: %v", err)
		}
		if next != domain.RoleAdmin {
			t.Errorf("next role = %s, want ADMIN", next)
		}

		issue := fx.issues.find(res.IssueID)
		if issue.AssignedRole != domain.RoleAdmin {
			t.Errorf("assigned role = %s, want ADMIN", issue.AssignedRole)
		}
		if issue.Status != domain.IssueStatusEscalated {
			t.Errorf("status = %s, want ESCALATED", issue.Status)
		}

		logged := fx.updates.forIssue(res.IssueID)
		if len(logged) != 1 {
			t.Fatalf("update count = %d, want 1", len(logged))
		}
		want := "Escalated to ADMIN. Reason: no response for a week"
		if logged[0].Body == nil || *logged[0].Body != want {
			t.Errorf("log body = %v, want %q", logged[0].Body, want)
		}
	})

	t.Run("empty reason gets a default", func(t *testing.T) {
		fx := newEngine(t, nil)
		res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
			Category: domain.CategoryHostel,
			Text:     "wifi down",
		})
		if _, err := fx.svc.Escalate(context.Background(), res.IssueID, domain.RoleWarden, ""); err != nil {
			t.Fatalf("Escalate: %v", err)
		}
		logged := fx.updates.forIssue(res.IssueID)
		want := "Escalated to ADMIN. Reason: Manual escalation"
		if logged[0].Body == nil || *logged[0].Body != want {
			t.Errorf("log body = %v, want %q", logged[0].Body, want)
		}
	})

	t.Run("ceiling leaves issue untouched", func(t *testing.T) {
		fx := newEngine(t, nil)
		res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
			Category: domain.CategoryHostel,
			Text:     "wifi down",
		})
		issue := fx.issues.find(res.IssueID)
		issue.AssignedRole = domain.RolePrincipal
		issue.Status = domain.IssueStatusEscalated

		_, err := fx.svc.Escalate(context.Background(), res.IssueID, domain.RolePrincipal, "push higher")
		if code := domainCode(t, err); code != "ESCALATION_CEILING" {
			t.Fatalf("code = %s, want ESCALATION_CEILING", code)
		}
		if issue.AssignedRole != domain.RolePrincipal {
			t.Error("assigned role must not change at the ceiling")
		}
		if got := len(fx.updates.forIssue(res.IssueID)); got != 0 {
			t.Errorf("update count = %d, want 0", got)
		}
	})

	t.Run("students cannot escalate", func(t *testing.T) {
		fx := newEngine(t, nil)
		_, err := fx.svc.Escalate(context.Background(), "any", domain.RoleStudent, "")
		if code := domainCode(t, err); code != "FORBIDDEN" {
			t.Errorf("code = %s, want FORBIDDEN", code)
		}
	})
}

func TestSetStatus(t *testing.T) {
	fx := newEngine(t, nil)
	res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryAcademics,
		Text:     "syllabus not covered",
	})

	tests := []struct {
		name     string
		issueID  string
		role     domain.Role
		status   domain.IssueStatus
		wantCode string
	}{
		{"staff resolves", res.IssueID, domain.RoleStaff, domain.IssueStatusResolved, ""},
		{"resolved back to open", res.IssueID, domain.RoleAdmin, domain.IssueStatusOpen, ""},
		{"student forbidden", res.IssueID, domain.RoleStudent, domain.IssueStatusResolved, "FORBIDDEN"},
		{"invalid status", res.IssueID, domain.RoleStaff, domain.IssueStatus("BOGUS"), "VALIDATION_FAILED"},
		{"missing issue", "missing", domain.RoleStaff, domain.IssueStatusResolved, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.svc.SetStatus(context.Background(), tt.issueID, tt.role, tt.status)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("SetStatus: %v", err)
				}
				if got := fx.issues.find(tt.issueID).Status; got != tt.status {
					t.Errorf("status = %s, want %s", got, tt.status)
				}
				return
			}
			if code := domainCode(t, err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestSweepEscalations(t *testing.T) {
	fx := newEngine(t, nil)
	res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryHostel,
		Text:     "wifi down",
	})

	t.Run("before deadline nothing happens", func(t *testing.T) {
		count, err := fx.svc.SweepEscalations(context.Background(), testClock.Add(time.Hour))
		if err != nil {
			t.Fatalf("SweepEscalations: %v", err)
		}
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})

	afterDeadline := testClock.Add(49 * time.Hour)

	t.Run("overdue issue auto-escalates with system log", func(t *testing.T) {
		count, err := fx.svc.SweepEscalations(context.Background(), afterDeadline)
		if err != nil {
			t.Fatalf("SweepEscalations: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}

		issue := fx.issues.find(res.IssueID)
		if issue.AssignedRole != domain.RoleAdmin {
			t.Errorf("assigned role = %s, want ADMIN", issue.AssignedRole)
		}
		if issue.Status != domain.IssueStatusEscalated {
			t.Errorf("status = %s, want ESCALATED", issue.Status)
		}

		logged := fx.updates.forIssue(res.IssueID)
		if len(logged) != 1 {
			t.Fatalf("update count = %d, want 1", len(logged))
		}
		if logged[0].AuthorRole != domain.RoleSystem {
			t.Errorf("author role = %s, want SYSTEM", logged[0].AuthorRole)
		}
		want := "Auto-escalated to ADMIN due to SLA breach"
		if logged[0].Body == nil || *logged[0].Body != want {
			t.Errorf("log body = %v, want %q", logged[0].Body, want)
		}
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		count, err := fx.svc.SweepEscalations(context.Background(), afterDeadline)
		if err != nil {
			t.Fatalf("SweepEscalations: %v", err)
		}
		if count != 0 {
			t.Errorf("count = %d, want 0 on repeat sweep", count)
		}
		if got := len(fx.updates.forIssue(res.IssueID)); got != 1 {
			t.Errorf("update count = %d, want 1", got)
		}
	})

	t.Run("issues at chain ceiling are skipped", func(t *testing.T) {
		issue := fx.issues.find(res.IssueID)
		issue.Status = domain.IssueStatusOpen
		issue.AssignedRole = domain.RolePrincipal

		count, err := fx.svc.SweepEscalations(context.Background(), afterDeadline)
		if err != nil {
			t.Fatalf("SweepEscalations: %v", err)
		}
		if count != 0 {
			t.Errorf("count = %d, want 0 at ceiling", count)
		}
		if issue.AssignedRole != domain.RolePrincipal {
			t.Error("assigned role must not change at the ceiling")
		}
	})
}

func TestListIssuesFor(t *testing.T) {
	fx := newEngine(t, nil)

	submit := func(submitter, summary string, category domain.Category) string {
		t.Helper()
		fx.gateway.verdict.Summary = summary
		res, err := fx.svc.Submit(context.Background(), submitter, SubmitInput{
			Category: category,
			Text:     summary,
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		return res.IssueID
	}

	mine := submit("student-1", "library ac not working", domain.CategoryInfrastructure)
	theirs := submit("student-2", "hostel food quality dropped", domain.CategoryFood)
	escalated := submit("student-2", "ragging complaint ignored", domain.CategoryHostel)
	if _, err := fx.svc.Escalate(context.Background(), escalated, domain.RoleWarden, ""); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if _, err := fx.svc.Escalate(context.Background(), escalated, domain.RoleAdmin, ""); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	t.Run("student sees only own submissions", func(t *testing.T) {
		got, err := fx.svc.ListIssuesFor(context.Background(), &domain.User{ID: "student-1", Role: domain.RoleStudent})
		if err != nil {
			t.Fatalf("ListIssuesFor: %v", err)
		}
		if len(got) != 1 || got[0].ID != mine {
			t.Errorf("student listing = %+v, want only %s", got, mine)
		}
	})

	t.Run("principal sees escalated issues", func(t *testing.T) {
		got, err := fx.svc.ListIssuesFor(context.Background(), &domain.User{ID: "principal-1", Role: domain.RolePrincipal})
		if err != nil {
			t.Fatalf("ListIssuesFor: %v", err)
		}
		if len(got) != 1 || got[0].ID != escalated {
			t.Errorf("principal listing = %+v, want only %s", got, escalated)
		}
	})

	t.Run("staff see issues assigned to their role", func(t *testing.T) {
		got, err := fx.svc.ListIssuesFor(context.Background(), &domain.User{ID: "staff-1", Role: domain.RoleStaff})
		if err != nil {
			t.Fatalf("ListIssuesFor: %v", err)
		}
		ids := make(map[string]bool, len(got))
		for _, issue := range got {
			ids[issue.ID] = true
		}
		if len(got) != 2 || !ids[mine] || !ids[theirs] {
			t.Errorf("staff listing = %+v, want %s and %s", got, mine, theirs)
		}
	})
}

func TestGetIssue(t *testing.T) {
	fx := newEngine(t, nil)
	res, _ := fx.svc.Submit(context.Background(), "student-1", SubmitInput{
		Category: domain.CategoryHostel,
		Text:     "wifi down",
	})
	body := "looking into it"
	if _, err := fx.svc.AddUpdate(context.Background(), res.IssueID, domain.RoleWarden, domain.ContentKindText, &body, nil); err != nil {
		t.Fatalf("AddUpdate: %v", err)
	}

	issue, updates, err := fx.svc.GetIssue(context.Background(), res.IssueID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue.ID != res.IssueID {
		t.Errorf("issue id = %s, want %s", issue.ID, res.IssueID)
	}
	if len(updates) != 1 {
		t.Errorf("update count = %d, want 1", len(updates))
	}

	if _, _, err := fx.svc.GetIssue(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found")
	} else if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestStringPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short passes through", in: "all good", max: 120, want: "all good"},
		{name: "ascii truncation", in: strings.Repeat("a", 10), max: 8, want: "aaaaa..."},
		{name: "multi-byte truncation counts runes", in: strings.Repeat("é", 10), max: 8, want: "ééééé..."},
		{name: "tiny max", in: "abcdef", max: 2, want: "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringPreview(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("stringPreview(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("preview %q is not valid UTF-8", got)
			}
		})
	}
}
