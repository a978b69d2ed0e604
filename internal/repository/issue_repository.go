package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusvoice/feedback-service/internal/domain"
)

// IssueRepository encapsulates issue persistence. Mutations that the
// lifecycle engine performs concurrently (frequency bumps, role advances,
// status sets) are single-statement atomic updates rather than
// read-modify-write sequences.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListActiveByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.Issue, error)
	ListByAnonToken(ctx context.Context, token string) ([]domain.Issue, error)
	ListByAssignedRole(ctx context.Context, role domain.Role) ([]domain.Issue, error)
	ListByStatus(ctx context.Context, status domain.IssueStatus) ([]domain.Issue, error)
	ListAll(ctx context.Context) ([]domain.Issue, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Issue, error)
	IncrementFrequency(ctx context.Context, id string) error
	AdvanceRole(ctx context.Context, id string, role domain.Role, status domain.IssueStatus) error
	AdvanceRoleIfActive(ctx context.Context, id string, role domain.Role, status domain.IssueStatus) (bool, error)
	SetStatus(ctx context.Context, id string, status domain.IssueStatus) error
	CountByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error)
	CountByCategory(ctx context.Context) (map[domain.Category]int64, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, category, summary, original_text, status, urgency_score,
               assigned_role, frequency_count, created_at, sla_deadline, anon_token, evidence_urls`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (id, category, summary, original_text, status, urgency_score,
                            assigned_role, frequency_count, created_at, sla_deadline, anon_token, evidence_urls)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		issue.ID,
		issue.Category,
		issue.Summary,
		issue.OriginalText,
		issue.Status,
		issue.UrgencyScore,
		issue.AssignedRole,
		issue.FrequencyCount,
		issue.CreatedAt,
		issue.SLADeadline,
		issue.AnonToken,
		issue.EvidenceURLs,
	)
	return err
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&issue.ID,
		&issue.Category,
		&issue.Summary,
		&issue.OriginalText,
		&issue.Status,
		&issue.UrgencyScore,
		&issue.AssignedRole,
		&issue.FrequencyCount,
		&issue.CreatedAt,
		&issue.SLADeadline,
		&issue.AnonToken,
		&issue.EvidenceURLs,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListActiveByCategory returns non-resolved issues in insertion order, the
// order the dedup scan depends on for its first-match-wins rule.
func (r *issueRepository) ListActiveByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT ` + issueColumns + `
        FROM issues WHERE category=$1 AND status <> $2 ORDER BY created_at ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, category, domain.IssueStatusResolved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListByAnonToken(ctx context.Context, token string) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE anon_token=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListByAssignedRole(ctx context.Context, role domain.Role) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE assigned_role=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListByStatus(ctx context.Context, status domain.IssueStatus) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE status=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListAll(ctx context.Context) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + `
        FROM issues WHERE status IN ($1,$2) AND sla_deadline < $3 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.IssueStatusOpen, domain.IssueStatusInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) IncrementFrequency(ctx context.Context, id string) error {
	const query = `UPDATE issues SET frequency_count = frequency_count + 1 WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) AdvanceRole(ctx context.Context, id string, role domain.Role, status domain.IssueStatus) error {
	const query = `UPDATE issues SET assigned_role=$1, status=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, role, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AdvanceRoleIfActive advances the role only while the issue is still Open
// or In Progress, so overlapping sweeps cannot double-advance one issue.
func (r *issueRepository) AdvanceRoleIfActive(ctx context.Context, id string, role domain.Role, status domain.IssueStatus) (bool, error) {
	const query = `UPDATE issues SET assigned_role=$1, status=$2
        WHERE id=$3 AND status IN ($4,$5)`
	cmd, err := r.pool.Exec(ctx, query, role, status, id,
		domain.IssueStatusOpen, domain.IssueStatusInProgress)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *issueRepository) SetStatus(ctx context.Context, id string, status domain.IssueStatus) error {
	const query = `UPDATE issues SET status=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) CountByStatus(ctx context.Context) (map[domain.IssueStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM issues GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.IssueStatus]int64)
	for rows.Next() {
		var status domain.IssueStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *issueRepository) CountByCategory(ctx context.Context) (map[domain.Category]int64, error) {
	const query = `SELECT category, COUNT(*) FROM issues GROUP BY category`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Category]int64)
	for rows.Next() {
		var category domain.Category
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(
			&issue.ID,
			&issue.Category,
			&issue.Summary,
			&issue.OriginalText,
			&issue.Status,
			&issue.UrgencyScore,
			&issue.AssignedRole,
			&issue.FrequencyCount,
			&issue.CreatedAt,
			&issue.SLADeadline,
			&issue.AnonToken,
			&issue.EvidenceURLs,
		); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}
