package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusvoice/feedback-service/internal/domain"
)

// IssueUpdateRepository manages the append-only issue update log.
type IssueUpdateRepository interface {
	Create(ctx context.Context, update *domain.IssueUpdate) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.IssueUpdate, error)
}

type issueUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewIssueUpdateRepository builds repository.
func NewIssueUpdateRepository(pool *pgxpool.Pool) IssueUpdateRepository {
	return &issueUpdateRepository{pool: pool}
}

func (r *issueUpdateRepository) Create(ctx context.Context, update *domain.IssueUpdate) error {
	const query = `
        INSERT INTO issue_updates (id, issue_id, author_role, content_kind, body, artifact_url, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		update.ID,
		update.IssueID,
		update.AuthorRole,
		update.ContentKind,
		update.Body,
		update.ArtifactURL,
		update.CreatedAt,
	)
	return err
}

// ListByIssue returns updates newest first.
func (r *issueUpdateRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.IssueUpdate, error) {
	const query = `
        SELECT id, issue_id, author_role, content_kind, body, artifact_url, created_at
        FROM issue_updates WHERE issue_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUpdates(rows)
}

func scanUpdates(rows pgx.Rows) ([]domain.IssueUpdate, error) {
	var result []domain.IssueUpdate
	for rows.Next() {
		var update domain.IssueUpdate
		if err := rows.Scan(
			&update.ID,
			&update.IssueID,
			&update.AuthorRole,
			&update.ContentKind,
			&update.Body,
			&update.ArtifactURL,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
