package service

import (
	"context"

	"github.com/campusvoice/feedback-service/internal/domain"
	"github.com/campusvoice/feedback-service/internal/repository"
)

// DashboardStats is a point-in-time rollup over the full issue set.
type DashboardStats struct {
	TotalIssues int64
	Open        int64
	InProgress  int64
	Escalated   int64
	Resolved    int64
	Categories  map[domain.Category]int64
}

// DashboardService computes read-only statistics. Every call recomputes
// from the store; there is no cache to invalidate.
type DashboardService struct {
	issues repository.IssueRepository
}

// NewDashboardService constructs the service.
func NewDashboardService(issues repository.IssueRepository) *DashboardService {
	return &DashboardService{issues: issues}
}

// Stats returns counts by status and by category.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.issues.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.issues.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Open:       byStatus[domain.IssueStatusOpen],
		InProgress: byStatus[domain.IssueStatusInProgress],
		Escalated:  byStatus[domain.IssueStatusEscalated],
		Resolved:   byStatus[domain.IssueStatusResolved],
		Categories: byCategory,
	}
	for _, count := range byStatus {
		stats.TotalIssues += count
	}
	return stats, nil
}
