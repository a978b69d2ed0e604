package service

import (
	"context"
	"testing"
	"time"

	"github.com/campusvoice/feedback-service/internal/domain"
)

func TestDashboardStats(t *testing.T) {
	repo := &fakeIssueRepo{}
	seed := []struct {
		status   domain.IssueStatus
		category domain.Category
	}{
		{domain.IssueStatusOpen, domain.CategoryHostel},
		{domain.IssueStatusOpen, domain.CategoryAcademics},
		{domain.IssueStatusInProgress, domain.CategoryHostel},
		{domain.IssueStatusEscalated, domain.CategoryFood},
		{domain.IssueStatusResolved, domain.CategoryHostel},
	}
	for i, s := range seed {
		_ = repo.Create(context.Background(), &domain.Issue{
			ID:        string(rune('a' + i)),
			Category:  s.category,
			Status:    s.status,
			CreatedAt: time.Now(),
		})
	}

	stats, err := NewDashboardService(repo).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.TotalIssues != 5 {
		t.Errorf("total = %d, want 5", stats.TotalIssues)
	}
	if stats.Open != 2 || stats.InProgress != 1 || stats.Escalated != 1 || stats.Resolved != 1 {
		t.Errorf("status rollup = %+v", stats)
	}
	if stats.Categories[domain.CategoryHostel] != 3 {
		t.Errorf("hostel count = %d, want 3", stats.Categories[domain.CategoryHostel])
	}
	if stats.Categories[domain.CategoryAcademics] != 1 || stats.Categories[domain.CategoryFood] != 1 {
		t.Errorf("category rollup = %+v", stats.Categories)
	}
}

func TestDashboardStatsEmpty(t *testing.T) {
	stats, err := NewDashboardService(&fakeIssueRepo{}).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalIssues != 0 {
		t.Errorf("total = %d, want 0", stats.TotalIssues)
	}
}
