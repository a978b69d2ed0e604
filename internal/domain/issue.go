package domain

import "time"

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusEscalated  IssueStatus = "ESCALATED"
	IssueStatusResolved   IssueStatus = "RESOLVED"
)

// ValidStatus reports whether s is one of the enumerated issue statuses.
func ValidStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusEscalated, IssueStatusResolved:
		return true
	}
	return false
}

// Category enumerates feedback domains. Unknown categories are accepted
// and routed through the default escalation chain.
type Category string

const (
	CategoryAcademics      Category = "ACADEMICS"
	CategoryHostel         Category = "HOSTEL"
	CategoryInfrastructure Category = "INFRASTRUCTURE"
	CategoryFood           Category = "FOOD"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryOther          Category = "OTHER"
)

// Issue is the aggregate for moderated, role-routed feedback.
type Issue struct {
	ID             string
	Category       Category
	Summary        string
	OriginalText   string
	Status         IssueStatus
	UrgencyScore   int
	AssignedRole   Role
	FrequencyCount int
	CreatedAt      time.Time
	SLADeadline    time.Time
	AnonToken      string
	EvidenceURLs   []string
}

// Overdue reports whether the issue's SLA deadline has passed.
func (i *Issue) Overdue(now time.Time) bool {
	return i.SLADeadline.Before(now)
}
