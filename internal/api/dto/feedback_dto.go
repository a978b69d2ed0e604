package dto

// SubmitFeedbackRequest payload.
type SubmitFeedbackRequest struct {
	Category     string   `json:"category"`
	Text         string   `json:"text"`
	EvidenceURLs []string `json:"evidence_urls"`
}

// SubmitFeedbackResponse reports the created or bumped issue.
type SubmitFeedbackResponse struct {
	IssueID   string `json:"issue_id"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}
