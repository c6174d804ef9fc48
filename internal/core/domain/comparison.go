package domain

// IssueBreakdown buckets status-bearing section fields by severity.
type IssueBreakdown struct {
	Critical  int `json:"critical"`
	Warning   int `json:"warning"`
	Compliant int `json:"compliant"`
}

func (b IssueBreakdown) Issues() int {
	return b.Critical + b.Warning
}

type ComparisonResult struct {
	PreviousAnalysisID string         `json:"previous_analysis_id,omitempty"`
	CurrentAnalysisID  string         `json:"current_analysis_id,omitempty"`
	PreviousIssueCount int            `json:"previous_issue_count"`
	CurrentIssueCount  int            `json:"current_issue_count"`
	Improvement        int            `json:"improvement"`
	StatusImproved     bool           `json:"status_improved"`
	Previous           IssueBreakdown `json:"previous"`
	Current            IssueBreakdown `json:"current"`
}

// RevisionComparison is returned when a revised document is compared against
// the document that was active immediately before it.
type RevisionComparison struct {
	Comparison ComparisonResult    `json:"comparison"`
	Previous   *ComplianceDocument `json:"previous"`
	Current    *ComplianceDocument `json:"current"`
}
