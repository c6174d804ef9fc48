package domain

import "time"

type DisambiguationState string

const (
	StateDetected          DisambiguationState = "detected"
	StateAwaitingSelection DisambiguationState = "awaiting_selection"
	StateComparing         DisambiguationState = "comparing"
	StateResolved          DisambiguationState = "resolved"
)

// CategorySelection is the user's explicit category choice for an analysis.
type CategorySelection struct {
	AnalysisID       string    `json:"analysis_id"`
	SelectedCategory string    `json:"selected_category"`
	DetectedCategory string    `json:"detected_category"`
	Reason           string    `json:"reason,omitempty"`
	Changed          bool      `json:"changed"`
	Timestamp        time.Time `json:"timestamp"`
}

// CategoryCandidate is one column of the side-by-side category comparison.
type CategoryCandidate struct {
	Category              string   `json:"category"`
	Detected              bool     `json:"detected"`
	CurrentLabelCompliant bool     `json:"current_label_compliant"`
	RequiredChanges       []string `json:"required_changes"`
	AllowedClaims         []string `json:"allowed_claims"`
	ProhibitedClaims      []string `json:"prohibited_claims"`
	Regulations           []string `json:"regulations"`
}

type DisambiguationView struct {
	AnalysisID         string              `json:"analysis_id"`
	State              DisambiguationState `json:"state"`
	RequiresSelection  bool                `json:"requires_selection"`
	Category           string              `json:"category"`
	DetectedCategory   string              `json:"detected_category"`
	CategoryConfidence CategoryConfidence  `json:"category_confidence,omitempty"`
	Candidates         []string            `json:"candidates"`
	Conflicts          []string            `json:"conflicts,omitempty"`
	Comparison         []CategoryCandidate `json:"comparison,omitempty"`
}
