package domain

import (
	"encoding/json"
	"time"
)

type ComplianceStatus string

const (
	StatusCompliant               ComplianceStatus = "compliant"
	StatusLikelyCompliant         ComplianceStatus = "likely_compliant"
	StatusPotentiallyNonCompliant ComplianceStatus = "potentially_non_compliant"
	StatusNonCompliant            ComplianceStatus = "non_compliant"
	StatusNotApplicable           ComplianceStatus = "not_applicable"
	StatusWarning                 ComplianceStatus = "warning"
)

// Known reports whether s belongs to the closed status set.
func (s ComplianceStatus) Known() bool {
	switch s {
	case StatusCompliant, StatusLikelyCompliant, StatusPotentiallyNonCompliant,
		StatusNonCompliant, StatusNotApplicable, StatusWarning:
		return true
	default:
		return false
	}
}

// CompliantFamily reports whether s is one of the passing headline statuses.
func (s ComplianceStatus) CompliantFamily() bool {
	return s == StatusCompliant || s == StatusLikelyCompliant
}

type SectionTopic string

const (
	TopicGeneralLabeling        SectionTopic = "general_labeling"
	TopicIngredientLabeling     SectionTopic = "ingredient_labeling"
	TopicAllergenLabeling       SectionTopic = "allergen_labeling"
	TopicNutritionLabeling      SectionTopic = "nutrition_labeling"
	TopicClaims                 SectionTopic = "claims"
	TopicAdditionalRequirements SectionTopic = "additional_requirements"
)

type CategoryConfidence string

const (
	ConfidenceHigh   CategoryConfidence = "high"
	ConfidenceMedium CategoryConfidence = "medium"
	ConfidenceLow    CategoryConfidence = "low"
)

// ComplianceDocument is one evaluation snapshot produced by the external classifier.
type ComplianceDocument struct {
	ID                   string                    `json:"id"`
	Sections             Sections                  `json:"sections"`
	ComplianceTable      []ComplianceRow           `json:"compliance_table"`
	Recommendations      []Recommendation          `json:"recommendations"`
	OverallStatus        ComplianceStatus          `json:"overall_status"`
	Summary              string                    `json:"summary,omitempty"`
	ImageQuality         string                    `json:"image_quality,omitempty"`
	Category             string                    `json:"category"`
	DetectedCategory     string                    `json:"detected_category,omitempty"`
	CategoryConfidence   CategoryConfidence        `json:"category_confidence,omitempty"`
	CategoryAlternatives []string                  `json:"category_alternatives,omitempty"`
	CategoryConflicts    []string                  `json:"category_conflicts,omitempty"`
	CategoryConfirmed    bool                      `json:"category_confirmed"`
	CategoryOptions      map[string]CategoryOption `json:"category_options,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// UnmarshalJSON rejects only a document that is not a JSON object. A table or
// recommendation list of the wrong shape decodes as absent.
func (d *ComplianceDocument) UnmarshalJSON(data []byte) error {
	type plain ComplianceDocument
	aux := struct {
		*plain
		ComplianceTable json.RawMessage `json:"compliance_table"`
		Recommendations json.RawMessage `json:"recommendations"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.ComplianceTable = decodeList[ComplianceRow](aux.ComplianceTable)
	d.Recommendations = decodeList[Recommendation](aux.Recommendations)
	return nil
}

func decodeList[T any](raw json.RawMessage) []T {
	if len(raw) == 0 {
		return nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Sections holds the optional per-topic results. A nil pointer means the
// classifier did not evaluate that topic.
type Sections struct {
	GeneralLabeling        *SectionResult `json:"general_labeling,omitempty"`
	IngredientLabeling     *SectionResult `json:"ingredient_labeling,omitempty"`
	AllergenLabeling       *SectionResult `json:"allergen_labeling,omitempty"`
	NutritionLabeling      *SectionResult `json:"nutrition_labeling,omitempty"`
	Claims                 *SectionResult `json:"claims,omitempty"`
	AdditionalRequirements *SectionResult `json:"additional_requirements,omitempty"`
}

// UnmarshalJSON treats anything other than an object as no sections.
func (s *Sections) UnmarshalJSON(data []byte) error {
	type plain Sections
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		*s = Sections{}
		return nil
	}
	*s = Sections(out)
	return nil
}

func (s Sections) Get(topic SectionTopic) *SectionResult {
	switch topic {
	case TopicGeneralLabeling:
		return s.GeneralLabeling
	case TopicIngredientLabeling:
		return s.IngredientLabeling
	case TopicAllergenLabeling:
		return s.AllergenLabeling
	case TopicNutritionLabeling:
		return s.NutritionLabeling
	case TopicClaims:
		return s.Claims
	case TopicAdditionalRequirements:
		return s.AdditionalRequirements
	default:
		return nil
	}
}

// SectionResult is the result for one topic. Fields carries the named
// status-bearing sub-objects (e.g. "statement_of_identity"); everything the
// classifier emits outside status/details/regulations must be such an object
// to be kept.
type SectionResult struct {
	Status      ComplianceStatus
	Details     string
	Regulations []string
	Fields      map[string]FieldResult
}

type FieldResult struct {
	Status     ComplianceStatus `json:"status"`
	Details    string           `json:"details,omitempty"`
	Regulation string           `json:"regulation,omitempty"`
}

func (r SectionResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for name, field := range r.Fields {
		out[name] = field
	}
	if r.Status != "" {
		out["status"] = r.Status
	}
	if r.Details != "" {
		out["details"] = r.Details
	}
	if len(r.Regulations) > 0 {
		out["regulations"] = r.Regulations
	}
	return json.Marshal(out)
}

func (r *SectionResult) UnmarshalJSON(data []byte) error {
	*r = SectionResult{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A section that is not an object carries no fields.
		return nil
	}

	for key, value := range raw {
		switch key {
		case "status":
			var status string
			if err := json.Unmarshal(value, &status); err == nil {
				r.Status = ComplianceStatus(status)
			}
		case "details":
			_ = json.Unmarshal(value, &r.Details)
		case "regulations":
			r.Regulations = decodeRegulations(value)
		default:
			field, ok := decodeField(value)
			if !ok {
				continue
			}
			if r.Fields == nil {
				r.Fields = make(map[string]FieldResult)
			}
			r.Fields[key] = field
		}
	}
	return nil
}

// decodeField accepts only JSON objects with a non-empty string status.
func decodeField(value json.RawMessage) (FieldResult, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err != nil {
		return FieldResult{}, false
	}
	rawStatus, ok := obj["status"]
	if !ok {
		return FieldResult{}, false
	}
	var status string
	if err := json.Unmarshal(rawStatus, &status); err != nil || status == "" {
		return FieldResult{}, false
	}

	field := FieldResult{Status: ComplianceStatus(status)}
	if details, ok := obj["details"]; ok {
		_ = json.Unmarshal(details, &field.Details)
	}
	if regulation, ok := obj["regulation"]; ok {
		_ = json.Unmarshal(regulation, &field.Regulation)
	}
	return field, true
}

// decodeRegulations tolerates either a list of citations or a single string.
func decodeRegulations(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

type ComplianceRow struct {
	Element   string `json:"element"`
	Status    string `json:"status"`
	Rationale string `json:"rationale"`
}

// UnmarshalJSON drops non-string values so an odd row ranks last instead of
// failing the document.
func (r *ComplianceRow) UnmarshalJSON(data []byte) error {
	raw := decodeObject(data)
	*r = ComplianceRow{
		Element:   stringValue(raw["element"]),
		Status:    stringValue(raw["status"]),
		Rationale: stringValue(raw["rationale"]),
	}
	return nil
}

type RecommendationPriority string

const (
	PriorityCritical RecommendationPriority = "critical"
	PriorityHigh     RecommendationPriority = "high"
	PriorityMedium   RecommendationPriority = "medium"
	PriorityLow      RecommendationPriority = "low"
)

type Recommendation struct {
	Priority       RecommendationPriority `json:"priority"`
	Recommendation string                 `json:"recommendation"`
	Regulation     string                 `json:"regulation"`
}

// UnmarshalJSON decodes a non-string priority as empty, which ranks last.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	raw := decodeObject(data)
	*r = Recommendation{
		Priority:       RecommendationPriority(stringValue(raw["priority"])),
		Recommendation: stringValue(raw["recommendation"]),
		Regulation:     stringValue(raw["regulation"]),
	}
	return nil
}

func decodeObject(data []byte) map[string]json.RawMessage {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// CategoryOption is the per-category comparison data emitted by the classifier
// or loaded from the category catalog.
type CategoryOption struct {
	CurrentLabelCompliant bool     `json:"current_label_compliant" yaml:"current_label_compliant"`
	RequiredChanges       []string `json:"required_changes" yaml:"required_changes"`
	AllowedClaims         []string `json:"allowed_claims" yaml:"allowed_claims"`
	ProhibitedClaims      []string `json:"prohibited_claims" yaml:"prohibited_claims"`
	Regulations           []string `json:"regulations" yaml:"regulations"`
}
