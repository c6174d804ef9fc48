package compliance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// Disambiguation is the explicit category-selection context for one document.
// It is built per request and never shared.
type Disambiguation struct {
	doc        *domain.ComplianceDocument
	state      domain.DisambiguationState
	candidates []string
	comparison []domain.CategoryCandidate
}

// NewDisambiguation inspects doc and decides the starting state.
func NewDisambiguation(doc *domain.ComplianceDocument) *Disambiguation {
	d := &Disambiguation{
		doc:        doc,
		state:      domain.StateDetected,
		candidates: candidateCategories(doc),
	}
	switch {
	case doc.CategoryConfirmed:
		d.state = domain.StateResolved
	case hasAlternatives(doc):
		d.state = domain.StateAwaitingSelection
	}
	return d
}

func (d *Disambiguation) State() domain.DisambiguationState {
	return d.state
}

// RequiresSelection reports whether the category selection UI must be shown.
func (d *Disambiguation) RequiresSelection() bool {
	return d.state == domain.StateAwaitingSelection || d.state == domain.StateComparing
}

// Candidates lists the detected category followed by the alternatives.
func (d *Disambiguation) Candidates() []string {
	return append([]string(nil), d.candidates...)
}

// Compare moves into the side-by-side view and builds per-candidate data.
func (d *Disambiguation) Compare(lookup map[string]domain.CategoryOption) ([]domain.CategoryCandidate, error) {
	if d.state != domain.StateAwaitingSelection && d.state != domain.StateComparing {
		return nil, domain.WrapError(domain.ErrInvalidTransition, "compare categories",
			fmt.Errorf("state %s does not allow comparison", d.state))
	}
	d.comparison = BuildCandidates(d.doc, d.candidates, lookup)
	d.state = domain.StateComparing
	return d.comparison, nil
}

// BackToSelection leaves the comparison view without losing state.
func (d *Disambiguation) BackToSelection() error {
	if d.state != domain.StateComparing {
		return domain.WrapError(domain.ErrInvalidTransition, "back to selection",
			fmt.Errorf("state %s is not comparing", d.state))
	}
	d.state = domain.StateAwaitingSelection
	return nil
}

// Select commits an explicit user choice onto the document. Accepting the
// detected category is a selection too. Selecting the same category again
// changes nothing on the document but still yields a new event.
func (d *Disambiguation) Select(selectedCategory, reason string, now time.Time) (domain.CategorySelection, error) {
	selected := strings.TrimSpace(selectedCategory)
	if selected == "" {
		return domain.CategorySelection{}, domain.WrapError(domain.ErrInvalidInput, "select category",
			errors.New("selected category is required"))
	}

	detected := detectedCategory(d.doc)
	selection := domain.CategorySelection{
		AnalysisID:       d.doc.ID,
		SelectedCategory: selected,
		DetectedCategory: detected,
		Changed:          selected != detected,
		Timestamp:        now.UTC(),
	}
	if selection.Changed {
		selection.Reason = strings.TrimSpace(reason)
	}

	d.doc.Category = selected
	d.doc.CategoryConfirmed = true
	d.state = domain.StateResolved
	return selection, nil
}

// View renders the context for callers.
func (d *Disambiguation) View() domain.DisambiguationView {
	return domain.DisambiguationView{
		AnalysisID:         d.doc.ID,
		State:              d.state,
		RequiresSelection:  d.RequiresSelection(),
		Category:           d.doc.Category,
		DetectedCategory:   detectedCategory(d.doc),
		CategoryConfidence: d.doc.CategoryConfidence,
		Candidates:         d.Candidates(),
		Conflicts:          d.doc.CategoryConflicts,
		Comparison:         d.comparison,
	}
}

// BuildCandidates assembles comparison data for each candidate. Candidates
// absent from lookup get empty lists rather than an error.
func BuildCandidates(doc *domain.ComplianceDocument, candidates []string, lookup map[string]domain.CategoryOption) []domain.CategoryCandidate {
	detected := detectedCategory(doc)
	out := make([]domain.CategoryCandidate, 0, len(candidates))
	for _, category := range candidates {
		option := lookup[category]
		out = append(out, domain.CategoryCandidate{
			Category:              category,
			Detected:              category == detected,
			CurrentLabelCompliant: option.CurrentLabelCompliant,
			RequiredChanges:       nonNil(option.RequiredChanges),
			AllowedClaims:         nonNil(option.AllowedClaims),
			ProhibitedClaims:      nonNil(option.ProhibitedClaims),
			Regulations:           nonNil(option.Regulations),
		})
	}
	return out
}

// MergeOptions overlays document-specific options on catalog defaults.
func MergeOptions(defaults, overrides map[string]domain.CategoryOption) map[string]domain.CategoryOption {
	out := make(map[string]domain.CategoryOption, len(defaults)+len(overrides))
	for category, option := range defaults {
		out[category] = option
	}
	for category, option := range overrides {
		out[category] = option
	}
	return out
}

func candidateCategories(doc *domain.ComplianceDocument) []string {
	seen := make(map[string]struct{}, len(doc.CategoryAlternatives)+1)
	out := make([]string, 0, len(doc.CategoryAlternatives)+1)
	add := func(category string) {
		category = strings.TrimSpace(category)
		if category == "" {
			return
		}
		if _, ok := seen[category]; ok {
			return
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	add(detectedCategory(doc))
	for _, alt := range doc.CategoryAlternatives {
		add(alt)
	}
	return out
}

func hasAlternatives(doc *domain.ComplianceDocument) bool {
	detected := detectedCategory(doc)
	for _, alt := range doc.CategoryAlternatives {
		alt = strings.TrimSpace(alt)
		if alt != "" && alt != detected {
			return true
		}
	}
	return false
}

func detectedCategory(doc *domain.ComplianceDocument) string {
	if doc.DetectedCategory != "" {
		return doc.DetectedCategory
	}
	return doc.Category
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
