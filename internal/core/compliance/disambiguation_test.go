package compliance

import (
	"testing"
	"time"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

func ambiguousDoc() *domain.ComplianceDocument {
	return &domain.ComplianceDocument{
		ID:                   "a-1",
		Category:             "conventional_food",
		DetectedCategory:     "conventional_food",
		CategoryConfidence:   domain.ConfidenceMedium,
		CategoryAlternatives: []string{"dietary_supplement", "conventional_food", "non_alcoholic_beverage"},
		CategoryConflicts:    []string{"label uses Supplement Facts panel"},
	}
}

func TestNewDisambiguationWithoutAlternativesNeverAwaitsSelection(t *testing.T) {
	doc := &domain.ComplianceDocument{ID: "a-1", Category: "conventional_food", CategoryAlternatives: []string{}}
	d := NewDisambiguation(doc)
	if d.State() != domain.StateDetected {
		t.Fatalf("expected detected state, got %s", d.State())
	}
	if d.RequiresSelection() {
		t.Fatalf("document without alternatives must not require selection")
	}
	if _, err := d.Compare(nil); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestDisambiguationCompareAndBack(t *testing.T) {
	d := NewDisambiguation(ambiguousDoc())
	if d.State() != domain.StateAwaitingSelection {
		t.Fatalf("expected awaiting_selection, got %s", d.State())
	}

	lookup := map[string]domain.CategoryOption{
		"conventional_food": {CurrentLabelCompliant: true, Regulations: []string{"21 CFR 101"}},
		"dietary_supplement": {
			RequiredChanges:  []string{"Replace Nutrition Facts with Supplement Facts"},
			AllowedClaims:    []string{"supports immune health"},
			ProhibitedClaims: []string{"cures colds"},
		},
	}
	candidates, err := d.Compare(lookup)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if d.State() != domain.StateComparing {
		t.Fatalf("expected comparing, got %s", d.State())
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 deduplicated candidates, got %d", len(candidates))
	}
	if candidates[0].Category != "conventional_food" || !candidates[0].Detected || !candidates[0].CurrentLabelCompliant {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Category != "dietary_supplement" || len(candidates[1].RequiredChanges) != 1 {
		t.Fatalf("unexpected second candidate: %+v", candidates[1])
	}
	missing := candidates[2]
	if missing.Category != "non_alcoholic_beverage" || missing.RequiredChanges == nil || len(missing.RequiredChanges) != 0 {
		t.Fatalf("missing lookup entry must yield empty lists, got %+v", missing)
	}
	if len(missing.AllowedClaims) != 0 || len(missing.ProhibitedClaims) != 0 || len(missing.Regulations) != 0 {
		t.Fatalf("missing lookup entry must yield empty claims, got %+v", missing)
	}

	if err := d.BackToSelection(); err != nil {
		t.Fatalf("BackToSelection() error = %v", err)
	}
	if d.State() != domain.StateAwaitingSelection {
		t.Fatalf("expected awaiting_selection after back, got %s", d.State())
	}
	if len(d.View().Comparison) != 3 {
		t.Fatalf("comparison data must survive going back")
	}
	if err := d.BackToSelection(); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestDisambiguationSelectRecordsReasonOnlyWhenChanged(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	doc := ambiguousDoc()
	d := NewDisambiguation(doc)
	sel, err := d.Select("dietary_supplement", "  it is a capsule  ", now)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if doc.Category != "dietary_supplement" || !doc.CategoryConfirmed {
		t.Fatalf("expected document category updated, got %+v", doc)
	}
	if !sel.Changed || sel.Reason != "it is a capsule" || sel.DetectedCategory != "conventional_food" {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	if d.State() != domain.StateResolved {
		t.Fatalf("expected resolved, got %s", d.State())
	}

	accepted := ambiguousDoc()
	sel, err = NewDisambiguation(accepted).Select("conventional_food", "looks right", now)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Changed || sel.Reason != "" {
		t.Fatalf("accepting detected category must not record reason, got %+v", sel)
	}
	if accepted.Category != "conventional_food" {
		t.Fatalf("unexpected category %s", accepted.Category)
	}
}

func TestDisambiguationSelectIsIdempotent(t *testing.T) {
	now := time.Now()
	doc := ambiguousDoc()

	first, err := NewDisambiguation(doc).Select("dietary_supplement", "", now)
	if err != nil {
		t.Fatalf("first Select() error = %v", err)
	}
	afterFirst := *doc

	second, err := NewDisambiguation(doc).Select("dietary_supplement", "", now.Add(time.Second))
	if err != nil {
		t.Fatalf("second Select() error = %v", err)
	}
	if doc.Category != afterFirst.Category || doc.CategoryConfirmed != afterFirst.CategoryConfirmed {
		t.Fatalf("re-selection changed the document: %+v", doc)
	}
	if first.SelectedCategory != second.SelectedCategory || second.Timestamp.Equal(first.Timestamp) {
		t.Fatalf("expected a fresh event for the same category, got %+v / %+v", first, second)
	}
}

func TestDisambiguationConfirmedDocumentStartsResolved(t *testing.T) {
	doc := ambiguousDoc()
	doc.CategoryConfirmed = true
	d := NewDisambiguation(doc)
	if d.State() != domain.StateResolved || d.RequiresSelection() {
		t.Fatalf("expected resolved state, got %s", d.State())
	}
}

func TestDisambiguationSelectRejectsEmptyCategory(t *testing.T) {
	doc := ambiguousDoc()
	if _, err := NewDisambiguation(doc).Select("  ", "", time.Now()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if doc.Category != "conventional_food" {
		t.Fatalf("failed selection must not touch category")
	}
}

func TestMergeOptionsDocumentWins(t *testing.T) {
	defaults := map[string]domain.CategoryOption{
		"a": {Regulations: []string{"default"}},
		"b": {Regulations: []string{"b"}},
	}
	overrides := map[string]domain.CategoryOption{
		"a": {Regulations: []string{"doc"}},
	}
	merged := MergeOptions(defaults, overrides)
	if merged["a"].Regulations[0] != "doc" || merged["b"].Regulations[0] != "b" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}
