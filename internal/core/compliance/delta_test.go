package compliance

import (
	"testing"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

func section(statuses ...domain.ComplianceStatus) *domain.SectionResult {
	fields := make(map[string]domain.FieldResult, len(statuses))
	for i, status := range statuses {
		fields[string(rune('a'+i))] = domain.FieldResult{Status: status}
	}
	return &domain.SectionResult{Status: domain.StatusWarning, Fields: fields}
}

func TestCompareReportsImprovementToCompliant(t *testing.T) {
	previous := &domain.ComplianceDocument{
		ID:            "prev",
		OverallStatus: domain.StatusNonCompliant,
		Sections: domain.Sections{
			GeneralLabeling:  section(domain.StatusNonCompliant, domain.StatusCompliant),
			AllergenLabeling: section(domain.StatusNonCompliant),
			Claims:           section(domain.StatusWarning),
		},
	}
	current := &domain.ComplianceDocument{
		ID:            "cur",
		OverallStatus: domain.StatusCompliant,
		Sections: domain.Sections{
			GeneralLabeling:  section(domain.StatusCompliant, domain.StatusCompliant),
			AllergenLabeling: section(domain.StatusCompliant),
		},
	}

	got := Compare(previous, current)
	if got.PreviousIssueCount != 3 || got.CurrentIssueCount != 0 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.Improvement != 3 || !got.StatusImproved {
		t.Fatalf("expected improvement=3 statusImproved=true, got %+v", got)
	}
	if got.Previous.Critical != 2 || got.Previous.Warning != 1 || got.Previous.Compliant != 1 {
		t.Fatalf("unexpected previous breakdown: %+v", got.Previous)
	}
	if got.PreviousAnalysisID != "prev" || got.CurrentAnalysisID != "cur" {
		t.Fatalf("unexpected ids: %+v", got)
	}
}

func TestCompareStatusChangeWithinFailingFamilyIsNotImprovement(t *testing.T) {
	previous := &domain.ComplianceDocument{
		OverallStatus: domain.StatusNonCompliant,
		Sections: domain.Sections{
			GeneralLabeling:   section(domain.StatusNonCompliant, domain.StatusNonCompliant),
			NutritionLabeling: section(domain.StatusPotentiallyNonCompliant, domain.StatusWarning),
		},
	}
	current := &domain.ComplianceDocument{
		OverallStatus: domain.StatusPotentiallyNonCompliant,
		Sections: domain.Sections{
			NutritionLabeling: section(domain.StatusWarning),
		},
	}

	got := Compare(previous, current)
	if got.Improvement != 3 {
		t.Fatalf("expected improvement=3, got %d", got.Improvement)
	}
	if got.StatusImproved {
		t.Fatalf("status change into failing family must not set statusImproved")
	}
}

func TestCompareRegressionIsNegative(t *testing.T) {
	previous := &domain.ComplianceDocument{OverallStatus: domain.StatusCompliant}
	current := &domain.ComplianceDocument{
		OverallStatus: domain.StatusNonCompliant,
		Sections:      domain.Sections{Claims: section(domain.StatusNonCompliant, domain.StatusWarning)},
	}

	got := Compare(previous, current)
	if got.Improvement != -2 || got.StatusImproved {
		t.Fatalf("expected regression -2 without status improvement, got %+v", got)
	}
}

func TestCompareDocumentWithItself(t *testing.T) {
	docs := []*domain.ComplianceDocument{
		{},
		{OverallStatus: domain.StatusCompliant, Sections: domain.Sections{Claims: section(domain.StatusCompliant)}},
		{
			OverallStatus:        domain.StatusNonCompliant,
			CategoryAlternatives: []string{"dietary_supplement"},
			Sections:             domain.Sections{GeneralLabeling: section(domain.StatusNonCompliant, domain.StatusWarning)},
		},
	}
	for i, doc := range docs {
		got := Compare(doc, doc)
		if got.Improvement != 0 || got.StatusImproved {
			t.Fatalf("doc %d: expected no change, got %+v", i, got)
		}
	}
}

func TestCountIssuesIgnoresUncountedSectionsAndUnknownStatuses(t *testing.T) {
	doc := &domain.ComplianceDocument{
		Sections: domain.Sections{
			IngredientLabeling:     section(domain.StatusNonCompliant),
			AdditionalRequirements: section(domain.StatusWarning),
			GeneralLabeling:        section(domain.StatusNotApplicable, domain.StatusLikelyCompliant, "unexpected"),
		},
	}

	got := CountIssues(doc)
	if got != (domain.IssueBreakdown{}) {
		t.Fatalf("expected empty breakdown, got %+v", got)
	}
	if CountIssues(nil) != (domain.IssueBreakdown{}) {
		t.Fatalf("expected empty breakdown for nil document")
	}
}
