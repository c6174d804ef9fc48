package compliance

import "github.com/kirillkom/label-compliance/internal/core/domain"

// countedTopics is the fixed set of sections that contribute to issue counts.
var countedTopics = []domain.SectionTopic{
	domain.TopicGeneralLabeling,
	domain.TopicNutritionLabeling,
	domain.TopicAllergenLabeling,
	domain.TopicClaims,
}

// CountIssues buckets the status-bearing fields of the counted sections.
// Missing sections and unknown statuses contribute nothing.
func CountIssues(doc *domain.ComplianceDocument) domain.IssueBreakdown {
	var out domain.IssueBreakdown
	if doc == nil {
		return out
	}
	for _, topic := range countedTopics {
		section := doc.Sections.Get(topic)
		if section == nil {
			continue
		}
		for _, field := range section.Fields {
			switch field.Status {
			case domain.StatusNonCompliant:
				out.Critical++
			case domain.StatusWarning, domain.StatusPotentiallyNonCompliant:
				out.Warning++
			case domain.StatusCompliant:
				out.Compliant++
			}
		}
	}
	return out
}

// Compare computes the before/after delta between two documents.
func Compare(previous, current *domain.ComplianceDocument) domain.ComparisonResult {
	prevCounts := CountIssues(previous)
	curCounts := CountIssues(current)

	result := domain.ComparisonResult{
		PreviousIssueCount: prevCounts.Issues(),
		CurrentIssueCount:  curCounts.Issues(),
		Previous:           prevCounts,
		Current:            curCounts,
	}
	result.Improvement = result.PreviousIssueCount - result.CurrentIssueCount

	var prevStatus, curStatus domain.ComplianceStatus
	if previous != nil {
		result.PreviousAnalysisID = previous.ID
		prevStatus = previous.OverallStatus
	}
	if current != nil {
		result.CurrentAnalysisID = current.ID
		curStatus = current.OverallStatus
	}
	// A move between two failing statuses never counts, whatever the issue delta.
	result.StatusImproved = prevStatus != curStatus && curStatus.CompliantFamily()
	return result
}
