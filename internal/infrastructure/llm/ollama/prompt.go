package ollama

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

const (
	maxLabelSnippet    = 6000
	maxHistoryInPrompt = 10
)

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildCompliancePrompt(labelText, categoryHint string) string {
	snippet := truncateRunes(labelText, maxLabelSnippet)
	hint := strings.TrimSpace(categoryHint)
	if hint == "" {
		hint = "unknown"
	}

	return `You are a food label regulatory compliance reviewer.
Return strict JSON object with keys:
overall_status, summary, category, category_confidence (high|medium|low), category_alternatives (array of strings),
category_conflicts (array of strings),
sections (object with optional keys general_labeling, ingredient_labeling, allergen_labeling, nutrition_labeling,
claims, additional_requirements; each has status, details, regulations and named sub-objects with status, details, regulation),
compliance_table (array of {element, status, rationale}),
recommendations (array of {priority (critical|high|medium|low), recommendation, regulation}),
category_options (object keyed by category with current_label_compliant, required_changes, allowed_claims,
prohibited_claims, regulations).
Every status is one of: compliant, likely_compliant, potentially_non_compliant, non_compliant, not_applicable, warning.
No markdown, no extra keys.

Product category hint: ` + hint + `

Label text:
` + snippet
}

func buildFollowUpPrompt(question string, doc *domain.ComplianceDocument, history []domain.Iteration) string {
	var b strings.Builder
	if doc != nil {
		fmt.Fprintf(&b, "Category: %s\nOverall status: %s\n", doc.Category, doc.OverallStatus)
		if doc.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", doc.Summary)
		}
		for _, row := range doc.ComplianceTable {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", row.Element, row.Status, row.Rationale)
		}
		for _, rec := range doc.Recommendations {
			fmt.Fprintf(&b, "* [%s] %s %s\n", rec.Priority, rec.Recommendation, rec.Regulation)
		}
	}

	var conversation strings.Builder
	start := 0
	if len(history) > maxHistoryInPrompt {
		start = len(history) - maxHistoryInPrompt
	}
	for _, it := range history[start:] {
		switch it.Kind {
		case domain.IterationChat:
			fmt.Fprintf(&conversation, "User: %s\nAssistant: %s\n", it.Payload.Message, it.Payload.Response)
		case domain.IterationTextCheck:
			fmt.Fprintf(&conversation, "(user re-checked alternative label text)\n")
		case domain.IterationRevisedUpload:
			fmt.Fprintf(&conversation, "(user uploaded a revised label: %s)\n", it.Payload.AnalysisID)
		}
	}

	return fmt.Sprintf(`Answer the user's follow-up question about the label compliance analysis below.
Cite regulations where the analysis provides them. If the analysis does not cover the question, say it directly.

Analysis:
%s
Conversation so far:
%s
Question:
%s
`, b.String(), conversation.String(), question)
}
