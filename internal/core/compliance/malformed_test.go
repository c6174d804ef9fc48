package compliance

import (
	"encoding/json"
	"testing"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

func TestMalformedDocumentRanksAndCountsWithoutFailing(t *testing.T) {
	raw := `{
		"overall_status": "non_compliant",
		"sections": {
			"claims": "not evaluated",
			"general_labeling": {"status": "warning", "net_quantity": {"status": "non_compliant"}}
		},
		"compliance_table": [
			{"element": 7, "status": "warning"},
			{"element": "Allergen statement", "status": "non_compliant"}
		],
		"recommendations": [
			{"priority": 3, "recommendation": "odd"},
			{"priority": "low", "recommendation": "minor"},
			{"priority": "critical", "recommendation": "urgent"}
		]
	}`

	var doc domain.ComplianceDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	counts := CountIssues(&doc)
	if counts.Critical != 1 || counts.Warning != 0 || counts.Compliant != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	normalized := NormalizeDocument(&doc)
	if got := normalized.ComplianceTable[len(normalized.ComplianceTable)-1]; got.Element != "" {
		t.Fatalf("expected unmatched row last, got %+v", normalized.ComplianceTable)
	}
	recs := normalized.Recommendations
	if recs[0].Recommendation != "urgent" || recs[1].Recommendation != "minor" || recs[2].Recommendation != "odd" {
		t.Fatalf("unexpected recommendation order %+v", recs)
	}
}
