package compliance

import (
	"math"
	"slices"
	"strings"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

type elementRank struct {
	key  string
	rank int
}

// elementRanks is matched in slice order and the first contained key wins,
// so more specific keys must precede broader ones that could also match.
var elementRanks = []elementRank{
	// general labeling
	{key: "statement of identity", rank: 100},
	{key: "product name", rank: 101},
	{key: "net quantity", rank: 110},
	{key: "net weight", rank: 111},
	{key: "manufacturer", rank: 120},
	{key: "distributor", rank: 121},
	{key: "name and address", rank: 122},
	{key: "country of origin", rank: 130},
	{key: "principal display panel", rank: 140},
	{key: "information panel", rank: 141},
	{key: "type size", rank: 150},
	{key: "language", rank: 160},

	// ingredients
	{key: "ingredient list", rank: 200},
	{key: "ingredient statement", rank: 201},
	{key: "ingredient order", rank: 210},
	{key: "sub-ingredient", rank: 220},
	{key: "color additive", rank: 230},
	{key: "ingredient", rank: 290},

	// allergens
	{key: "allergen declaration", rank: 300},
	{key: "contains statement", rank: 310},
	{key: "sesame", rank: 320},
	{key: "cross-contact", rank: 330},
	{key: "may contain", rank: 331},
	{key: "allergen", rank: 390},

	// nutrition
	{key: "nutrition facts", rank: 400},
	{key: "supplement facts", rank: 401},
	{key: "serving size", rank: 410},
	{key: "servings per container", rank: 411},
	{key: "calories", rank: 420},
	{key: "daily value", rank: 430},
	{key: "added sugars", rank: 440},
	{key: "nutrition", rank: 490},

	// claims
	{key: "health claim", rank: 500},
	{key: "nutrient content claim", rank: 510},
	{key: "structure/function", rank: 520},
	{key: "structure function", rank: 521},
	{key: "gluten-free", rank: 530},
	{key: "organic", rank: 540},
	{key: "natural", rank: 550},
	{key: "claim", rank: 590},

	// additional requirements
	{key: "bioengineered", rank: 600},
	{key: "warning statement", rank: 610},
	{key: "disclaimer", rank: 620},
	{key: "barcode", rank: 630},
	{key: "lot code", rank: 640},
	{key: "date marking", rank: 650},
	{key: "storage instruction", rank: 660},
	{key: "recycling", rank: 670},
}

const unrankedElement = math.MaxInt

var recommendationRanks = map[domain.RecommendationPriority]int{
	domain.PriorityCritical: 0,
	domain.PriorityHigh:     1,
	domain.PriorityMedium:   2,
	domain.PriorityLow:      3,
}

const unrankedPriority = math.MaxInt

// ElementRank returns the display rank of a compliance table element.
func ElementRank(element string) int {
	normalized := strings.ToLower(element)
	for _, entry := range elementRanks {
		if strings.Contains(normalized, entry.key) {
			return entry.rank
		}
	}
	return unrankedElement
}

// PriorityRank returns the display rank of a recommendation priority.
func PriorityRank(priority domain.RecommendationPriority) int {
	key := domain.RecommendationPriority(strings.ToLower(strings.TrimSpace(string(priority))))
	if rank, ok := recommendationRanks[key]; ok {
		return rank
	}
	return unrankedPriority
}

// SortComplianceTable returns a stably sorted copy of rows.
func SortComplianceTable(rows []domain.ComplianceRow) []domain.ComplianceRow {
	if rows == nil {
		return nil
	}
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b domain.ComplianceRow) int {
		return compareRank(ElementRank(a.Element), ElementRank(b.Element))
	})
	return out
}

// SortRecommendations returns a stably sorted copy of recs.
func SortRecommendations(recs []domain.Recommendation) []domain.Recommendation {
	if recs == nil {
		return nil
	}
	out := slices.Clone(recs)
	slices.SortStableFunc(out, func(a, b domain.Recommendation) int {
		return compareRank(PriorityRank(a.Priority), PriorityRank(b.Priority))
	})
	return out
}

// NormalizeDocument returns a shallow copy of doc with its table and
// recommendations in display order. The input document is not modified.
func NormalizeDocument(doc *domain.ComplianceDocument) *domain.ComplianceDocument {
	if doc == nil {
		return nil
	}
	out := *doc
	out.ComplianceTable = SortComplianceTable(doc.ComplianceTable)
	out.Recommendations = SortRecommendations(doc.Recommendations)
	return &out
}

func compareRank(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
