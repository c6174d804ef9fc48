package ports

import (
	"context"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// AnalysisService is the inbound contract for storing and reading classifier output.
type AnalysisService interface {
	Submit(ctx context.Context, doc *domain.ComplianceDocument) (*domain.ComplianceDocument, error)
	Enqueue(ctx context.Context, doc *domain.ComplianceDocument) (string, error)
	Get(ctx context.Context, id string) (*domain.ComplianceDocument, error)
}

// CategoryService drives category disambiguation for one analysis.
type CategoryService interface {
	Disambiguation(ctx context.Context, analysisID string) (domain.DisambiguationView, error)
	CompareCategories(ctx context.Context, analysisID string) (domain.DisambiguationView, error)
	SelectCategory(ctx context.Context, analysisID, selectedCategory, reason string) (*domain.ComplianceDocument, domain.CategorySelection, error)
	Selections(ctx context.Context, analysisID string) ([]domain.CategorySelection, error)
}

// SessionService tracks follow-up iterations for an analysis.
type SessionService interface {
	EnsureSession(ctx context.Context, analysisID string) (*domain.Session, error)
	Append(ctx context.Context, sessionID string, it domain.Iteration) ([]domain.Iteration, error)
	History(ctx context.Context, sessionID string) ([]domain.Iteration, error)
	SubmitRevision(ctx context.Context, sessionID string, doc *domain.ComplianceDocument) (*domain.RevisionComparison, error)
}

// ComparisonService computes before/after compliance deltas. All methods are read-only.
type ComparisonService interface {
	CompareDocuments(previous, current *domain.ComplianceDocument) domain.ComparisonResult
	CompareAnalyses(ctx context.Context, previousID, currentID string) (*domain.RevisionComparison, error)
	CompareLatestRevision(ctx context.Context, sessionID string) (*domain.RevisionComparison, error)
}

// FollowUpService handles chat turns and text-only re-checks inside a session.
type FollowUpService interface {
	Ask(ctx context.Context, sessionID, question string) (*domain.Iteration, error)
	TextCheck(ctx context.Context, sessionID, labelText string) (*domain.TextCheckResult, error)
}
