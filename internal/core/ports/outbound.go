package ports

import (
	"context"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// AnalysisRepository persists compliance documents. UpdateCategory is the only
// write path for a stored document's category.
type AnalysisRepository interface {
	Create(ctx context.Context, doc *domain.ComplianceDocument) error
	GetByID(ctx context.Context, id string) (*domain.ComplianceDocument, error)
	UpdateCategory(ctx context.Context, id, category string, confirmed bool) error
}

// SelectionLog keeps the append-only record of category selection events.
type SelectionLog interface {
	RecordSelection(ctx context.Context, selection domain.CategorySelection) error
	ListSelections(ctx context.Context, analysisID string) ([]domain.CategorySelection, error)
}

// SessionStore persists sessions and their append-only iteration logs.
type SessionStore interface {
	// EnsureSession returns the session bound to session.OriginAnalysisID,
	// creating it from session when none exists yet.
	EnsureSession(ctx context.Context, session domain.Session) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// AppendIteration stores it and returns it with the store-assigned Seq.
	AppendIteration(ctx context.Context, it domain.Iteration) (domain.Iteration, error)
	ListIterations(ctx context.Context, sessionID string) ([]domain.Iteration, error)
}

// MessageQueue publishes/consumes analysis and selection events.
type MessageQueue interface {
	PublishAnalysisCompleted(ctx context.Context, doc *domain.ComplianceDocument) error
	SubscribeAnalysisCompleted(ctx context.Context, handler func(context.Context, *domain.ComplianceDocument) error) error
	PublishCategorySelected(ctx context.Context, selection domain.CategorySelection) error
}

// ComplianceClassifier is the external service producing compliance judgments.
type ComplianceClassifier interface {
	Evaluate(ctx context.Context, labelText, categoryHint string) (*domain.ComplianceDocument, error)
}

// AnswerGenerator answers follow-up questions about a document.
type AnswerGenerator interface {
	AnswerFollowUp(ctx context.Context, question string, doc *domain.ComplianceDocument, history []domain.Iteration) (string, error)
}

// CategoryCatalog provides default per-category comparison data.
type CategoryCatalog interface {
	Options() map[string]domain.CategoryOption
}
