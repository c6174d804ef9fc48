package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/label-compliance/internal/core/compliance"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

type ComparisonUseCase struct {
	analyses *AnalysisUseCase
	sessions ports.SessionStore
}

func NewComparisonUseCase(repo ports.AnalysisRepository, sessions ports.SessionStore) *ComparisonUseCase {
	return &ComparisonUseCase{
		analyses: NewAnalysisUseCase(repo),
		sessions: sessions,
	}
}

func (uc *ComparisonUseCase) CompareDocuments(previous, current *domain.ComplianceDocument) domain.ComparisonResult {
	return compliance.Compare(previous, current)
}

func (uc *ComparisonUseCase) CompareAnalyses(ctx context.Context, previousID, currentID string) (*domain.RevisionComparison, error) {
	previous, err := uc.analyses.load(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("load previous analysis: %w", err)
	}
	current, err := uc.analyses.load(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("load current analysis: %w", err)
	}
	return revisionComparison(previous, current), nil
}

// CompareLatestRevision compares the last revised upload of a session with
// the document that was active right before it.
func (uc *ComparisonUseCase) CompareLatestRevision(ctx context.Context, sessionID string) (*domain.RevisionComparison, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	history, err := uc.sessions.ListIterations(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session iterations: %w", err)
	}
	idx := compliance.LatestRevisionIndex(history)
	if idx < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare latest revision",
			errors.New("session has no revised uploads"))
	}
	return uc.compareRevision(ctx, *session, history, idx)
}

func (uc *ComparisonUseCase) compareRevision(
	ctx context.Context,
	session domain.Session,
	history []domain.Iteration,
	idx int,
) (*domain.RevisionComparison, error) {
	pair, err := compliance.ResolveRevision(session, history, idx)
	if err != nil {
		return nil, err
	}
	return uc.CompareAnalyses(ctx, pair.PreviousAnalysisID, pair.CurrentAnalysisID)
}

func revisionComparison(previous, current *domain.ComplianceDocument) *domain.RevisionComparison {
	return &domain.RevisionComparison{
		Comparison: compliance.Compare(previous, current),
		Previous:   compliance.NormalizeDocument(previous),
		Current:    compliance.NormalizeDocument(current),
	}
}
