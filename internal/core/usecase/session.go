package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

// SessionUseCase is the append-only iteration log for follow-up activity.
// It exposes no update or delete operation.
type SessionUseCase struct {
	analyses   *AnalysisUseCase
	sessions   ports.SessionStore
	comparison *ComparisonUseCase
}

func NewSessionUseCase(repo ports.AnalysisRepository, sessions ports.SessionStore) *SessionUseCase {
	return &SessionUseCase{
		analyses:   NewAnalysisUseCase(repo),
		sessions:   sessions,
		comparison: NewComparisonUseCase(repo, sessions),
	}
}

// EnsureSession returns the session of an analysis, creating it on the first
// follow-up action.
func (uc *SessionUseCase) EnsureSession(ctx context.Context, analysisID string) (*domain.Session, error) {
	doc, err := uc.analyses.load(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	session, err := uc.sessions.EnsureSession(ctx, domain.Session{
		ID:               uuid.NewString(),
		OriginAnalysisID: doc.ID,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	return session, nil
}

// Append adds one iteration and returns the full ordered history.
func (uc *SessionUseCase) Append(ctx context.Context, sessionID string, it domain.Iteration) ([]domain.Iteration, error) {
	if _, err := uc.appendIteration(ctx, sessionID, it); err != nil {
		return nil, err
	}
	return uc.History(ctx, sessionID)
}

func (uc *SessionUseCase) History(ctx context.Context, sessionID string) ([]domain.Iteration, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	history, err := uc.sessions.ListIterations(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session iterations: %w", err)
	}
	return history, nil
}

// SubmitRevision stores a revised document, appends a revised_upload
// iteration and compares it against the document active just before it.
func (uc *SessionUseCase) SubmitRevision(
	ctx context.Context,
	sessionID string,
	doc *domain.ComplianceDocument,
) (*domain.RevisionComparison, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "submit revision", err)
	}

	stored, err := uc.analyses.Submit(ctx, doc)
	if err != nil {
		return nil, err
	}

	appended, err := uc.appendIteration(ctx, session.ID, domain.Iteration{
		Kind:    domain.IterationRevisedUpload,
		Payload: domain.IterationPayload{AnalysisID: stored.ID},
	})
	if err != nil {
		return nil, err
	}

	history, err := uc.sessions.ListIterations(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list session iterations: %w", err)
	}
	return uc.comparison.compareRevision(ctx, *session, history, indexOfIteration(history, appended.ID))
}

func (uc *SessionUseCase) appendIteration(ctx context.Context, sessionID string, it domain.Iteration) (domain.Iteration, error) {
	it.SessionID = strings.TrimSpace(sessionID)
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Timestamp.IsZero() {
		it.Timestamp = time.Now().UTC()
	}
	it.Seq = 0
	if err := it.Validate(); err != nil {
		return domain.Iteration{}, err
	}

	if _, err := uc.sessions.GetSession(ctx, it.SessionID); err != nil {
		return domain.Iteration{}, fmt.Errorf("fetch session: %w", err)
	}
	if it.Payload.AnalysisID != "" {
		if _, err := uc.analyses.load(ctx, it.Payload.AnalysisID); err != nil {
			return domain.Iteration{}, err
		}
	}

	// An abandoned request must not leave an entry behind.
	if err := ctx.Err(); err != nil {
		return domain.Iteration{}, err
	}
	appended, err := uc.sessions.AppendIteration(ctx, it)
	if err != nil {
		return domain.Iteration{}, fmt.Errorf("append iteration: %w", err)
	}
	return appended, nil
}

func indexOfIteration(history []domain.Iteration, id string) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == id {
			return i
		}
	}
	return -1
}
