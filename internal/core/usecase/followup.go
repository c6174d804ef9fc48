package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/label-compliance/internal/core/compliance"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

type FollowUpUseCase struct {
	sessions   *SessionUseCase
	store      ports.SessionStore
	classifier ports.ComplianceClassifier
	generator  ports.AnswerGenerator
}

func NewFollowUpUseCase(
	repo ports.AnalysisRepository,
	store ports.SessionStore,
	classifier ports.ComplianceClassifier,
	generator ports.AnswerGenerator,
) *FollowUpUseCase {
	return &FollowUpUseCase{
		sessions:   NewSessionUseCase(repo, store),
		store:      store,
		classifier: classifier,
		generator:  generator,
	}
}

// Ask answers a question about the session's active document and records
// the exchange as a chat iteration.
func (uc *FollowUpUseCase) Ask(ctx context.Context, sessionID, question string) (*domain.Iteration, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask follow-up", errors.New("question is required"))
	}

	active, history, err := uc.activeDocument(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answer, err := uc.generator.AnswerFollowUp(ctx, question, active, history)
	if err != nil {
		return nil, fmt.Errorf("generate follow-up answer: %w", err)
	}

	it, err := uc.sessions.appendIteration(ctx, sessionID, domain.Iteration{
		Kind:    domain.IterationChat,
		Payload: domain.IterationPayload{Message: question, Response: answer},
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// TextCheck evaluates alternative label text and compares the result against
// the active document. The active document itself stays unchanged.
func (uc *FollowUpUseCase) TextCheck(ctx context.Context, sessionID, labelText string) (*domain.TextCheckResult, error) {
	labelText = strings.TrimSpace(labelText)
	if labelText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "text check", errors.New("label text is required"))
	}

	active, _, err := uc.activeDocument(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	evaluated, err := uc.classifier.Evaluate(ctx, labelText, active.Category)
	if err != nil {
		return nil, fmt.Errorf("evaluate label text: %w", err)
	}
	stored, err := uc.sessions.analyses.Submit(ctx, evaluated)
	if err != nil {
		return nil, err
	}

	it, err := uc.sessions.appendIteration(ctx, sessionID, domain.Iteration{
		Kind:    domain.IterationTextCheck,
		Payload: domain.IterationPayload{LabelText: labelText, AnalysisID: stored.ID},
	})
	if err != nil {
		return nil, err
	}

	return &domain.TextCheckResult{
		Iteration:  it,
		Document:   stored,
		Comparison: compliance.Compare(active, stored),
	}, nil
}

func (uc *FollowUpUseCase) activeDocument(
	ctx context.Context,
	sessionID string,
) (*domain.ComplianceDocument, []domain.Iteration, error) {
	session, err := uc.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch session: %w", err)
	}
	history, err := uc.store.ListIterations(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list session iterations: %w", err)
	}
	doc, err := uc.sessions.analyses.Get(ctx, compliance.ActiveAnalysisID(*session, history))
	if err != nil {
		return nil, nil, err
	}
	return doc, history, nil
}
