package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

func TestFollowUpAskRecordsChatIteration(t *testing.T) {
	repo := newMemAnalysisRepo(&domain.ComplianceDocument{ID: "a-1", Category: "conventional_food"})
	store := newMemSessionStore()
	generator := &answerFake{answer: "Add a sesame statement."}
	uc := NewFollowUpUseCase(repo, store, &evaluatorFake{}, generator)

	session, err := NewSessionUseCase(repo, store).EnsureSession(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	it, err := uc.Ask(context.Background(), session.ID, " What about allergens? ")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if it.Kind != domain.IterationChat || it.Seq != 1 {
		t.Fatalf("unexpected iteration: %+v", it)
	}
	if it.Payload.Message != "What about allergens?" || it.Payload.Response != "Add a sesame statement." {
		t.Fatalf("unexpected payload: %+v", it.Payload)
	}
	if generator.lastDocID != "a-1" {
		t.Fatalf("expected answer about the origin document, got %q", generator.lastDocID)
	}
}

func TestFollowUpAskGeneratorErrorLeavesNoEntry(t *testing.T) {
	repo := newMemAnalysisRepo(&domain.ComplianceDocument{ID: "a-1"})
	store := newMemSessionStore()
	uc := NewFollowUpUseCase(repo, store, &evaluatorFake{}, &answerFake{err: errors.New("llm down")})
	session, _ := NewSessionUseCase(repo, store).EnsureSession(context.Background(), "a-1")

	if _, err := uc.Ask(context.Background(), session.ID, "hi"); err == nil {
		t.Fatalf("expected error")
	}
	history, _ := store.ListIterations(context.Background(), session.ID)
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

func TestFollowUpAskRejectsBlankQuestion(t *testing.T) {
	uc := NewFollowUpUseCase(newMemAnalysisRepo(), newMemSessionStore(), &evaluatorFake{}, &answerFake{})

	if _, err := uc.Ask(context.Background(), "s-1", "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFollowUpTextCheckKeepsActiveDocument(t *testing.T) {
	origin := docWithIssues("a-1", domain.StatusNonCompliant, domain.StatusNonCompliant, domain.StatusNonCompliant)
	origin.Category = "dietary_supplement"
	repo := newMemAnalysisRepo(origin)
	store := newMemSessionStore()
	evaluator := &evaluatorFake{doc: docWithIssues("", domain.StatusLikelyCompliant, domain.StatusCompliant)}
	generator := &answerFake{answer: "ok"}
	uc := NewFollowUpUseCase(repo, store, evaluator, generator)
	ctx := context.Background()

	session, _ := NewSessionUseCase(repo, store).EnsureSession(ctx, "a-1")

	got, err := uc.TextCheck(ctx, session.ID, "Supplement Facts ...")
	if err != nil {
		t.Fatalf("TextCheck() error = %v", err)
	}
	if evaluator.lastHint != "dietary_supplement" {
		t.Fatalf("expected category hint from active document, got %q", evaluator.lastHint)
	}
	if got.Iteration.Kind != domain.IterationTextCheck || got.Iteration.Payload.AnalysisID != got.Document.ID {
		t.Fatalf("unexpected iteration: %+v", got.Iteration)
	}
	if got.Comparison.PreviousAnalysisID != "a-1" || got.Comparison.Improvement != 3 || !got.Comparison.StatusImproved {
		t.Fatalf("unexpected comparison: %+v", got.Comparison)
	}

	if _, err := uc.Ask(ctx, session.ID, "and now?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if generator.lastDocID != "a-1" {
		t.Fatalf("text check must not replace the active document, got %q", generator.lastDocID)
	}
	if generator.historyLen != 1 {
		t.Fatalf("expected history with the text check, got %d", generator.historyLen)
	}
}

func TestFollowUpTextCheckClassifierError(t *testing.T) {
	repo := newMemAnalysisRepo(&domain.ComplianceDocument{ID: "a-1"})
	store := newMemSessionStore()
	uc := NewFollowUpUseCase(repo, store, &evaluatorFake{err: errors.New("timeout")}, &answerFake{})
	session, _ := NewSessionUseCase(repo, store).EnsureSession(context.Background(), "a-1")

	if _, err := uc.TextCheck(context.Background(), session.ID, "label"); err == nil {
		t.Fatalf("expected error")
	}
	history, _ := store.ListIterations(context.Background(), session.ID)
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}
