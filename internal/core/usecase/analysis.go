package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/label-compliance/internal/core/compliance"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

type AnalysisUseCase struct {
	repo  ports.AnalysisRepository
	queue ports.MessageQueue
}

func NewAnalysisUseCase(repo ports.AnalysisRepository) *AnalysisUseCase {
	return &AnalysisUseCase{repo: repo}
}

// WithQueue enables Enqueue.
func (uc *AnalysisUseCase) WithQueue(queue ports.MessageQueue) *AnalysisUseCase {
	uc.queue = queue
	return uc
}

// Enqueue hands a classifier result to the intake worker instead of storing
// it inline. The returned id is the one the worker will store it under.
func (uc *AnalysisUseCase) Enqueue(ctx context.Context, doc *domain.ComplianceDocument) (string, error) {
	if doc == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "enqueue analysis", errors.New("document is required"))
	}
	if uc.queue == nil {
		return "", domain.WrapError(domain.ErrTemporary, "enqueue analysis", errors.New("message queue is not configured"))
	}

	queued := *doc
	queued.ID = strings.TrimSpace(queued.ID)
	if queued.ID == "" {
		queued.ID = uuid.NewString()
	}
	queued.CreatedAt = time.Now().UTC()
	if err := uc.queue.PublishAnalysisCompleted(ctx, &queued); err != nil {
		return "", fmt.Errorf("publish analysis: %w", err)
	}
	return queued.ID, nil
}

// Submit stores a document produced by the external classifier. The detected
// category is frozen here; later category changes go through SelectCategory.
func (uc *AnalysisUseCase) Submit(ctx context.Context, doc *domain.ComplianceDocument) (*domain.ComplianceDocument, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit analysis", errors.New("document is required"))
	}

	stored := *doc
	stored.ID = strings.TrimSpace(stored.ID)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Category = strings.TrimSpace(stored.Category)
	stored.DetectedCategory = stored.Category
	stored.CategoryConfirmed = false

	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := uc.repo.Create(ctx, &stored); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	return compliance.NormalizeDocument(&stored), nil
}

// Get returns the stored document in display order.
func (uc *AnalysisUseCase) Get(ctx context.Context, id string) (*domain.ComplianceDocument, error) {
	doc, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return compliance.NormalizeDocument(doc), nil
}

func (uc *AnalysisUseCase) load(ctx context.Context, id string) (*domain.ComplianceDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load analysis", errors.New("analysis id is required"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis by id: %w", err)
	}
	return doc, nil
}
