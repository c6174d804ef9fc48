package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/label-compliance/internal/core/compliance"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

type CategoryUseCase struct {
	analyses   *AnalysisUseCase
	repo       ports.AnalysisRepository
	selections ports.SelectionLog
	events     ports.MessageQueue
	catalog    ports.CategoryCatalog
}

// NewCategoryUseCase wires category disambiguation. events and catalog may be nil.
func NewCategoryUseCase(
	repo ports.AnalysisRepository,
	selections ports.SelectionLog,
	events ports.MessageQueue,
	catalog ports.CategoryCatalog,
) *CategoryUseCase {
	return &CategoryUseCase{
		analyses:   NewAnalysisUseCase(repo),
		repo:       repo,
		selections: selections,
		events:     events,
		catalog:    catalog,
	}
}

func (uc *CategoryUseCase) Disambiguation(ctx context.Context, analysisID string) (domain.DisambiguationView, error) {
	doc, err := uc.analyses.load(ctx, analysisID)
	if err != nil {
		return domain.DisambiguationView{}, err
	}
	return compliance.NewDisambiguation(doc).View(), nil
}

func (uc *CategoryUseCase) CompareCategories(ctx context.Context, analysisID string) (domain.DisambiguationView, error) {
	doc, err := uc.analyses.load(ctx, analysisID)
	if err != nil {
		return domain.DisambiguationView{}, err
	}
	d := compliance.NewDisambiguation(doc)
	if _, err := d.Compare(uc.lookup(doc)); err != nil {
		return domain.DisambiguationView{}, err
	}
	return d.View(), nil
}

// SelectCategory commits the user's choice. Recording the selection event is
// best-effort and never undoes the category update.
func (uc *CategoryUseCase) SelectCategory(
	ctx context.Context,
	analysisID, selectedCategory, reason string,
) (*domain.ComplianceDocument, domain.CategorySelection, error) {
	doc, err := uc.analyses.load(ctx, analysisID)
	if err != nil {
		return nil, domain.CategorySelection{}, err
	}

	selection, err := compliance.NewDisambiguation(doc).Select(selectedCategory, reason, time.Now())
	if err != nil {
		return nil, domain.CategorySelection{}, err
	}

	if err := uc.repo.UpdateCategory(ctx, doc.ID, doc.Category, doc.CategoryConfirmed); err != nil {
		return nil, domain.CategorySelection{}, fmt.Errorf("update analysis category: %w", err)
	}

	uc.recordSelection(ctx, selection)
	return compliance.NormalizeDocument(doc), selection, nil
}

// Selections returns the recorded selection events of an analysis, oldest first.
func (uc *CategoryUseCase) Selections(ctx context.Context, analysisID string) ([]domain.CategorySelection, error) {
	doc, err := uc.analyses.load(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if uc.selections == nil {
		return []domain.CategorySelection{}, nil
	}
	out, err := uc.selections.ListSelections(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list category selections: %w", err)
	}
	return out, nil
}

func (uc *CategoryUseCase) recordSelection(ctx context.Context, selection domain.CategorySelection) {
	if uc.selections != nil {
		if err := uc.selections.RecordSelection(ctx, selection); err != nil {
			slog.Warn("category_selection_record_failed",
				"analysis_id", selection.AnalysisID,
				"selected_category", selection.SelectedCategory,
				"error", err,
			)
		}
	}
	if uc.events != nil {
		if err := uc.events.PublishCategorySelected(ctx, selection); err != nil {
			slog.Warn("category_selection_publish_failed",
				"analysis_id", selection.AnalysisID,
				"error", err,
			)
		}
	}
}

func (uc *CategoryUseCase) lookup(doc *domain.ComplianceDocument) map[string]domain.CategoryOption {
	var defaults map[string]domain.CategoryOption
	if uc.catalog != nil {
		defaults = uc.catalog.Options()
	}
	return compliance.MergeOptions(defaults, doc.CategoryOptions)
}
