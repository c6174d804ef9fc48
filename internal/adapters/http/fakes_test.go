package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kirillkom/label-compliance/internal/config"
	"github.com/kirillkom/label-compliance/internal/core/compliance"
	"github.com/kirillkom/label-compliance/internal/core/domain"
)

type analysisFake struct {
	docs   map[string]*domain.ComplianceDocument
	queued []*domain.ComplianceDocument
	err    error
}

func (f *analysisFake) Enqueue(_ context.Context, doc *domain.ComplianceDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queued = append(f.queued, doc)
	return "an-queued", nil
}

func (f *analysisFake) Submit(_ context.Context, doc *domain.ComplianceDocument) (*domain.ComplianceDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	if doc.OverallStatus == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("overall_status is required"))
	}
	stored := *doc
	stored.ID = "an-new"
	f.docs[stored.ID] = &stored
	return &stored, nil
}

func (f *analysisFake) Get(_ context.Context, id string) (*domain.ComplianceDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", errors.New("id="+id))
	}
	return doc, nil
}

type categoryFake struct {
	analyses   *analysisFake
	selections []domain.CategorySelection
}

func (f *categoryFake) Disambiguation(ctx context.Context, analysisID string) (domain.DisambiguationView, error) {
	doc, err := f.analyses.Get(ctx, analysisID)
	if err != nil {
		return domain.DisambiguationView{}, err
	}
	return compliance.NewDisambiguation(doc).View(), nil
}

func (f *categoryFake) CompareCategories(ctx context.Context, analysisID string) (domain.DisambiguationView, error) {
	doc, err := f.analyses.Get(ctx, analysisID)
	if err != nil {
		return domain.DisambiguationView{}, err
	}
	d := compliance.NewDisambiguation(doc)
	if _, err := d.Compare(doc.CategoryOptions); err != nil {
		return domain.DisambiguationView{}, err
	}
	return d.View(), nil
}

func (f *categoryFake) SelectCategory(ctx context.Context, analysisID, selected, reason string) (*domain.ComplianceDocument, domain.CategorySelection, error) {
	doc, err := f.analyses.Get(ctx, analysisID)
	if err != nil {
		return nil, domain.CategorySelection{}, err
	}
	selection, err := compliance.NewDisambiguation(doc).Select(selected, reason, time.Now())
	if err != nil {
		return nil, domain.CategorySelection{}, err
	}
	f.selections = append(f.selections, selection)
	return doc, selection, nil
}

func (f *categoryFake) Selections(ctx context.Context, analysisID string) ([]domain.CategorySelection, error) {
	if _, err := f.analyses.Get(ctx, analysisID); err != nil {
		return nil, err
	}
	return f.selections, nil
}

type sessionFake struct {
	history []domain.Iteration
	err     error
}

func (f *sessionFake) EnsureSession(_ context.Context, analysisID string) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Session{ID: "sess-1", OriginAnalysisID: analysisID}, nil
}

func (f *sessionFake) Append(_ context.Context, sessionID string, it domain.Iteration) ([]domain.Iteration, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	it.SessionID = sessionID
	it.Seq = int64(len(f.history) + 1)
	f.history = append(f.history, it)
	return f.history, nil
}

func (f *sessionFake) History(context.Context, string) ([]domain.Iteration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *sessionFake) SubmitRevision(_ context.Context, _ string, doc *domain.ComplianceDocument) (*domain.RevisionComparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	previous := &domain.ComplianceDocument{ID: "an-1", OverallStatus: domain.StatusNonCompliant}
	return &domain.RevisionComparison{
		Comparison: compliance.Compare(previous, doc),
		Previous:   previous,
		Current:    doc,
	}, nil
}

type comparisonFake struct {
	err error
}

func (comparisonFake) CompareDocuments(previous, current *domain.ComplianceDocument) domain.ComparisonResult {
	return compliance.Compare(previous, current)
}

func (f comparisonFake) CompareAnalyses(context.Context, string, string) (*domain.RevisionComparison, error) {
	return nil, f.err
}

func (f comparisonFake) CompareLatestRevision(context.Context, string) (*domain.RevisionComparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RevisionComparison{}, nil
}

type followUpFake struct {
	err error
}

func (f followUpFake) Ask(_ context.Context, sessionID, question string) (*domain.Iteration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Iteration{
		SessionID: sessionID,
		Kind:      domain.IterationChat,
		Payload:   domain.IterationPayload{Message: question, Response: "answer"},
	}, nil
}

func (f followUpFake) TextCheck(_ context.Context, sessionID, labelText string) (*domain.TextCheckResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TextCheckResult{
		Iteration: domain.Iteration{
			SessionID: sessionID,
			Kind:      domain.IterationTextCheck,
			Payload:   domain.IterationPayload{LabelText: labelText},
		},
	}, nil
}

func seededServices() Services {
	analyses := &analysisFake{docs: map[string]*domain.ComplianceDocument{
		"an-1": {
			ID:                   "an-1",
			OverallStatus:        domain.StatusNonCompliant,
			Category:             "conventional_food",
			CategoryAlternatives: []string{"dietary_supplement"},
		},
	}}
	return Services{
		Analyses:    analyses,
		Categories:  &categoryFake{analyses: analyses},
		Sessions:    &sessionFake{},
		Comparisons: comparisonFake{},
		FollowUps:   followUpFake{},
	}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, seededServices()).Handler()
}
