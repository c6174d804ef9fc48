package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

type memAnalysisRepo struct {
	mu        sync.Mutex
	docs      map[string]domain.ComplianceDocument
	createErr error
	updateErr error
	updates   int
}

func newMemAnalysisRepo(docs ...*domain.ComplianceDocument) *memAnalysisRepo {
	repo := &memAnalysisRepo{docs: make(map[string]domain.ComplianceDocument)}
	for _, doc := range docs {
		repo.docs[doc.ID] = *doc
	}
	return repo
}

func (r *memAnalysisRepo) Create(_ context.Context, doc *domain.ComplianceDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memAnalysisRepo) GetByID(_ context.Context, id string) (*domain.ComplianceDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id %s", id))
	}
	return &doc, nil
}

func (r *memAnalysisRepo) UpdateCategory(_ context.Context, id, category string, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrAnalysisNotFound, "update category", fmt.Errorf("id %s", id))
	}
	doc.Category = category
	doc.CategoryConfirmed = confirmed
	r.docs[id] = doc
	r.updates++
	return nil
}

type memSessionStore struct {
	mu         sync.Mutex
	sessions   map[string]domain.Session
	byAnalysis map[string]string
	iterations map[string][]domain.Iteration
	appendErr  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions:   make(map[string]domain.Session),
		byAnalysis: make(map[string]string),
		iterations: make(map[string][]domain.Iteration),
	}
}

func (s *memSessionStore) EnsureSession(_ context.Context, session domain.Session) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byAnalysis[session.OriginAnalysisID]; ok {
		existing := s.sessions[id]
		return &existing, nil
	}
	s.sessions[session.ID] = session
	s.byAnalysis[session.OriginAnalysisID] = session.ID
	return &session, nil
}

func (s *memSessionStore) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", sessionID))
	}
	return &session, nil
}

func (s *memSessionStore) AppendIteration(_ context.Context, it domain.Iteration) (domain.Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return domain.Iteration{}, s.appendErr
	}
	if _, ok := s.sessions[it.SessionID]; !ok {
		return domain.Iteration{}, domain.WrapError(domain.ErrSessionNotFound, "append iteration", fmt.Errorf("id %s", it.SessionID))
	}
	it.Seq = int64(len(s.iterations[it.SessionID]) + 1)
	s.iterations[it.SessionID] = append(s.iterations[it.SessionID], it)
	return it, nil
}

func (s *memSessionStore) ListIterations(_ context.Context, sessionID string) ([]domain.Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Iteration(nil), s.iterations[sessionID]...), nil
}

type selectionLogFake struct {
	mu         sync.Mutex
	selections []domain.CategorySelection
	err        error
}

func (f *selectionLogFake) RecordSelection(_ context.Context, selection domain.CategorySelection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.selections = append(f.selections, selection)
	return nil
}

func (f *selectionLogFake) ListSelections(_ context.Context, analysisID string) ([]domain.CategorySelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CategorySelection, 0)
	for _, s := range f.selections {
		if s.AnalysisID == analysisID {
			out = append(out, s)
		}
	}
	return out, nil
}

type eventQueueFake struct {
	selected   []domain.CategorySelection
	completed  []*domain.ComplianceDocument
	publishErr error
}

func (f *eventQueueFake) PublishAnalysisCompleted(_ context.Context, doc *domain.ComplianceDocument) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.completed = append(f.completed, doc)
	return nil
}

func (f *eventQueueFake) SubscribeAnalysisCompleted(context.Context, func(context.Context, *domain.ComplianceDocument) error) error {
	return nil
}

func (f *eventQueueFake) PublishCategorySelected(_ context.Context, selection domain.CategorySelection) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.selected = append(f.selected, selection)
	return nil
}

type catalogFake map[string]domain.CategoryOption

func (c catalogFake) Options() map[string]domain.CategoryOption { return c }

type evaluatorFake struct {
	doc      *domain.ComplianceDocument
	err      error
	lastText string
	lastHint string
}

func (f *evaluatorFake) Evaluate(_ context.Context, labelText, categoryHint string) (*domain.ComplianceDocument, error) {
	f.lastText = labelText
	f.lastHint = categoryHint
	if f.err != nil {
		return nil, f.err
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

type answerFake struct {
	answer     string
	err        error
	lastDocID  string
	historyLen int
}

func (f *answerFake) AnswerFollowUp(_ context.Context, _ string, doc *domain.ComplianceDocument, history []domain.Iteration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastDocID = doc.ID
	f.historyLen = len(history)
	return f.answer, nil
}

func fieldsWith(statuses ...domain.ComplianceStatus) map[string]domain.FieldResult {
	out := make(map[string]domain.FieldResult, len(statuses))
	for i, status := range statuses {
		out[fmt.Sprintf("field_%d", i)] = domain.FieldResult{Status: status}
	}
	return out
}

func docWithIssues(id string, overall domain.ComplianceStatus, statuses ...domain.ComplianceStatus) *domain.ComplianceDocument {
	return &domain.ComplianceDocument{
		ID:            id,
		OverallStatus: overall,
		Category:      "conventional_food",
		Sections: domain.Sections{
			GeneralLabeling: &domain.SectionResult{Fields: fieldsWith(statuses...)},
		},
	}
}
