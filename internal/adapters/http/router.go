package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/label-compliance/internal/config"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/core/ports"
)

const backpressureWait = 250 * time.Millisecond

// Services groups the inbound ports served over HTTP.
type Services struct {
	Analyses    ports.AnalysisService
	Categories  ports.CategoryService
	Sessions    ports.SessionService
	Comparisons ports.ComparisonService
	FollowUps   ports.FollowUpService
}

// ComplianceRecorder receives domain events worth exporting as metrics.
type ComplianceRecorder interface {
	RecordComparison(source string, result domain.ComparisonResult)
	RecordCategorySelection(selection domain.CategorySelection)
	RecordIteration(kind domain.IterationKind)
}

// MetricsProvider instruments requests and exposes the scrape endpoint.
type MetricsProvider interface {
	ComplianceRecorder
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
}

type Router struct {
	cfg     config.Config
	svc     Services
	metrics MetricsProvider
}

func NewRouter(cfg config.Config, svc Services) *Router {
	return &Router{cfg: cfg, svc: svc}
}

func (rt *Router) WithMetrics(m MetricsProvider) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(chiMiddleware.Recoverer)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler { return rt.metrics.Middleware("api", next) })
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	r.Get("/healthz", rt.healthz)

	r.Group(func(r chi.Router) {
		if rt.cfg.APIRateLimitRPS > 0 {
			r.Use(func(next http.Handler) http.Handler {
				return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
			})
		}
		if rt.cfg.APIMaxInFlight > 0 {
			r.Use(func(next http.Handler) http.Handler {
				return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, backpressureWait)
			})
		}

		r.Route("/v1/analyses", func(r chi.Router) {
			r.Post("/", rt.submitAnalysis)
			r.Post("/async", rt.enqueueAnalysis)
			r.Route("/{analysisID}", func(r chi.Router) {
				r.Get("/", rt.getAnalysis)
				r.Get("/disambiguation", rt.getDisambiguation)
				r.Get("/disambiguation/compare", rt.compareCategories)
				r.Post("/category", rt.selectCategory)
				r.Get("/selections", rt.listSelections)
				r.Post("/sessions", rt.ensureSession)
			})
		})
		r.Route("/v1/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/iterations", rt.listIterations)
			r.Post("/iterations", rt.appendIteration)
			r.Post("/revisions", rt.submitRevision)
			r.Post("/chat", rt.chat)
			r.Post("/text-check", rt.textCheck)
			r.Get("/comparison", rt.latestComparison)
		})
		r.Post("/v1/comparisons", rt.compareDocuments)
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	var doc domain.ComplianceDocument
	if !rt.decodeJSON(w, r, &doc) {
		return
	}

	stored, err := rt.svc.Analyses.Submit(r.Context(), &doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.svc.Categories.Disambiguation(r.Context(), stored.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"analysis":       stored,
		"disambiguation": view,
	})
}

func (rt *Router) enqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var doc domain.ComplianceDocument
	if !rt.decodeJSON(w, r, &doc) {
		return
	}

	id, err := rt.svc.Analyses.Enqueue(r.Context(), &doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"analysis_id": id, "status": "queued"})
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Analyses.Get(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getDisambiguation(w http.ResponseWriter, r *http.Request) {
	view, err := rt.svc.Categories.Disambiguation(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) compareCategories(w http.ResponseWriter, r *http.Request) {
	view, err := rt.svc.Categories.CompareCategories(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) selectCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedCategory string `json:"selected_category"`
		Reason           string `json:"reason"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	doc, selection, err := rt.svc.Categories.SelectCategory(r.Context(), chi.URLParam(r, "analysisID"), req.SelectedCategory, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCategorySelection(selection)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":  doc,
		"selection": selection,
	})
}

func (rt *Router) listSelections(w http.ResponseWriter, r *http.Request) {
	selections, err := rt.svc.Categories.Selections(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selections": selections})
}

func (rt *Router) ensureSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.svc.Sessions.EnsureSession(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) listIterations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history, err := rt.svc.Sessions.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "iterations": history})
}

func (rt *Router) appendIteration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind      domain.IterationKind    `json:"kind"`
		Payload   domain.IterationPayload `json:"payload"`
		Timestamp time.Time               `json:"timestamp"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	history, err := rt.svc.Sessions.Append(r.Context(), sessionID, domain.Iteration{
		Kind:      req.Kind,
		Payload:   req.Payload,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIteration(req.Kind)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": sessionID, "iterations": history})
}

func (rt *Router) submitRevision(w http.ResponseWriter, r *http.Request) {
	var doc domain.ComplianceDocument
	if !rt.decodeJSON(w, r, &doc) {
		return
	}

	result, err := rt.svc.Sessions.SubmitRevision(r.Context(), chi.URLParam(r, "sessionID"), &doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIteration(domain.IterationRevisedUpload)
		rt.metrics.RecordComparison("revision", result.Comparison)
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	it, err := rt.svc.FollowUps.Ask(r.Context(), chi.URLParam(r, "sessionID"), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIteration(domain.IterationChat)
	}
	writeJSON(w, http.StatusOK, it)
}

func (rt *Router) textCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LabelText string `json:"label_text"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	result, err := rt.svc.FollowUps.TextCheck(r.Context(), chi.URLParam(r, "sessionID"), req.LabelText)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIteration(domain.IterationTextCheck)
		rt.metrics.RecordComparison("text_check", result.Comparison)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) latestComparison(w http.ResponseWriter, r *http.Request) {
	result, err := rt.svc.Comparisons.CompareLatestRevision(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) compareDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Previous *domain.ComplianceDocument `json:"previous"`
		Current  *domain.ComplianceDocument `json:"current"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	if req.Previous == nil || req.Current == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "previous and current documents are required"})
		return
	}

	result := rt.svc.Comparisons.CompareDocuments(req.Previous, req.Current)
	if rt.metrics != nil {
		rt.metrics.RecordComparison("inline", result)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	body := r.Body
	if rt.cfg.APIMaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, rt.cfg.APIMaxBodyBytes)
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
