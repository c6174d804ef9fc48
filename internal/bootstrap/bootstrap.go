package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/label-compliance/internal/config"
	"github.com/kirillkom/label-compliance/internal/core/ports"
	"github.com/kirillkom/label-compliance/internal/core/usecase"
	"github.com/kirillkom/label-compliance/internal/infrastructure/catalog"
	"github.com/kirillkom/label-compliance/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/label-compliance/internal/infrastructure/queue/nats"
	"github.com/kirillkom/label-compliance/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/label-compliance/internal/infrastructure/resilience"
	sessionredis "github.com/kirillkom/label-compliance/internal/infrastructure/session/redis"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue

	AnalysisUC   *usecase.AnalysisUseCase
	CategoryUC   *usecase.CategoryUseCase
	SessionUC    *usecase.SessionUseCase
	ComparisonUC *usecase.ComparisonUseCase
	FollowUpUC   *usecase.FollowUpUseCase

	closeFns []func()
}

// New opens every backing service and wires the use cases. observer may be
// nil; when set it receives retry and breaker events from outbound calls.
func New(ctx context.Context, cfg config.Config, observer resilience.Observer) (*App, error) {
	app := &App{Config: cfg}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.onClose(func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	sessions, err := app.openSessionStore(cfg, db)
	if err != nil {
		app.Close()
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if observer != nil {
		executor.WithObserver(observer)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
		AnalysisCompleted: cfg.NATSAnalysisSubject,
		CategorySelected:  cfg.NATSCategorySelectSubject,
	}, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.onClose(queue.Close)
	app.Queue = queue

	categories, err := catalog.Load(cfg.CategoryCatalogPath)
	if err != nil {
		slog.Warn("category_catalog_unavailable", "path", cfg.CategoryCatalogPath, "error", err)
		categories = catalog.Empty()
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
		Timeout:            cfg.OllamaTimeout,
		ResilienceExecutor: executor,
	})
	classifier := ollama.NewClassifier(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	repo := postgres.NewAnalysisRepository(db)
	selections := postgres.NewSelectionRepository(db)

	app.AnalysisUC = usecase.NewAnalysisUseCase(repo).WithQueue(queue)
	app.CategoryUC = usecase.NewCategoryUseCase(repo, selections, queue, categories)
	app.SessionUC = usecase.NewSessionUseCase(repo, sessions)
	app.ComparisonUC = usecase.NewComparisonUseCase(repo, sessions)
	app.FollowUpUC = usecase.NewFollowUpUseCase(repo, sessions, classifier, generator)

	slog.Info("bootstrap_complete",
		"session_backend", cfg.SessionBackend,
		"categories", len(categories.Options()),
	)
	return app, nil
}

func (a *App) openSessionStore(cfg config.Config, db *sql.DB) (ports.SessionStore, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		store, err := sessionredis.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis session store: %w", err)
		}
		a.onClose(func() { _ = store.Close() })
		return store, nil
	default:
		return postgres.NewSessionRepository(db), nil
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig().WithMaxAttempts(cfg.ResilienceRetryMaxAttempts)
	out.Breaker.Enabled = cfg.ResilienceBreakerEnabled
	return out
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
