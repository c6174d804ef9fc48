package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/label-compliance/internal/bootstrap"
	"github.com/kirillkom/label-compliance/internal/config"
	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/observability/logging"
	"github.com/kirillkom/label-compliance/internal/observability/metrics"
)

const (
	serviceName   = "compliance-worker"
	intakeTimeout = 30 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSAnalysisSubject)
	err = app.Queue.SubscribeAnalysisCompleted(ctx, func(handlerCtx context.Context, doc *domain.ComplianceDocument) error {
		intakeCtx, cancel := context.WithTimeout(handlerCtx, intakeTimeout)
		defer cancel()

		if !doc.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(doc.CreatedAt))
		}
		workerMetrics.StartIntake()
		start := time.Now()
		stored, err := app.AnalysisUC.Submit(intakeCtx, doc)
		workerMetrics.FinishIntake(time.Since(start), err)
		if domain.IsKind(err, domain.ErrConflict) {
			slog.Warn("analysis_already_stored", "analysis_id", doc.ID)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("analysis_stored", "analysis_id", stored.ID, "overall_status", stored.OverallStatus)
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
	}
}
