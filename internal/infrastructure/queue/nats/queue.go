package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/infrastructure/resilience"
)

const workerQueueGroup = "workers"

type Subjects struct {
	AnalysisCompleted string
	CategorySelected  string
}

type Queue struct {
	conn     *nats.Conn
	subjects Subjects
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string, subjects Subjects) (*Queue, error) {
	return NewWithOptions(url, subjects, Options{})
}

func NewWithOptions(url string, subjects Subjects, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("label-compliance"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subjects: subjects,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisCompleted(ctx context.Context, doc *domain.ComplianceDocument) error {
	if doc == nil {
		return domain.WrapError(domain.ErrInvalidInput, "publish analysis completed", errors.New("document is required"))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return q.publish(ctx, q.subjects.AnalysisCompleted, data)
}

func (q *Queue) PublishCategorySelected(ctx context.Context, selection domain.CategorySelection) error {
	data, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshal category selection: %w", err)
	}
	return q.publish(ctx, q.subjects.CategorySelected, data)
}

// SubscribeAnalysisCompleted blocks until ctx is cancelled, then drains the
// subscription so in-flight documents are handled before returning.
func (q *Queue) SubscribeAnalysisCompleted(
	ctx context.Context,
	handler func(context.Context, *domain.ComplianceDocument) error,
) error {
	sub, err := q.conn.QueueSubscribe(q.subjects.AnalysisCompleted, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		doc, err := decodeAnalysis(msg.Data)
		if err != nil {
			slog.Error("analysis_message_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, doc); err != nil {
			slog.Error("analysis_handler_failed", "analysis_id", doc.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) publish(ctx context.Context, subject string, data []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return publishError(subject, err)
}

func decodeAnalysis(data []byte) (*domain.ComplianceDocument, error) {
	var doc domain.ComplianceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode analysis message", err)
	}
	return &doc, nil
}
