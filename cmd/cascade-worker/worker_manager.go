package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/locker"
	"github.com/cascadeflow/cascade/pkg/otelhelper"
	"github.com/cascadeflow/cascade/pkg/persistence"
	"github.com/cascadeflow/cascade/pkg/registry"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

// Each execution job is guarded by a short-lived lock so that a redelivered
// message never runs the same execution on two workers at once.
const executionLockTTL = 5 * time.Minute

type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	locker      locker.Locker
	tracer      trace.Tracer
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	locker locker.Locker,
	logger *slog.Logger,
	registry *registry.Registry,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "cascade-worker", "worker_id", id),
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		locker:      locker,
		tracer:      noop.NewTracerProvider().Tracer("cascade-worker"),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err := otelhelper.NewTracer(ctx, "cascade-worker")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		w.tracer = tracer
	}

	err := w.eventBus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionRequested")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", requested.WorkflowID,
		"execution_id", requested.ExecutionID,
		"event_id", requested.ID,
	)
	logger.InfoContext(ctx, "Processing execution request")

	lockKey := fmt.Sprintf("execution:%s:%d", requested.TenantID, requested.ExecutionID)

	acquired, err := w.locker.Acquire(ctx, lockKey, executionLockTTL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire execution lock", "error", err)

		return err
	}

	if !acquired {
		logger.InfoContext(ctx, "Execution is already being processed elsewhere, skipping")

		return nil
	}

	defer func() {
		if releaseErr := w.locker.Release(ctx, lockKey); releaseErr != nil {
			logger.ErrorContext(ctx, "Failed to release execution lock", "error", releaseErr)
		}
	}()

	spanCtx, span := otelhelper.StartSpan(ctx, w.tracer, "execution.process",
		attribute.Int64(otelhelper.WorkflowIDKey, requested.WorkflowID),
		attribute.Int64(otelhelper.ExecutionIDKey, requested.ExecutionID),
		attribute.String(otelhelper.TenantIDKey, requested.TenantID.String()),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	started := time.Now()

	executor := workflow.NewExecutor(w.persistence, w.registry, logger)

	err = executor.ProcessExecution(spanCtx, requested.TenantID, requested.ExecutionID)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Execution failed", "error", err)
		w.publishFailed(ctx, requested, err, time.Since(started))

		return err
	}

	logger.InfoContext(ctx, "Execution processed", "duration", time.Since(started))
	w.publishCompleted(ctx, requested, time.Since(started))

	return nil
}

func (w *WorkerManager) publishCompleted(ctx context.Context, requested *events.ExecutionRequested, duration time.Duration) {
	completed := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, requested.WorkflowID),
		ExecutionID: requested.ExecutionID,
		TenantID:    requested.TenantID,
		Duration:    duration,
	}
	completed.WorkerID = w.id

	if err := w.eventBus.Publish(ctx, fmt.Sprintf("%d", requested.WorkflowID), completed); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish execution completed event", "error", err)
	}
}

func (w *WorkerManager) publishFailed(ctx context.Context, requested *events.ExecutionRequested, execErr error, duration time.Duration) {
	failed := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, requested.WorkflowID),
		ExecutionID: requested.ExecutionID,
		TenantID:    requested.TenantID,
		Error:       execErr.Error(),
		Duration:    duration,
	}
	failed.WorkerID = w.id

	if err := w.eventBus.Publish(ctx, fmt.Sprintf("%d", requested.WorkflowID), failed); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish execution failed event", "error", err)
	}
}
