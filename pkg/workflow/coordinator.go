// Package workflow implements the trigger-and-execution engine: the coordinator
// that turns business events into execution records and jobs, and the executor
// that drives one execution through its steps.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
)

// TriggerEvent is one inbound business event, e.g. "Deal.StageChanged".
type TriggerEvent struct {
	TenantID    uuid.UUID
	EntityType  string
	EntityID    string
	TriggerType models.TriggerType
	TriggerData map[string]any
	TriggeredBy *uuid.UUID
}

// Coordinator decides which workflows fire for a business event, materializes
// execution records for them, and enqueues one job per execution. It performs
// no long-running work itself.
type Coordinator struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

func NewCoordinator(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger.With("module", "trigger_coordinator"),
	}
}

// TriggerWorkflows finds the active workflows registered for the event, filters
// them through their trigger conditions, creates and starts one execution per
// match, and enqueues each for asynchronous processing. It returns the number
// of executions successfully created and enqueued.
//
// A failure scoped to one workflow never aborts the loop for its siblings; only
// the initial candidate lookup failing is reported as an error.
func (c *Coordinator) TriggerWorkflows(ctx context.Context, event TriggerEvent) (count int, err error) {
	logger := c.logger.With(
		"tenant_id", event.TenantID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"trigger_type", event.TriggerType,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Trigger coordination panicked", "panic", r)
			err = fmt.Errorf("trigger coordination failed: %v", r)
		}
	}()

	candidates, err := c.persistence.Workflows().GetTriggeredWorkflows(ctx, event.TenantID, event.EntityType, event.TriggerType)
	if err != nil {
		logger.Error("Failed to fetch triggered workflows", "error", err)

		return 0, fmt.Errorf("failed to fetch triggered workflows: %w", err)
	}

	if len(candidates) == 0 {
		logger.Debug("No workflows registered for event")

		return 0, nil
	}

	logger.Info("Evaluating candidate workflows", "candidates", len(candidates))

	triggerData := serializeTriggerData(logger, event.TriggerData)

	for _, candidate := range candidates {
		if c.triggerOne(ctx, logger, candidate, event, triggerData) {
			count++
		}
	}

	logger.Info("Trigger coordination completed", "executions_created", count)

	return count, nil
}

// triggerOne runs the per-workflow pipeline: match, create, start, record run
// metadata, enqueue. Any failure is logged and isolated to this workflow.
func (c *Coordinator) triggerOne(ctx context.Context, logger *slog.Logger, wf *models.Workflow, event TriggerEvent, triggerData string) (created bool) {
	logger = logger.With("workflow_id", wf.ID, "workflow_name", wf.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Workflow trigger panicked", "panic", r)
			created = false
		}
	}()

	if !models.MatchesConditions(logger, wf.TriggerConditions, event.TriggerData) {
		logger.Debug("Trigger conditions did not match")

		return false
	}

	execution := models.NewExecution(wf, event.EntityID, triggerData, event.TriggeredBy)

	if err := c.persistence.Executions().Create(ctx, execution); err != nil {
		logger.Error("Failed to create execution", "error", err)

		return false
	}

	logger = logger.With("execution_id", execution.ID)

	if err := execution.Start(); err != nil {
		logger.Error("Failed to start execution", "error", err)

		return false
	}

	if err := c.persistence.Executions().Update(ctx, execution); err != nil {
		logger.Error("Failed to persist started execution", "error", err)

		return false
	}

	c.recordRun(ctx, logger, wf)

	if err := c.enqueue(ctx, execution); err != nil {
		logger.Error("Failed to enqueue execution job", "error", err)

		return false
	}

	c.publishTriggered(ctx, logger, wf, execution, event)

	logger.Info("Workflow triggered", "total_steps", execution.TotalSteps)

	return true
}

// recordRun updates the workflow's run metadata. A failure here is logged but
// does not prevent the execution from being enqueued.
func (c *Coordinator) recordRun(ctx context.Context, logger *slog.Logger, wf *models.Workflow) {
	now := time.Now().UTC()
	wf.LastRunAt = &now
	wf.ExecutionCount++

	if err := c.persistence.Workflows().Save(ctx, wf); err != nil {
		logger.Error("Failed to record workflow run metadata", "error", err)
	}
}

func (c *Coordinator) enqueue(ctx context.Context, execution *models.Execution) error {
	job := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		TenantID:    execution.TenantID,
	}
	job.ID = c.eventBus.GenerateID()

	return c.eventBus.Publish(ctx, fmt.Sprintf("execution-%d", execution.ID), job)
}

// publishTriggered emits the observer event. Best effort: the execution is
// already enqueued, so a publish failure only costs telemetry.
func (c *Coordinator) publishTriggered(ctx context.Context, logger *slog.Logger, wf *models.Workflow, execution *models.Execution, event TriggerEvent) {
	triggered := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, wf.ID),
		ExecutionID: execution.ID,
		TenantID:    execution.TenantID,
		EntityID:    event.EntityID,
		EntityType:  event.EntityType,
		TriggerType: string(event.TriggerType),
		TriggerData: event.TriggerData,
	}

	if err := c.eventBus.Publish(ctx, fmt.Sprintf("workflow-%d", wf.ID), triggered); err != nil {
		logger.Warn("Failed to publish workflow triggered event", "error", err)
	}
}

func serializeTriggerData(logger *slog.Logger, triggerData map[string]any) string {
	if triggerData == nil {
		return ""
	}

	payload, err := json.Marshal(triggerData)
	if err != nil {
		logger.Warn("Failed to serialize trigger data snapshot", "error", err)

		return ""
	}

	return string(payload)
}
