package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
	"github.com/cascadeflow/cascade/pkg/protocol"
	"github.com/cascadeflow/cascade/pkg/registry"
)

// Executor drives one workflow execution through its ordered steps: delay,
// handler dispatch, and failure policy per step, until the execution reaches a
// terminal state.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger

	// delayUnit is the duration of one step delay minute. Tests shrink it.
	delayUnit time.Duration
}

func NewExecutor(persistence persistence.Persistence, registry *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: persistence,
		registry:    registry,
		logger:      logger.With("module", "step_executor"),
		delayUnit:   time.Minute,
	}
}

// ProcessExecution loads the execution and its workflow and processes each
// enabled step in step order. It returns a non-nil error when the execution
// could not be processed or ended in the failed state.
//
// The execution is left untouched when it is already terminal, so re-delivered
// jobs are no-ops. A context cancellation aborts processing without forcing a
// terminal transition; the caller decides how to surface the aborted run.
// Panics anywhere in processing are converted to a failed execution and an
// error return, never propagated.
func (ex *Executor) ProcessExecution(ctx context.Context, tenantID uuid.UUID, executionID int64) (err error) {
	logger := ex.logger.With("execution_id", executionID, "tenant_id", tenantID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Execution processing panicked", "panic", r)
			ex.failBestEffort(ctx, logger, tenantID, executionID, fmt.Sprintf("unexpected error: %v", r))
			err = fmt.Errorf("execution %d processing panicked: %v", executionID, r)
		}
	}()

	execution, err := ex.persistence.Executions().GetByID(ctx, tenantID, executionID)
	if err != nil {
		logger.Error("Failed to load execution", "error", err)

		return fmt.Errorf("failed to load execution %d: %w", executionID, err)
	}

	if execution.IsTerminal() {
		logger.Info("Execution already terminal, nothing to do", "status", execution.Status)

		return nil
	}

	logger = logger.With("workflow_id", execution.WorkflowID)

	wf, err := ex.persistence.Workflows().GetByIDWithSteps(ctx, tenantID, execution.WorkflowID)
	if err != nil {
		reason := "workflow not found"
		if !persistence.IsWorkflowNotFound(err) {
			reason = err.Error()
		}

		logger.Error("Failed to load workflow for execution", "error", err)
		ex.fail(ctx, logger, execution, reason)

		return fmt.Errorf("failed to load workflow %d: %w", execution.WorkflowID, err)
	}

	// The coordinator normally starts the execution before enqueueing it; a
	// still-Pending execution means the job arrived first or was enqueued
	// directly, so transition here.
	if execution.Status == models.ExecutionStatusPending {
		if startErr := execution.Start(); startErr != nil {
			logger.Error("Failed to start execution", "error", startErr)
			ex.fail(ctx, logger, execution, startErr.Error())

			return startErr
		}

		ex.persistProgress(ctx, logger, execution)
	}

	steps := wf.EnabledSteps()
	triggerData := deserializeTriggerData(logger, execution.TriggerData)

	logger.Info("Processing execution", "workflow_name", wf.Name, "steps", len(steps))

	for _, step := range steps {
		stepLogger := logger.With(
			"step_id", step.ID,
			"step_order", step.StepOrder,
			"action_type", step.ActionType,
		)

		// The delay is unconditional per step, incurred even when no handler
		// exists for the action type.
		if err := ex.delay(ctx, stepLogger, step); err != nil {
			return err
		}

		record := models.NewStepExecution(execution, step)

		handler, found := ex.registry.Dispatch(step.ActionType)
		if !found {
			reason := "no handler for action type: " + step.ActionType

			if step.ContinueOnError {
				stepLogger.Warn("No handler for action type, continue-on-error set, skipping step")
				record.Skip(reason)
				ex.recordStep(ctx, stepLogger, record)
				execution.MarkStep(step.StepOrder, true)
				ex.persistProgress(ctx, stepLogger, execution)

				continue
			}

			record.Fail(reason)
			ex.recordStep(ctx, stepLogger, record)
			ex.fail(ctx, stepLogger, execution, reason)

			return errors.New(reason)
		}

		output, execErr := handler.Execute(ctx, protocol.ActionContext{
			WorkflowID:    wf.ID,
			ExecutionID:   execution.ID,
			StepID:        step.ID,
			ActionType:    step.ActionType,
			Configuration: step.ActionConfiguration,
			TenantID:      execution.TenantID,
			EntityID:      execution.EntityID,
			EntityType:    execution.EntityType,
			TriggerData:   triggerData,
			Logger:        stepLogger,
		})
		if execErr != nil {
			// A handler interrupted by cancellation is not a business failure.
			if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
				stepLogger.Info("Execution cancelled inside action handler")

				return execErr
			}

			record.Fail(execErr.Error())
			ex.recordStep(ctx, stepLogger, record)

			if step.ContinueOnError {
				stepLogger.Warn("Step failed, continue-on-error set, continuing", "error", execErr)
				execution.MarkStep(step.StepOrder, true)
				ex.persistProgress(ctx, stepLogger, execution)

				continue
			}

			stepLogger.Error("Step failed, failing execution", "error", execErr)
			ex.fail(ctx, stepLogger, execution, execErr.Error())

			return fmt.Errorf("step %d failed: %w", step.StepOrder, execErr)
		}

		stepLogger.Info("Step completed", "output", output)
		record.Complete(serializeOutput(stepLogger, output))
		ex.recordStep(ctx, stepLogger, record)
		execution.MarkStep(step.StepOrder, false)
		ex.persistProgress(ctx, stepLogger, execution)
	}

	if completeErr := execution.Complete(); completeErr != nil {
		logger.Error("Failed to complete execution", "error", completeErr)

		return completeErr
	}

	if updateErr := ex.persistence.Executions().Update(ctx, execution); updateErr != nil {
		logger.Error("Failed to persist completed execution", "error", updateErr)

		return fmt.Errorf("failed to persist completed execution: %w", updateErr)
	}

	logger.Info("Execution completed",
		"completed_steps", execution.CompletedSteps,
		"failed_steps", execution.FailedSteps)

	return nil
}

// delay suspends processing for the step's configured delay, honoring
// cancellation. Cancelling during the delay aborts the run with the context
// error and no status transition.
func (ex *Executor) delay(ctx context.Context, logger *slog.Logger, step *models.WorkflowStep) error {
	if step.DelayMinutes <= 0 {
		return nil
	}

	wait := time.Duration(step.DelayMinutes) * ex.delayUnit
	logger.Info("Delaying step", "delay", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		logger.Info("Execution cancelled during step delay")

		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fail transitions the execution to Failed and persists it, logging rather
// than propagating secondary failures.
func (ex *Executor) fail(ctx context.Context, logger *slog.Logger, execution *models.Execution, reason string) {
	if err := execution.Fail(reason); err != nil {
		logger.Error("Failed to transition execution to failed", "error", err)

		return
	}

	if err := ex.persistence.Executions().Update(ctx, execution); err != nil {
		logger.Error("Failed to persist failed execution", "error", err)
	}
}

// failBestEffort re-loads the execution and fails it, used on the panic path
// where the in-memory record may be stale or missing.
func (ex *Executor) failBestEffort(ctx context.Context, logger *slog.Logger, tenantID uuid.UUID, executionID int64, reason string) {
	execution, err := ex.persistence.Executions().GetByID(ctx, tenantID, executionID)
	if err != nil {
		logger.Error("Failed to load execution for failure recording", "error", err)

		return
	}

	if execution.IsTerminal() {
		return
	}

	ex.fail(ctx, logger, execution, reason)
}

// recordStep persists the per-step audit record. Best effort: the record is
// observability data and must not fail the run.
func (ex *Executor) recordStep(ctx context.Context, logger *slog.Logger, record *models.StepExecution) {
	if err := ex.persistence.StepExecutions().Create(ctx, record); err != nil {
		logger.Warn("Failed to persist step execution record", "error", err)
	}
}

func serializeOutput(logger *slog.Logger, output map[string]any) string {
	if len(output) == 0 {
		return ""
	}

	data, err := json.Marshal(output)
	if err != nil {
		logger.Warn("Failed to serialize step output", "error", err)

		return ""
	}

	return string(data)
}

// persistProgress updates the execution's progress counters. Best effort:
// progress is observability data and must not fail the run.
func (ex *Executor) persistProgress(ctx context.Context, logger *slog.Logger, execution *models.Execution) {
	if err := ex.persistence.Executions().Update(ctx, execution); err != nil {
		logger.Warn("Failed to persist execution progress", "error", err)
	}
}

func deserializeTriggerData(logger *slog.Logger, triggerData string) map[string]any {
	if triggerData == "" {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(triggerData), &data); err != nil {
		logger.Warn("Failed to deserialize trigger data, treating as empty", "error", err)

		return nil
	}

	return data
}
