package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ErrInvalidTransition indicates an execution status transition that the state
// machine does not allow.
var ErrInvalidTransition = errors.New("invalid execution status transition")

// Execution is one run of one workflow against one entity instance.
//
// The lifecycle is Pending -> Running -> {Completed, Failed}; both end states are
// terminal and no transition is reversible. A Failed execution is never resumed,
// it has to be re-triggered from scratch by a new event.
type Execution struct {
	ID         int64     `json:"id"`
	WorkflowID int64     `json:"workflow_id"   validate:"required"`
	TenantID   uuid.UUID `json:"tenant_id"     validate:"required"`
	EntityID   string    `json:"entity_id"     validate:"required,max=100"`
	EntityType string    `json:"entity_type"   validate:"required,max=100"`

	// TriggerData is the serialized event payload snapshot taken at trigger time.
	// Immutable after creation.
	TriggerData string `json:"trigger_data,omitempty"`

	TriggeredBy *uuid.UUID `json:"triggered_by,omitempty"`

	Status       ExecutionStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`

	// Progress counters, exposed for observability only. They are never used to
	// resume a run.
	CurrentStepOrder int `json:"current_step_order"`
	TotalSteps       int `json:"total_steps"`
	CompletedSteps   int `json:"completed_steps"`
	FailedSteps      int `json:"failed_steps"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewExecution creates a Pending execution for one workflow run. totalSteps is
// the count of enabled steps at creation time; it is not re-derived later.
func NewExecution(workflow *Workflow, entityID string, triggerData string, triggeredBy *uuid.UUID) *Execution {
	now := time.Now().UTC()

	return &Execution{
		WorkflowID:  workflow.ID,
		TenantID:    workflow.TenantID,
		EntityID:    entityID,
		EntityType:  workflow.EntityType,
		TriggerData: triggerData,
		TriggeredBy: triggeredBy,
		Status:      ExecutionStatusPending,
		TotalSteps:  len(workflow.EnabledSteps()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start moves the execution from Pending to Running. Starting from any other
// state returns ErrInvalidTransition rather than being idempotent, so a second
// job delivery for the same execution is detectable by the caller.
func (e *Execution) Start() error {
	if e.Status != ExecutionStatusPending {
		return fmt.Errorf("%w: cannot start execution %d from %q", ErrInvalidTransition, e.ID, e.Status)
	}

	e.Status = ExecutionStatusRunning
	e.StartedAt = time.Now().UTC()
	e.UpdatedAt = e.StartedAt

	return nil
}

// Complete moves the execution from Running to Completed.
func (e *Execution) Complete() error {
	if e.Status != ExecutionStatusRunning {
		return fmt.Errorf("%w: cannot complete execution %d from %q", ErrInvalidTransition, e.ID, e.Status)
	}

	now := time.Now().UTC()
	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &now
	e.UpdatedAt = now

	return nil
}

// Fail moves the execution to Failed and records the reason. Failing is also
// allowed directly from Pending, which covers lookups that fail before Start.
func (e *Execution) Fail(reason string) error {
	if e.Status != ExecutionStatusRunning && e.Status != ExecutionStatusPending {
		return fmt.Errorf("%w: cannot fail execution %d from %q", ErrInvalidTransition, e.ID, e.Status)
	}

	now := time.Now().UTC()
	e.Status = ExecutionStatusFailed
	e.ErrorMessage = reason
	e.CompletedAt = &now
	e.UpdatedAt = now

	return nil
}

// IsTerminal reports whether the execution reached Completed or Failed.
func (e *Execution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// MarkStep records the outcome of one processed step for progress reporting.
func (e *Execution) MarkStep(stepOrder int, failed bool) {
	e.CurrentStepOrder = stepOrder

	if failed {
		e.FailedSteps++
	} else {
		e.CompletedSteps++
	}

	e.UpdatedAt = time.Now().UTC()
}
