package models

import (
	"time"

	"github.com/google/uuid"
)

// StepExecutionStatus is the outcome of one processed step.
type StepExecutionStatus string

const (
	StepExecutionStatusCompleted StepExecutionStatus = "completed"
	StepExecutionStatusFailed    StepExecutionStatus = "failed"

	// StepExecutionStatusSkipped records a step that was passed over under
	// continue-on-error, e.g. because no handler claims its action type.
	StepExecutionStatusSkipped StepExecutionStatus = "skipped"
)

// StepExecution is the per-step audit record of one execution: which step ran,
// when, with what input, and how it ended. Records are written once per
// processed step and never updated.
type StepExecution struct {
	ID          int64     `json:"id"`
	ExecutionID int64     `json:"execution_id"   validate:"required"`
	StepID      int64     `json:"step_id"        validate:"required"`
	TenantID    uuid.UUID `json:"tenant_id"      validate:"required"`

	StepName   string `json:"step_name"`
	ActionType string `json:"action_type"`
	StepOrder  int    `json:"step_order"`

	Status StepExecutionStatus `json:"status"`

	// InputData is the step's action configuration as handed to the handler;
	// OutputData is the handler's serialized output map.
	InputData  string `json:"input_data,omitempty"`
	OutputData string `json:"output_data,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewStepExecution opens the audit record for one step of one execution,
// stamping the start time. The caller resolves it with Complete, Fail or Skip.
func NewStepExecution(execution *Execution, step *WorkflowStep) *StepExecution {
	now := time.Now().UTC()

	return &StepExecution{
		ExecutionID: execution.ID,
		StepID:      step.ID,
		TenantID:    execution.TenantID,
		StepName:    step.Name,
		ActionType:  step.ActionType,
		StepOrder:   step.StepOrder,
		InputData:   step.ActionConfiguration,
		StartedAt:   now,
		CreatedAt:   now,
	}
}

// Complete marks the step as succeeded and captures the handler's output.
func (s *StepExecution) Complete(outputData string) {
	now := time.Now().UTC()
	s.Status = StepExecutionStatusCompleted
	s.OutputData = outputData
	s.CompletedAt = &now
}

// Fail marks the step as failed and records the reason.
func (s *StepExecution) Fail(reason string) {
	now := time.Now().UTC()
	s.Status = StepExecutionStatusFailed
	s.ErrorMessage = reason
	s.CompletedAt = &now
}

// Skip marks the step as passed over and records why.
func (s *StepExecution) Skip(reason string) {
	now := time.Now().UTC()
	s.Status = StepExecutionStatusSkipped
	s.ErrorMessage = reason
	s.CompletedAt = &now
}
