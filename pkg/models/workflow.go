// Package models defines the core domain records for event-triggered workflow automation.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType is the category of business event that can start a workflow.
type TriggerType string

const (
	TriggerTypeCreated      TriggerType = "created"
	TriggerTypeUpdated      TriggerType = "updated"
	TriggerTypeDeleted      TriggerType = "deleted"
	TriggerTypeStageChanged TriggerType = "stage_changed"
	TriggerTypeScheduled    TriggerType = "scheduled"
	TriggerTypeManual       TriggerType = "manual"
)

// Workflow is a stored automation definition: a trigger plus an ordered list of steps.
type Workflow struct {
	ID          int64       `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"               validate:"required"`
	Name        string      `json:"name"                    validate:"required,min=3,max=200"`
	Description string      `json:"description,omitempty"   validate:"max=1000"`
	EntityType  string      `json:"entity_type"             validate:"required,max=100"`
	TriggerType TriggerType `json:"trigger_type"            validate:"required"`

	// TriggerConditions is a JSON object mapping field names to expected values.
	// Empty means the workflow always matches its trigger.
	TriggerConditions string `json:"trigger_conditions,omitempty"`

	// Schedule is a cron expression, used only when TriggerType is scheduled.
	Schedule string `json:"schedule,omitempty"`

	Steps []*WorkflowStep `json:"steps"`

	IsActive bool `json:"is_active"`

	// ExecutionOrder orders candidate workflows matched by the same event.
	ExecutionOrder int `json:"execution_order"`

	ExecutionCount int        `json:"execution_count"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`

	CreatedBy uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnabledSteps returns the workflow's enabled steps sorted ascending by StepOrder.
// Ties keep their stored order (stable sort).
func (w *Workflow) EnabledSteps() []*WorkflowStep {
	steps := make([]*WorkflowStep, 0, len(w.Steps))

	for _, step := range w.Steps {
		if step.IsEnabled {
			steps = append(steps, step)
		}
	}

	sortStepsByOrder(steps)

	return steps
}
