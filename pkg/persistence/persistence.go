// Package persistence provides the storage abstraction for workflows and
// workflow executions.
package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
)

// WorkflowRepository stores workflow definitions. Implementations always return
// workflows with their full step list loaded; callers never re-query steps
// mid-run, so an in-flight execution is unaffected by later edits.
type WorkflowRepository interface {
	// GetTriggeredWorkflows returns the active workflows registered for the
	// given entity type and trigger type within one tenant, ordered by their
	// execution order.
	GetTriggeredWorkflows(ctx context.Context, tenantID uuid.UUID, entityType string, triggerType models.TriggerType) ([]*models.Workflow, error)

	// GetByIDWithSteps returns one workflow with steps, or ErrWorkflowNotFound.
	GetByIDWithSteps(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Workflow, error)

	// ListScheduled returns all active workflows with the scheduled trigger
	// type, across tenants.
	ListScheduled(ctx context.Context) ([]*models.Workflow, error)

	// Save creates or updates a workflow and its steps. New workflows and steps
	// are assigned identities by the store.
	Save(ctx context.Context, workflow *models.Workflow) error

	Delete(ctx context.Context, tenantID uuid.UUID, id int64) error
}

// ExecutionRepository stores workflow execution records.
type ExecutionRepository interface {
	// GetByID returns one execution or ErrExecutionNotFound.
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Execution, error)

	// Create persists a new execution and assigns its identity.
	Create(ctx context.Context, execution *models.Execution) error

	Update(ctx context.Context, execution *models.Execution) error
}

// StepExecutionRepository stores the per-step audit records of executions.
// Records are append-only: the executor writes one resolved record per
// processed step.
type StepExecutionRepository interface {
	// Create persists a new step execution record and assigns its identity.
	Create(ctx context.Context, stepExecution *models.StepExecution) error

	// ListByExecution returns one execution's step records ordered by step
	// order.
	ListByExecution(ctx context.Context, tenantID uuid.UUID, executionID int64) ([]*models.StepExecution, error)
}

// Persistence aggregates the engine's repositories behind one connection-owning
// implementation.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	StepExecutions() StepExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
