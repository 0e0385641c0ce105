package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
)

// WorkflowRepository handles workflow and workflow-step database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , tenant_id
  , name
  , description
  , entity_type
  , trigger_type
  , trigger_conditions
  , schedule
  , is_active
  , execution_order
  , execution_count
  , last_run_at
  , created_by
  , created_at
  , updated_at
`

func (r *WorkflowRepository) GetTriggeredWorkflows(ctx context.Context, tenantID uuid.UUID, entityType string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1 AND entity_type = $2 AND trigger_type = $3 AND is_active
		ORDER BY execution_order, id
	`

	return r.queryWorkflows(ctx, query, tenantID, entityType, string(triggerType))
}

func (r *WorkflowRepository) GetByIDWithSteps(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND tenant_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, id, tenantID)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.StoreError{Op: "GetByIDWithSteps", Record: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := r.loadSteps(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *WorkflowRepository) ListScheduled(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_type = $1 AND is_active
		ORDER BY id
	`

	return r.queryWorkflows(ctx, query, string(models.TriggerTypeScheduled))
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		if err := r.loadSteps(ctx, workflow); err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// Save upserts the workflow row and replaces its step rows in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if workflow.ID == 0 {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO workflows (
				tenant_id, name, description, entity_type, trigger_type,
				trigger_conditions, schedule, is_active, execution_order,
				execution_count, last_run_at, created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`,
			workflow.TenantID, workflow.Name, workflow.Description, workflow.EntityType,
			string(workflow.TriggerType), workflow.TriggerConditions, workflow.Schedule,
			workflow.IsActive, workflow.ExecutionOrder, workflow.ExecutionCount,
			nullableTime(workflow.LastRunAt), nullableUUID(workflow.CreatedBy),
			workflow.CreatedAt, workflow.UpdatedAt,
		).Scan(&workflow.ID)
		if err != nil {
			return fmt.Errorf("failed to insert workflow: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE workflows SET
				name = $2, description = $3, entity_type = $4, trigger_type = $5,
				trigger_conditions = $6, schedule = $7, is_active = $8,
				execution_order = $9, execution_count = $10, last_run_at = $11,
				updated_at = $12
			WHERE id = $1
		`,
			workflow.ID, workflow.Name, workflow.Description, workflow.EntityType,
			string(workflow.TriggerType), workflow.TriggerConditions, workflow.Schedule,
			workflow.IsActive, workflow.ExecutionOrder, workflow.ExecutionCount,
			nullableTime(workflow.LastRunAt), workflow.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update workflow: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", workflow.ID); err != nil {
		return fmt.Errorf("failed to clear workflow steps: %w", err)
	}

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID

		err = tx.QueryRowContext(ctx, `
			INSERT INTO workflow_steps (
				workflow_id, name, action_type, action_configuration,
				step_order, delay_minutes, is_enabled, continue_on_error
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`,
			step.WorkflowID, step.Name, step.ActionType, step.ActionConfiguration,
			step.StepOrder, step.DelayMinutes, step.IsEnabled, step.ContinueOnError,
		).Scan(&step.ID)
		if err != nil {
			return fmt.Errorf("failed to insert workflow step: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workflow save: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, tenantID uuid.UUID, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	if affected == 0 {
		return &persistence.StoreError{Op: "Delete", Record: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflow *models.Workflow) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id
		  , workflow_id
		  , name
		  , action_type
		  , action_configuration
		  , step_order
		  , delay_minutes
		  , is_enabled
		  , continue_on_error
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY step_order, id
	`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflow.Steps = make([]*models.WorkflowStep, 0)

	for rows.Next() {
		var step models.WorkflowStep

		err := rows.Scan(
			&step.ID, &step.WorkflowID, &step.Name, &step.ActionType,
			&step.ActionConfiguration, &step.StepOrder, &step.DelayMinutes,
			&step.IsEnabled, &step.ContinueOnError,
		)
		if err != nil {
			return fmt.Errorf("failed to scan workflow step: %w", err)
		}

		workflow.Steps = append(workflow.Steps, &step)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		triggerType string
		lastRunAt   sql.NullTime
		createdBy   uuid.NullUUID
	)

	err := row.Scan(
		&workflow.ID, &workflow.TenantID, &workflow.Name, &workflow.Description,
		&workflow.EntityType, &triggerType, &workflow.TriggerConditions,
		&workflow.Schedule, &workflow.IsActive, &workflow.ExecutionOrder,
		&workflow.ExecutionCount, &lastRunAt, &createdBy,
		&workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.TriggerType = models.TriggerType(triggerType)

	if lastRunAt.Valid {
		t := lastRunAt.Time
		workflow.LastRunAt = &t
	}

	if createdBy.Valid {
		workflow.CreatedBy = createdBy.UUID
	}

	return &workflow, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	if id == uuid.Nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: id, Valid: true}
}
