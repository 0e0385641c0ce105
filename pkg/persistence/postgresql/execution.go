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

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , workflow_id
		  , tenant_id
		  , entity_id
		  , entity_type
		  , trigger_data
		  , triggered_by
		  , status
		  , error_message
		  , current_step_order
		  , total_steps
		  , completed_steps
		  , failed_steps
		  , started_at
		  , completed_at
		  , created_at
		  , updated_at
		FROM workflow_executions
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	var (
		execution   models.Execution
		status      string
		triggeredBy uuid.NullUUID
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.TenantID,
		&execution.EntityID, &execution.EntityType, &execution.TriggerData,
		&triggeredBy, &status, &execution.ErrorMessage,
		&execution.CurrentStepOrder, &execution.TotalSteps,
		&execution.CompletedSteps, &execution.FailedSteps,
		&startedAt, &completedAt, &execution.CreatedAt, &execution.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.StoreError{Op: "GetByID", Record: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	execution.Status = models.ExecutionStatus(status)

	if triggeredBy.Valid {
		id := triggeredBy.UUID
		execution.TriggeredBy = &id
	}

	if startedAt.Valid {
		execution.StartedAt = startedAt.Time
	}

	if completedAt.Valid {
		t := completedAt.Time
		execution.CompletedAt = &t
	}

	return &execution, nil
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO workflow_executions (
			workflow_id, tenant_id, entity_id, entity_type, trigger_data,
			triggered_by, status, error_message, current_step_order,
			total_steps, completed_steps, failed_steps, started_at,
			completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		execution.WorkflowID, execution.TenantID, execution.EntityID,
		execution.EntityType, execution.TriggerData, nullableUUIDPtr(execution.TriggeredBy),
		string(execution.Status), execution.ErrorMessage, execution.CurrentStepOrder,
		execution.TotalSteps, execution.CompletedSteps, execution.FailedSteps,
		nullableZeroTime(execution.StartedAt), nullableTime(execution.CompletedAt),
		execution.CreatedAt, execution.UpdatedAt,
	).Scan(&execution.ID)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	execution.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions SET
			status = $2, error_message = $3, current_step_order = $4,
			completed_steps = $5, failed_steps = $6, started_at = $7,
			completed_at = $8, updated_at = $9
		WHERE id = $1
	`,
		execution.ID, string(execution.Status), execution.ErrorMessage,
		execution.CurrentStepOrder, execution.CompletedSteps, execution.FailedSteps,
		nullableZeroTime(execution.StartedAt), nullableTime(execution.CompletedAt),
		execution.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return &persistence.StoreError{Op: "Update", Record: "execution", ID: execution.ID, Err: persistence.ErrExecutionNotFound}
	}

	return nil
}

func nullableUUIDPtr(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableZeroTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t, Valid: true}
}
