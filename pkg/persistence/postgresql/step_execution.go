package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
)

// StepExecutionRepository handles the per-step execution audit records.
type StepExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStepExecutionRepository(db *sql.DB, logger *slog.Logger) *StepExecutionRepository {
	return &StepExecutionRepository{db: db, logger: logger}
}

func (r *StepExecutionRepository) Create(ctx context.Context, stepExecution *models.StepExecution) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO workflow_step_executions (
			execution_id, step_id, tenant_id, step_name, action_type,
			step_order, status, input_data, output_data, error_message,
			started_at, completed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		stepExecution.ExecutionID, stepExecution.StepID, stepExecution.TenantID,
		stepExecution.StepName, stepExecution.ActionType, stepExecution.StepOrder,
		string(stepExecution.Status), stepExecution.InputData, stepExecution.OutputData,
		stepExecution.ErrorMessage, stepExecution.StartedAt,
		nullableTime(stepExecution.CompletedAt), stepExecution.CreatedAt,
	).Scan(&stepExecution.ID)
	if err != nil {
		return fmt.Errorf("failed to insert step execution: %w", err)
	}

	return nil
}

func (r *StepExecutionRepository) ListByExecution(ctx context.Context, tenantID uuid.UUID, executionID int64) ([]*models.StepExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id
		  , execution_id
		  , step_id
		  , tenant_id
		  , step_name
		  , action_type
		  , step_order
		  , status
		  , input_data
		  , output_data
		  , error_message
		  , started_at
		  , completed_at
		  , created_at
		FROM workflow_step_executions
		WHERE tenant_id = $1 AND execution_id = $2
		ORDER BY step_order, id
	`, tenantID, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.StepExecution, 0)

	for rows.Next() {
		var (
			record      models.StepExecution
			status      string
			completedAt sql.NullTime
		)

		err := rows.Scan(
			&record.ID, &record.ExecutionID, &record.StepID, &record.TenantID,
			&record.StepName, &record.ActionType, &record.StepOrder, &status,
			&record.InputData, &record.OutputData, &record.ErrorMessage,
			&record.StartedAt, &completedAt, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step execution: %w", err)
		}

		record.Status = models.StepExecutionStatus(status)

		if completedAt.Valid {
			t := completedAt.Time
			record.CompletedAt = &t
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step executions: %w", err)
	}

	return records, nil
}
