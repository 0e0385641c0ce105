package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
)

// ExecutionRepository stores one JSON document per execution.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) GetByID(_ context.Context, tenantID uuid.UUID, id int64) (*models.Execution, error) {
	payload, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.StoreError{Op: "GetByID", Record: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, fmt.Errorf("failed to read execution %d: %w", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(payload, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %d: %w", id, err)
	}

	if execution.TenantID != tenantID {
		return nil, &persistence.StoreError{Op: "GetByID", Record: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	return &execution, nil
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	if execution.ID == 0 {
		id, err := r.nextID()
		if err != nil {
			return err
		}

		execution.ID = id
	}

	return r.write(execution)
}

func (r *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution.UpdatedAt = time.Now().UTC()

	return r.write(execution)
}

func (r *ExecutionRepository) write(execution *models.Execution) error {
	payload, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %d: %w", execution.ID, err)
	}

	return os.WriteFile(r.path(execution.ID), payload, 0o644)
}

func (r *ExecutionRepository) path(id int64) string {
	return filepath.Join(r.root, strconv.FormatInt(id, 10)+".json")
}

func (r *ExecutionRepository) nextID() (int64, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read executions directory: %w", err)
	}

	var maxID int64

	for _, entry := range entries {
		id, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), ".json"), 10, 64)
		if err == nil && id > maxID {
			maxID = id
		}
	}

	return maxID + 1, nil
}
