package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
)

// StepExecutionRepository stores one JSON document per step execution record.
type StepExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewStepExecutionRepository(root string) *StepExecutionRepository {
	return &StepExecutionRepository{root: filepath.Join(root, "step_executions")}
}

func (r *StepExecutionRepository) Create(_ context.Context, stepExecution *models.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create step executions directory: %w", err)
	}

	if stepExecution.ID == 0 {
		id, err := r.nextID()
		if err != nil {
			return err
		}

		stepExecution.ID = id
	}

	payload, err := json.MarshalIndent(stepExecution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal step execution %d: %w", stepExecution.ID, err)
	}

	return os.WriteFile(r.path(stepExecution.ID), payload, 0o644)
}

func (r *StepExecutionRepository) ListByExecution(_ context.Context, tenantID uuid.UUID, executionID int64) ([]*models.StepExecution, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.StepExecution{}, nil
		}

		return nil, fmt.Errorf("failed to read step executions directory: %w", err)
	}

	records := make([]*models.StepExecution, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		payload, err := os.ReadFile(filepath.Join(r.root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read step execution %s: %w", entry.Name(), err)
		}

		var record models.StepExecution
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step execution %s: %w", entry.Name(), err)
		}

		if record.TenantID == tenantID && record.ExecutionID == executionID {
			records = append(records, &record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StepOrder < records[j].StepOrder
	})

	return records, nil
}

func (r *StepExecutionRepository) path(id int64) string {
	return filepath.Join(r.root, strconv.FormatInt(id, 10)+".json")
}

func (r *StepExecutionRepository) nextID() (int64, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read step executions directory: %w", err)
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
