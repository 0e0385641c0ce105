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
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow, steps embedded.
type WorkflowRepository struct {
	root string
	mu   sync.Mutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) GetTriggeredWorkflows(ctx context.Context, tenantID uuid.UUID, entityType string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, wf := range all {
		if wf.IsActive && wf.TenantID == tenantID && wf.EntityType == entityType && wf.TriggerType == triggerType {
			matched = append(matched, wf)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ExecutionOrder < matched[j].ExecutionOrder
	})

	return matched, nil
}

func (r *WorkflowRepository) GetByIDWithSteps(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Workflow, error) {
	wf, err := r.load(id)
	if err != nil {
		return nil, err
	}

	if wf == nil || wf.TenantID != tenantID {
		return nil, &persistence.StoreError{Op: "GetByIDWithSteps", Record: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return wf, nil
}

func (r *WorkflowRepository) ListScheduled(ctx context.Context) ([]*models.Workflow, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	scheduled := make([]*models.Workflow, 0)

	for _, wf := range all {
		if wf.IsActive && wf.TriggerType == models.TriggerTypeScheduled {
			scheduled = append(scheduled, wf)
		}
	}

	return scheduled, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == 0 {
		id, err := r.nextID()
		if err != nil {
			return err
		}

		workflow.ID = id
	}

	for i, step := range workflow.Steps {
		if step.ID == 0 {
			step.ID = workflow.ID*1000 + int64(i) + 1
		}

		step.WorkflowID = workflow.ID
	}

	payload, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %d: %w", workflow.ID, err)
	}

	return os.WriteFile(r.path(workflow.ID), payload, 0o644)
}

func (r *WorkflowRepository) Delete(_ context.Context, tenantID uuid.UUID, id int64) error {
	wf, err := r.load(id)
	if err != nil {
		return err
	}

	if wf == nil || wf.TenantID != tenantID {
		return &persistence.StoreError{Op: "Delete", Record: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return os.Remove(r.path(id))
}

func (r *WorkflowRepository) path(id int64) string {
	return filepath.Join(r.root, strconv.FormatInt(id, 10)+".json")
}

func (r *WorkflowRepository) load(id int64) (*models.Workflow, error) {
	payload, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read workflow %d: %w", id, err)
	}

	var wf models.Workflow
	if err := json.Unmarshal(payload, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %d: %w", id, err)
	}

	return &wf, nil
}

func (r *WorkflowRepository) loadAll(_ context.Context) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Workflow{}, nil
		}

		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), ".json"), 10, 64)
		if err != nil {
			continue
		}

		wf, err := r.load(id)
		if err != nil {
			return nil, err
		}

		if wf != nil {
			workflows = append(workflows, wf)
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) nextID() (int64, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read workflows directory: %w", err)
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
