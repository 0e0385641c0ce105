package workflow

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
	"github.com/cascadeflow/cascade/pkg/protocol"
	"github.com/cascadeflow/cascade/pkg/registry"
)

// memPersistence is an in-memory persistence.Persistence with injectable
// failures, shared by the coordinator and executor tests.
type memPersistence struct {
	mu sync.Mutex

	workflows      map[int64]*models.Workflow
	executions     map[int64]*models.Execution
	stepExecutions []*models.StepExecution
	nextExecID     int64

	createExecutionErr error
	failCreateFor      int64 // workflow ID whose executions fail to create
	updateExecutionErr error
	fetchWorkflowsErr  error
}

func newMemPersistence() *memPersistence {
	return &memPersistence{
		workflows:  make(map[int64]*models.Workflow),
		executions: make(map[int64]*models.Execution),
	}
}

func (p *memPersistence) Workflows() persistence.WorkflowRepository { return &memWorkflowRepo{p} }
func (p *memPersistence) Executions() persistence.ExecutionRepository {
	return &memExecutionRepo{p}
}

func (p *memPersistence) StepExecutions() persistence.StepExecutionRepository {
	return &memStepExecutionRepo{p}
}

func (p *memPersistence) HealthCheck(_ context.Context) error { return nil }
func (p *memPersistence) Close(_ context.Context) error       { return nil }

func (p *memPersistence) addWorkflow(wf *models.Workflow) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.workflows[wf.ID] = wf
}

func (p *memPersistence) execution(id int64) *models.Execution {
	p.mu.Lock()
	defer p.mu.Unlock()

	execution := p.executions[id]
	if execution == nil {
		return nil
	}

	clone := *execution

	return &clone
}

type memWorkflowRepo struct {
	p *memPersistence
}

func (r *memWorkflowRepo) GetTriggeredWorkflows(_ context.Context, tenantID uuid.UUID, entityType string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if r.p.fetchWorkflowsErr != nil {
		return nil, r.p.fetchWorkflowsErr
	}

	matched := make([]*models.Workflow, 0)

	for _, wf := range r.p.workflows {
		if wf.IsActive && wf.TenantID == tenantID && wf.EntityType == entityType && wf.TriggerType == triggerType {
			matched = append(matched, wf)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ExecutionOrder < matched[j].ExecutionOrder
	})

	return matched, nil
}

func (r *memWorkflowRepo) GetByIDWithSteps(_ context.Context, tenantID uuid.UUID, id int64) (*models.Workflow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	wf, ok := r.p.workflows[id]
	if !ok || wf.TenantID != tenantID {
		return nil, &persistence.StoreError{Op: "GetByIDWithSteps", Record: "workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return wf, nil
}

func (r *memWorkflowRepo) ListScheduled(_ context.Context) ([]*models.Workflow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	scheduled := make([]*models.Workflow, 0)

	for _, wf := range r.p.workflows {
		if wf.IsActive && wf.TriggerType == models.TriggerTypeScheduled {
			scheduled = append(scheduled, wf)
		}
	}

	return scheduled, nil
}

func (r *memWorkflowRepo) Save(_ context.Context, wf *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.workflows[wf.ID] = wf

	return nil
}

func (r *memWorkflowRepo) Delete(_ context.Context, tenantID uuid.UUID, id int64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.workflows, id)

	return nil
}

type memExecutionRepo struct {
	p *memPersistence
}

func (r *memExecutionRepo) GetByID(_ context.Context, tenantID uuid.UUID, id int64) (*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok || execution.TenantID != tenantID {
		return nil, &persistence.StoreError{Op: "GetByID", Record: "execution", ID: id, Err: persistence.ErrExecutionNotFound}
	}

	clone := *execution

	return &clone, nil
}

func (r *memExecutionRepo) Create(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if r.p.createExecutionErr != nil {
		return r.p.createExecutionErr
	}

	if r.p.failCreateFor != 0 && r.p.failCreateFor == execution.WorkflowID {
		panic("storage corruption")
	}

	r.p.nextExecID++
	execution.ID = r.p.nextExecID

	clone := *execution
	r.p.executions[execution.ID] = &clone

	return nil
}

func (r *memExecutionRepo) Update(_ context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if r.p.updateExecutionErr != nil {
		return r.p.updateExecutionErr
	}

	clone := *execution
	r.p.executions[execution.ID] = &clone

	return nil
}

type memStepExecutionRepo struct {
	p *memPersistence
}

func (r *memStepExecutionRepo) Create(_ context.Context, stepExecution *models.StepExecution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *stepExecution
	clone.ID = int64(len(r.p.stepExecutions) + 1)
	r.p.stepExecutions = append(r.p.stepExecutions, &clone)
	stepExecution.ID = clone.ID

	return nil
}

func (r *memStepExecutionRepo) ListByExecution(_ context.Context, tenantID uuid.UUID, executionID int64) ([]*models.StepExecution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	records := make([]*models.StepExecution, 0)

	for _, record := range r.p.stepExecutions {
		if record.TenantID == tenantID && record.ExecutionID == executionID {
			clone := *record
			records = append(records, &clone)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StepOrder < records[j].StepOrder
	})

	return records, nil
}

// recordingEventBus captures published events in order.
type recordingEventBus struct {
	mu         sync.Mutex
	published  []eventbus.Event
	publishErr error
}

func (b *recordingEventBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return b.publishErr
	}

	b.published = append(b.published, event)

	return nil
}

func (b *recordingEventBus) Handle(_ events.EventType, _ eventbus.EventHandler) error { return nil }
func (b *recordingEventBus) Subscribe(_ context.Context) error                        { return nil }
func (b *recordingEventBus) Close() error                                             { return nil }
func (b *recordingEventBus) GenerateID() string                                       { return uuid.New().String() }

func (b *recordingEventBus) requestedExecutions() []*events.ExecutionRequested {
	b.mu.Lock()
	defer b.mu.Unlock()

	requested := make([]*events.ExecutionRequested, 0)

	for _, event := range b.published {
		if job, ok := event.(events.ExecutionRequested); ok {
			requested = append(requested, &job)
		}
	}

	return requested
}

// recordingHandler records the order steps were dispatched in.
type recordingHandler struct {
	mu         sync.Mutex
	actionType string
	executed   []int64
	err        error
	sleep      time.Duration
}

func (h *recordingHandler) CanHandle(actionType string) bool {
	return actionType == h.actionType
}

func (h *recordingHandler) Execute(ctx context.Context, actionCtx protocol.ActionContext) (map[string]any, error) {
	if h.sleep > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.sleep):
		}
	}

	h.mu.Lock()
	h.executed = append(h.executed, actionCtx.StepID)
	h.mu.Unlock()

	if h.err != nil {
		return nil, h.err
	}

	return map[string]any{"step_id": actionCtx.StepID}, nil
}

// panicHandler panics instead of returning, for the recovery paths.
type panicHandler struct {
	actionType string
	message    string
}

func (h *panicHandler) CanHandle(actionType string) bool {
	return actionType == h.actionType
}

func (h *panicHandler) Execute(_ context.Context, _ protocol.ActionContext) (map[string]any, error) {
	panic(h.message)
}

func (h *recordingHandler) executedSteps() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]int64(nil), h.executed...)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, handlers ...protocol.ActionHandler) *registry.Registry {
	t.Helper()

	return registry.NewRegistry(newTestLogger(), handlers...)
}
