package file

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
)

func newWorkflow(tenantID uuid.UUID) *models.Workflow {
	return &models.Workflow{
		TenantID:    tenantID,
		Name:        "Deal won follow-up",
		EntityType:  "Deal",
		TriggerType: models.TriggerTypeStageChanged,
		IsActive:    true,
		Steps: []*models.WorkflowStep{
			{Name: "notify", ActionType: "log", StepOrder: 1, IsEnabled: true},
			{Name: "webhook", ActionType: "http_request", StepOrder: 2, IsEnabled: true},
		},
	}
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	assert.NotZero(t, wf.ID)
	assert.NotZero(t, wf.Steps[0].ID)
	assert.Equal(t, wf.ID, wf.Steps[0].WorkflowID)

	loaded, err := p.Workflows().GetByIDWithSteps(ctx, tenantID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.Name, loaded.Name)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "notify", loaded.Steps[0].Name)
}

func TestWorkflowRepository_GetByIDWithSteps_NotFound(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	_, err := p.Workflows().GetByIDWithSteps(ctx, uuid.New(), 123)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	_, err := p.Workflows().GetByIDWithSteps(ctx, uuid.New(), wf.ID)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_GetTriggeredWorkflows(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	second := newWorkflow(tenantID)
	second.ExecutionOrder = 2
	require.NoError(t, p.Workflows().Save(ctx, second))

	first := newWorkflow(tenantID)
	first.ExecutionOrder = 1
	require.NoError(t, p.Workflows().Save(ctx, first))

	inactive := newWorkflow(tenantID)
	inactive.IsActive = false
	require.NoError(t, p.Workflows().Save(ctx, inactive))

	otherTrigger := newWorkflow(tenantID)
	otherTrigger.TriggerType = models.TriggerTypeCreated
	require.NoError(t, p.Workflows().Save(ctx, otherTrigger))

	matched, err := p.Workflows().GetTriggeredWorkflows(ctx, tenantID, "Deal", models.TriggerTypeStageChanged)
	require.NoError(t, err)

	require.Len(t, matched, 2)
	assert.Equal(t, first.ID, matched[0].ID, "ordered by execution order")
	assert.Equal(t, second.ID, matched[1].ID)
}

func TestWorkflowRepository_ListScheduled(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	scheduled := newWorkflow(tenantID)
	scheduled.TriggerType = models.TriggerTypeScheduled
	scheduled.Schedule = "0 9 * * *"
	require.NoError(t, p.Workflows().Save(ctx, scheduled))

	eventDriven := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, eventDriven))

	listed, err := p.Workflows().ListScheduled(ctx)
	require.NoError(t, err)

	require.Len(t, listed, 1)
	assert.Equal(t, scheduled.ID, listed[0].ID)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	require.NoError(t, p.Workflows().Delete(ctx, tenantID, wf.ID))

	_, err := p.Workflows().GetByIDWithSteps(ctx, tenantID, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.Workflows().Delete(ctx, tenantID, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	execution := models.NewExecution(wf, "deal-7", `{"stage":"won"}`, nil)
	require.NoError(t, p.Executions().Create(ctx, execution))
	assert.NotZero(t, execution.ID)

	loaded, err := p.Executions().GetByID(ctx, tenantID, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, loaded.Status)
	assert.Equal(t, "deal-7", loaded.EntityID)
	assert.Equal(t, 2, loaded.TotalSteps)
}

func TestExecutionRepository_Update(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	execution := models.NewExecution(wf, "deal-7", "", nil)
	require.NoError(t, p.Executions().Create(ctx, execution))

	require.NoError(t, execution.Start())
	require.NoError(t, p.Executions().Update(ctx, execution))

	loaded, err := p.Executions().GetByID(ctx, tenantID, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
}

func TestExecutionRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	_, err := p.Executions().GetByID(ctx, uuid.New(), 77)
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	execution := models.NewExecution(wf, "deal-7", "", nil)
	require.NoError(t, p.Executions().Create(ctx, execution))

	_, err := p.Executions().GetByID(ctx, uuid.New(), execution.ID)
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestStepExecutionRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	execution := models.NewExecution(wf, "deal-7", "", nil)
	require.NoError(t, p.Executions().Create(ctx, execution))

	second := models.NewStepExecution(execution, wf.Steps[1])
	second.Fail("upstream returned 500")
	require.NoError(t, p.StepExecutions().Create(ctx, second))

	first := models.NewStepExecution(execution, wf.Steps[0])
	first.Complete(`{"logged":true}`)
	require.NoError(t, p.StepExecutions().Create(ctx, first))

	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	records, err := p.StepExecutions().ListByExecution(ctx, tenantID, execution.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by step order, not insertion order.
	assert.Equal(t, "notify", records[0].StepName)
	assert.Equal(t, models.StepExecutionStatusCompleted, records[0].Status)
	assert.Equal(t, `{"logged":true}`, records[0].OutputData)
	assert.Equal(t, "webhook", records[1].StepName)
	assert.Equal(t, models.StepExecutionStatusFailed, records[1].Status)
	assert.Equal(t, "upstream returned 500", records[1].ErrorMessage)
}

func TestStepExecutionRepository_ListByExecution_Scoping(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	p := NewPersistence(t.TempDir())

	wf := newWorkflow(tenantID)
	require.NoError(t, p.Workflows().Save(ctx, wf))

	execution := models.NewExecution(wf, "deal-7", "", nil)
	require.NoError(t, p.Executions().Create(ctx, execution))

	record := models.NewStepExecution(execution, wf.Steps[0])
	record.Complete("")
	require.NoError(t, p.StepExecutions().Create(ctx, record))

	records, err := p.StepExecutions().ListByExecution(ctx, uuid.New(), execution.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = p.StepExecutions().ListByExecution(ctx, tenantID, execution.ID+1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPersistence_HealthCheck(t *testing.T) {
	root := t.TempDir()

	p := NewPersistence(root)
	assert.NoError(t, p.HealthCheck(context.Background()))

	missing := NewPersistence(root + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(context.Background()))
}

func TestPersistence_FileURLPrefix(t *testing.T) {
	root := t.TempDir()

	p := NewPersistence("file://" + root)
	assert.NoError(t, p.HealthCheck(context.Background()))
}
