// Package schedule fires workflows with the scheduled trigger type on their
// cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/persistence"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

// Source scans scheduled workflows and registers each cron expression,
// triggering the coordinator on every tick.
type Source struct {
	persistence persistence.Persistence
	coordinator *workflow.Coordinator
	logger      *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

func NewSource(persistence persistence.Persistence, coordinator *workflow.Coordinator, logger *slog.Logger) *Source {
	return &Source{
		persistence: persistence,
		coordinator: coordinator,
		logger:      logger.With("module", "schedule_source"),
		cron:        cron.New(),
		entries:     make(map[int64]cron.EntryID),
	}
}

// Start registers every active scheduled workflow and runs the cron loop until
// the context is cancelled.
func (s *Source) Start(ctx context.Context) error {
	workflows, err := s.persistence.Workflows().ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled workflows: %w", err)
	}

	for _, wf := range workflows {
		if err := s.register(ctx, wf); err != nil {
			s.logger.Error("Failed to register scheduled workflow",
				"workflow_id", wf.ID,
				"schedule", wf.Schedule,
				"error", err)
		}
	}

	s.logger.Info("Schedule source started", "workflows", len(s.entries))
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.logger.Info("Schedule source stopped")

	return nil
}

func (s *Source) register(ctx context.Context, wf *models.Workflow) error {
	if _, err := cron.ParseStandard(wf.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", wf.Schedule, err)
	}

	workflowID := wf.ID
	tenantID := wf.TenantID
	entityType := wf.EntityType

	entryID, err := s.cron.AddFunc(wf.Schedule, func() {
		count, err := s.coordinator.TriggerWorkflows(ctx, workflow.TriggerEvent{
			TenantID:    tenantID,
			EntityType:  entityType,
			EntityID:    fmt.Sprintf("workflow-%d", workflowID),
			TriggerType: models.TriggerTypeScheduled,
		})
		if err != nil {
			s.logger.Error("Scheduled trigger failed", "workflow_id", workflowID, "error", err)

			return
		}

		s.logger.Info("Scheduled trigger fired", "workflow_id", workflowID, "executions", count)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[wf.ID] = entryID
	s.mu.Unlock()

	return nil
}
