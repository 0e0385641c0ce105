package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/cascadeflow/cascade/pkg/cmd"
	"github.com/cascadeflow/cascade/pkg/log"
	"github.com/cascadeflow/cascade/pkg/models"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

// FireTrigger publishes one business event through the trigger coordinator and
// reports how many executions it produced.
func FireTrigger(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("cascade-trigger").With("action", "fire")

	tenantID, err := uuid.Parse(command.String("tenant-id"))
	if err != nil {
		return fmt.Errorf("invalid tenant-id: %w", err)
	}

	var triggerData map[string]any
	if err := json.Unmarshal([]byte(command.String("data")), &triggerData); err != nil {
		return fmt.Errorf("invalid trigger data: %w", err)
	}

	var triggeredBy *uuid.UUID

	if raw := command.String("triggered-by"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid triggered-by: %w", err)
		}

		triggeredBy = &parsed
	}

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), "cascade-trigger", logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	coordinator := workflow.NewCoordinator(persistence, eventBus, logger)

	count, err := coordinator.TriggerWorkflows(ctx, workflow.TriggerEvent{
		TenantID:    tenantID,
		EntityType:  command.String("entity-type"),
		EntityID:    command.String("entity-id"),
		TriggerType: models.TriggerType(command.String("trigger-type")),
		TriggerData: triggerData,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		return fmt.Errorf("failed to trigger workflows: %w", err)
	}

	fmt.Printf("Triggered %d execution(s)\n", count)

	return nil
}

// ValidateWorkflow checks a workflow definition file: struct constraints, the
// cron expression for scheduled workflows, and each step's action
// configuration against the handler's schema.
func ValidateWorkflow(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("cascade-trigger").With("action", "validate")

	raw, err := os.ReadFile(command.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read workflow file: %w", err)
	}

	var wf models.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return fmt.Errorf("invalid workflow JSON: %w", err)
	}

	problems := make([]string, 0)

	validate := validator.New()
	if err := validate.Struct(&wf); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldError := range fieldErrors {
				problems = append(problems, fmt.Sprintf("field %s failed on %q", fieldError.Namespace(), fieldError.Tag()))
			}
		} else {
			return fmt.Errorf("failed to validate workflow: %w", err)
		}
	}

	if wf.TriggerType == models.TriggerTypeScheduled {
		if _, err := cron.ParseStandard(wf.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid cron expression %q: %v", wf.Schedule, err))
		}
	}

	registry := cmd.NewRegistry(logger)
	for _, step := range wf.Steps {
		if err := validate.Struct(step); err != nil {
			problems = append(problems, fmt.Sprintf("step %q: %v", step.Name, err))

			continue
		}

		if err := registry.ValidateConfiguration(step.ActionType, step.ActionConfiguration); err != nil {
			problems = append(problems, fmt.Sprintf("step %q: %v", step.Name, err))
		}
	}

	if len(problems) > 0 {
		fmt.Println("Workflow is invalid:")

		for _, problem := range problems {
			fmt.Printf("  - %s\n", problem)
		}

		return fmt.Errorf("workflow %q has %d problem(s)", wf.Name, len(problems))
	}

	fmt.Printf("Workflow %q is valid (%d step(s))\n", wf.Name, len(wf.Steps))

	return nil
}
