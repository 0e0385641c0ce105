// Package protocol defines the contracts between the workflow engine and the
// action handlers that perform individual step work.
package protocol

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// ActionContext carries everything a handler needs to perform one step of one
// execution. Configuration is the step's opaque JSON payload; TriggerData is the
// deserialized event snapshot, nil when the execution was triggered without data.
type ActionContext struct {
	WorkflowID  int64
	ExecutionID int64
	StepID      int64
	ActionType  string

	Configuration string

	TenantID   uuid.UUID
	EntityID   string
	EntityType string

	TriggerData map[string]any

	Logger *slog.Logger
}

// ActionHandler is a capability that knows how to perform one or more action
// types. Handlers are registered once at process start; the engine asks each
// handler whether it claims an action type and dispatches to the first that does.
type ActionHandler interface {
	// CanHandle reports whether this handler executes the given action type.
	CanHandle(actionType string) bool

	// Execute performs the step. A non-nil error marks the step as failed; the
	// returned map is the step's output, recorded for telemetry only.
	Execute(ctx context.Context, action ActionContext) (map[string]any, error)
}

// ConfigSchemer is implemented by handlers that declare a JSON schema for their
// step configuration, enabling validation before a workflow is saved or run.
type ConfigSchemer interface {
	ConfigSchema() string
}
