// Package log provides the built-in log action handler, mostly useful for
// wiring tests and for tracing workflow behavior in development.
package log

import (
	"context"
	"encoding/json"

	"github.com/cascadeflow/cascade/pkg/protocol"
)

const ActionType = "log"

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (*Handler) CanHandle(actionType string) bool {
	return actionType == ActionType
}

func (*Handler) ConfigSchema() string {
	return `{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}
		}
	}`
}

func (*Handler) Execute(ctx context.Context, action protocol.ActionContext) (map[string]any, error) {
	var config struct {
		Message string `json:"message"`
		Level   string `json:"level"`
	}

	if action.Configuration != "" {
		if err := json.Unmarshal([]byte(action.Configuration), &config); err != nil {
			action.Logger.WarnContext(ctx, "Invalid log action configuration", "error", err)
		}
	}

	if config.Message == "" {
		config.Message = "workflow step executed"
	}

	logger := action.Logger.With(
		"entity_type", action.EntityType,
		"entity_id", action.EntityID,
	)

	switch config.Level {
	case "debug":
		logger.DebugContext(ctx, config.Message)
	case "warn":
		logger.WarnContext(ctx, config.Message)
	case "error":
		logger.ErrorContext(ctx, config.Message)
	default:
		logger.InfoContext(ctx, config.Message)
	}

	return map[string]any{"message": config.Message}, nil
}
