// Package registry holds the ordered set of action handlers available to the
// engine and resolves step action types to handlers.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cascadeflow/cascade/pkg/protocol"
)

// Registry is an ordered set of action handlers built once at process start.
type Registry struct {
	logger   *slog.Logger
	handlers []protocol.ActionHandler
}

func NewRegistry(logger *slog.Logger, handlers ...protocol.ActionHandler) *Registry {
	return &Registry{
		logger:   logger.With("module", "registry"),
		handlers: handlers,
	}
}

// Register appends a handler. Registration order is significant, see Dispatch.
func (r *Registry) Register(handler protocol.ActionHandler) {
	r.handlers = append(r.handlers, handler)
}

// Dispatch returns the handler for the given action type. Handlers are checked
// in registration order and the first one claiming the type wins; when more
// than one handler claims the same type the earlier registration is the
// deliberate tie-break.
func (r *Registry) Dispatch(actionType string) (protocol.ActionHandler, bool) {
	for _, handler := range r.handlers {
		if handler.CanHandle(actionType) {
			return handler, true
		}
	}

	return nil, false
}

// ValidateConfiguration checks a step's JSON configuration against the schema
// declared by the handler for its action type. Handlers without a schema accept
// any configuration. An unknown action type is an error.
func (r *Registry) ValidateConfiguration(actionType, configJSON string) error {
	handler, found := r.Dispatch(actionType)
	if !found {
		return fmt.Errorf("no handler for action type: %s", actionType)
	}

	schemer, ok := handler.(protocol.ConfigSchemer)
	if !ok {
		return nil
	}

	if configJSON == "" {
		configJSON = "{}"
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemer.ConfigSchema()),
		gojsonschema.NewStringLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to validate configuration for %s: %w", actionType, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid configuration for %s: %v", actionType, result.Errors())
	}

	return nil
}
