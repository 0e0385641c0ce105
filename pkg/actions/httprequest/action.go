// Package httprequest provides the built-in HTTP request action handler, used
// for webhook-style notifications from workflow steps.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cascadeflow/cascade/pkg/protocol"
)

const ActionType = "http_request"

const defaultTimeout = 30 * time.Second

type Handler struct {
	client *http.Client
}

func NewHandler() *Handler {
	return &Handler{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (*Handler) CanHandle(actionType string) bool {
	return actionType == ActionType
}

func (*Handler) ConfigSchema() string {
	return `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "format": "uri"},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
			"headers": {"type": "object", "additionalProperties": {"type": "string"}},
			"body": {"type": "string"},
			"include_trigger_data": {"type": "boolean"}
		}
	}`
}

type config struct {
	URL                string            `json:"url"`
	Method             string            `json:"method"`
	Headers            map[string]string `json:"headers"`
	Body               string            `json:"body"`
	IncludeTriggerData bool              `json:"include_trigger_data"`
}

func (h *Handler) Execute(ctx context.Context, action protocol.ActionContext) (map[string]any, error) {
	var cfg config
	if err := json.Unmarshal([]byte(action.Configuration), &cfg); err != nil {
		return nil, fmt.Errorf("invalid http_request configuration: %w", err)
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("http_request configuration is missing 'url'")
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	body := cfg.Body
	if body == "" && cfg.IncludeTriggerData {
		payload, err := json.Marshal(map[string]any{
			"entity_type":  action.EntityType,
			"entity_id":    action.EntityID,
			"workflow_id":  action.WorkflowID,
			"execution_id": action.ExecutionID,
			"trigger_data": action.TriggerData,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build request payload: %w", err)
		}

		body = string(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, cfg.URL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}

	for name, value := range cfg.Headers {
		request.Header.Set(name, value)
	}

	action.Logger.InfoContext(ctx, "Executing HTTP request action", "method", method, "url", cfg.URL)

	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http request returned status %d", response.StatusCode)
	}

	return map[string]any{
		"status_code": response.StatusCode,
		"body":        string(responseBody),
	}, nil
}
