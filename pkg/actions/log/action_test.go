package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/protocol"
)

func TestHandler_CanHandle(t *testing.T) {
	handler := NewHandler()

	assert.True(t, handler.CanHandle("log"))
	assert.False(t, handler.CanHandle("http_request"))
}

func TestHandler_Execute(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler()

	output, err := handler.Execute(context.Background(), protocol.ActionContext{
		ActionType:    ActionType,
		Configuration: `{"message": "deal won", "level": "info"}`,
		TenantID:      uuid.New(),
		EntityID:      "deal-7",
		EntityType:    "Deal",
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
	})

	require.NoError(t, err)
	assert.Equal(t, "deal won", output["message"])
	assert.Contains(t, buf.String(), "deal won")
	assert.Contains(t, buf.String(), "deal-7")
}

func TestHandler_Execute_DefaultMessage(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler()

	output, err := handler.Execute(context.Background(), protocol.ActionContext{
		ActionType: ActionType,
		Logger:     slog.New(slog.NewTextHandler(&buf, nil)),
	})

	require.NoError(t, err)
	assert.Equal(t, "workflow step executed", output["message"])
}

func TestHandler_Execute_InvalidConfigurationStillLogs(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler()

	output, err := handler.Execute(context.Background(), protocol.ActionContext{
		ActionType:    ActionType,
		Configuration: `{"message": `,
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
	})

	require.NoError(t, err)
	assert.Equal(t, "workflow step executed", output["message"])
}
