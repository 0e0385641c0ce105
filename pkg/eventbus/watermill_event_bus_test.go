package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/channels/gochannel"
	"github.com/cascadeflow/cascade/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestWatermillEventBus_PublishAndConsumeExecutionRequested(t *testing.T) {
	bus := newTestBus(t)
	defer func() {
		require.NoError(t, bus.Close())
	}()

	tenantID := uuid.New()
	received := make(chan *events.ExecutionRequested, 1)

	err := bus.Handle(events.ExecutionRequestedEvent, func(_ context.Context, event any) error {
		job, ok := event.(*events.ExecutionRequested)
		if ok {
			received <- job
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	job := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, 42),
		ExecutionID: 7,
		TenantID:    tenantID,
	}

	require.NoError(t, bus.Publish(ctx, "execution-7", job))

	select {
	case got := <-received:
		assert.Equal(t, int64(42), got.WorkflowID)
		assert.Equal(t, int64(7), got.ExecutionID)
		assert.Equal(t, tenantID, got.TenantID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution job")
	}
}

func TestWatermillEventBus_PublishAndConsumeLifecycleEvent(t *testing.T) {
	bus := newTestBus(t)
	defer func() {
		require.NoError(t, bus.Close())
	}()

	received := make(chan *events.WorkflowTriggered, 1)

	err := bus.Handle(events.WorkflowTriggeredEvent, func(_ context.Context, event any) error {
		triggered, ok := event.(*events.WorkflowTriggered)
		if ok {
			received <- triggered
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	triggered := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, 9),
		ExecutionID: 3,
		EntityID:    "deal-1",
		EntityType:  "Deal",
		TriggerType: "stage_changed",
	}

	require.NoError(t, bus.Publish(ctx, "workflow-9", triggered))

	select {
	case got := <-received:
		assert.Equal(t, int64(9), got.WorkflowID)
		assert.Equal(t, "deal-1", got.EntityID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for lifecycle event")
	}
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, events.ExecutionTopic, topicFor(events.ExecutionRequestedEvent))
	assert.Equal(t, events.Topic, topicFor(events.WorkflowTriggeredEvent))
	assert.Equal(t, events.Topic, topicFor(events.ExecutionCompletedEvent))
	assert.Equal(t, events.Topic, topicFor(events.ExecutionFailedEvent))
}
