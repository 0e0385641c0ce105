// Package events defines the event types exchanged between the trigger
// coordinator, the job queue, and the workers.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "cascade.events"                   // Lifecycle events for observers
const ExecutionTopic = "cascade.executions"      // Execution jobs consumed by workers

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent  EventType = "workflow.triggered"
	ExecutionRequestedEvent EventType = "execution.requested"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID int64          `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowTriggered is published for observers each time a business event
// matched a workflow and an execution was created for it.
type WorkflowTriggered struct {
	BaseEvent

	ExecutionID int64          `json:"execution_id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	EntityID    string         `json:"entity_id"`
	EntityType  string         `json:"entity_type"`
	TriggerType string         `json:"trigger_type"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

// ExecutionRequested is the background job payload: one message per created
// execution, consumed by exactly one worker which drives the step executor.
type ExecutionRequested struct {
	BaseEvent

	ExecutionID int64     `json:"execution_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
}

func (e ExecutionRequested) GetType() EventType {
	return ExecutionRequestedEvent
}

// ExecutionCompleted is published after a worker finished an execution
// successfully.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID int64         `json:"execution_id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed is published after an execution ended in the failed state.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID int64         `json:"execution_id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

func NewBaseEvent(eventType EventType, workflowID int64) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
