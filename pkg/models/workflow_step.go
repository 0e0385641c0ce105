package models

import "sort"

// WorkflowStep is one ordered unit of work inside a workflow, dispatched to an
// action handler by action type.
type WorkflowStep struct {
	ID         int64  `json:"id"`
	WorkflowID int64  `json:"workflow_id"`
	Name       string `json:"name"          validate:"required,max=200"`
	ActionType string `json:"action_type"   validate:"required,max=100"`

	// ActionConfiguration is an opaque JSON payload handed to the action handler.
	ActionConfiguration string `json:"action_configuration,omitempty"`

	StepOrder       int  `json:"step_order"`
	DelayMinutes    int  `json:"delay_minutes"   validate:"gte=0"`
	IsEnabled       bool `json:"is_enabled"`
	ContinueOnError bool `json:"continue_on_error"`
}

func sortStepsByOrder(steps []*WorkflowStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepOrder < steps[j].StepOrder
	})
}
