// Package file provides a JSON-file persistence implementation, used for local
// development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/cascadeflow/cascade/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree:
// one JSON document per workflow and per execution.
type Persistence struct {
	root              string
	workflowRepo      *WorkflowRepository
	executionRepo     *ExecutionRepository
	stepExecutionRepo *StepExecutionRepository
}

// NewPersistence creates a file persistence rooted at the given directory,
// accepting both plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:              cleanRoot,
		workflowRepo:      NewWorkflowRepository(cleanRoot),
		executionRepo:     NewExecutionRepository(cleanRoot),
		stepExecutionRepo: NewStepExecutionRepository(cleanRoot),
	}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) StepExecutions() persistence.StepExecutionRepository {
	return fp.stepExecutionRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
