// Package repository holds the persistence collaborators of the engine:
// workflow definition storage and run archival. The engine core never
// persists anything itself — it loads specs from a WorkflowStore and hands
// finished (and starting) runs to a RunStore.
//
// Backends: in-memory (tests, local development), SQLite, Postgres, Redis.
package repository

import (
	"context"

	"github.com/orbit-run/orbit/pkg/api"
)

// WorkflowStore handles storage of workflow specs.
type WorkflowStore interface {
	// SaveWorkflow stores a validated spec, replacing any spec with the
	// same name.
	SaveWorkflow(spec api.WorkflowSpec) error

	// GetWorkflow returns the spec with the given name, or
	// api.ErrWorkflowNotFound.
	GetWorkflow(name string) (api.WorkflowSpec, error)

	// ListWorkflows returns every stored spec.
	ListWorkflows() ([]api.WorkflowSpec, error)

	// DeleteWorkflow removes the spec with the given name. Deleting an
	// unknown name is not an error.
	DeleteWorkflow(name string) error
}

// RunFilter selects runs from the store.
// Empty fields mean "no filter".
type RunFilter struct {
	WorkflowName string
	Status       api.Status
}

// RunStore handles storage of runs.
type RunStore interface {
	// SaveRun stores a new run.
	SaveRun(ctx context.Context, run *api.Run) error

	// UpdateRun replaces a previously saved run, or returns
	// api.ErrRunNotFound.
	UpdateRun(ctx context.Context, run *api.Run) error

	// GetRun returns the run with the given ID, or api.ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*api.Run, error)

	// ListRuns returns runs matching the filter.
	ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error)
}

// Persistence bundles the stores an engine needs.
type Persistence struct {
	Workflows WorkflowStore
	Runs      RunStore
}
