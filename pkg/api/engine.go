package api

import "context"

// Engine is the high-level orchestration API. It validates and stores
// workflow definitions, runs them to completion with dependency-driven
// scheduling, and exposes finished runs for inspection.
type Engine interface {
	// RegisterWorkflow validates the workflow's dependency graph and stores
	// the spec. Cyclic or dangling dependencies are rejected here, before
	// any run can start; the returned error matches ErrInvalidWorkflow.
	RegisterWorkflow(spec WorkflowSpec) error

	// GetWorkflow looks up a registered workflow by name.
	GetWorkflow(name string) (WorkflowSpec, error)

	// ListWorkflows returns all registered workflow specs.
	ListWorkflows() ([]WorkflowSpec, error)

	// Run executes the named workflow to completion (synchronously) and
	// returns the finished run. Task failures do not produce a non-nil
	// error here: they are recorded on the run itself. The error return is
	// reserved for "the run could not happen" conditions (unknown workflow,
	// validation failure, store failure) and scheduler faults.
	Run(ctx context.Context, name string, opts RunOptions) (*Run, error)

	// GetRun looks up a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs matching the given options.
	// If options are zero-valued, all runs are returned.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*Run, error)

	// CancelRun requests cancellation of an in-flight run. In-flight tasks
	// receive the cancellation signal; tasks not yet running are marked
	// CANCELLED. Returns ErrRunNotFound if no such run is active.
	CancelRun(id string) error
}

// RunOptions controls a single run.
type RunOptions struct {
	// Concurrency bounds how many tasks may be RUNNING at once.
	// Zero means the engine default.
	Concurrency int
}
