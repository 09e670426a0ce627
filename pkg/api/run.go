package api

import "time"

// TaskResult holds the outcome of one task within a run.
type TaskResult struct {
	Name   string
	Status Status

	// Output is the action-specific result payload (HTTP status and body,
	// captured stdout/stderr, slept duration, ...). Nil unless the task
	// actually executed.
	Output map[string]any

	// Error describes why the task failed, if it did.
	Error string

	// SkippedBy names the direct upstream task whose failure (or skip, or
	// cancellation) caused this task to be skipped. Empty unless Status is
	// SKIPPED.
	SkippedBy string

	// Attempts is the number of execution attempts made, including the
	// first. Zero for tasks that never started.
	Attempts int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Run holds the result of one workflow run.
//
// A Run is created when execution starts and is never shared across runs;
// the engine hands the finished value to its RunStore for archival.
type Run struct {
	ID           string
	WorkflowID   string
	WorkflowName string
	Status       Status

	// Tasks maps task name to its result. Every task of the workflow spec
	// has an entry once the run has finished.
	Tasks map[string]*TaskResult

	// Err is set when the run itself failed: either a task failed (the
	// offending task is identifiable through Tasks) or the scheduler hit
	// an internal fault.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// TaskNames returns the names of tasks with the given status, in no
// particular order.
func (r *Run) TaskNames(status Status) []string {
	var names []string
	for name, tr := range r.Tasks {
		if tr.Status == status {
			names = append(names, name)
		}
	}
	return names
}

// RunListOptions controls how runs are listed.
// Zero values mean "no filter" for that field.
type RunListOptions struct {
	// WorkflowName, if non-empty, limits results to runs of the given workflow.
	WorkflowName string

	// Status, if non-empty, limits results to runs with the given status.
	Status Status
}
