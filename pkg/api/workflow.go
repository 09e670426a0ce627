package api

import (
	"math/rand"
	"time"
)

// Status represents the lifecycle state of a run or of a single task.
//
// Task statuses: PENDING, READY, RUNNING, SUCCEEDED, FAILED, SKIPPED,
// CANCELLED. Run statuses: PENDING, RUNNING, COMPLETED, FAILED, CANCELLED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReady     Status = "READY"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// IsTerminal reports whether s is a terminal task status. A task with a
// terminal status never transitions again within the same run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// ActionType identifies the kind of work a task performs.
type ActionType string

const (
	ActionHTTPRequest  ActionType = "http_request"
	ActionPythonScript ActionType = "python_script"
	ActionShellCommand ActionType = "shell_command"
	ActionSleep        ActionType = "sleep"
)

// TaskSpec describes a single task within a workflow. It is immutable once
// the workflow has been validated; only per-run state (see Run) mutates
// during execution.
type TaskSpec struct {
	ID   string
	Name string

	// ActionType selects the handler that executes this task.
	ActionType ActionType

	// ActionPayload is the handler-specific configuration. Recognized
	// fields per action type:
	//
	//	http_request:  url (required), method (default GET), headers, body
	//	python_script: script (path or inline source, required), args
	//	shell_command: command (required), timeout_seconds
	//	sleep:         duration_seconds (required, >= 0)
	ActionPayload map[string]any

	// Dependencies lists the names of tasks in the same workflow that must
	// succeed before this task becomes ready. Self-references and names
	// that do not resolve to a task are rejected at validation time.
	Dependencies []string

	// Timeout bounds one execution attempt. Zero means no timeout beyond
	// what the action payload itself specifies.
	Timeout time.Duration

	// Retry, if non-nil, configures bounded retries for this task. The
	// scheduler only ever observes the final outcome of all attempts.
	Retry *RetryPolicy
}

// WorkflowSpec describes a workflow as a set of named tasks with declared
// dependencies. Task order is preserved: among simultaneously ready tasks
// the scheduler dispatches in insertion order, so runs of the same spec are
// reproducible.
type WorkflowSpec struct {
	ID          string
	Name        string
	Description string
	Tasks       []TaskSpec
	CreatedAt   time.Time
}

// Task returns the task with the given name, or nil if no such task exists.
func (w *WorkflowSpec) Task(name string) *TaskSpec {
	for i := range w.Tasks {
		if w.Tasks[i].Name == name {
			return &w.Tasks[i]
		}
	}
	return nil
}

// RetryPolicy controls how a task action is retried when it fails.
// MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// Backoff between attempts grows exponentially from InitialBackoff by
// BackoffMultiplier, capped at MaxBackoff (no cap if zero). With Jitter set,
// each delay is perturbed by up to ±25% to avoid retry storms against a
// shared downstream.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// BackoffFor returns the delay to apply before retry number attempt,
// where attempt is 1-based (attempt 1 is the first retry).
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if p.InitialBackoff <= 0 || attempt <= 0 {
		return 0
	}

	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}

	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}

	if p.Jitter {
		// ±25% random variation.
		d += (rand.Float64()*0.5 - 0.25) * d
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
