package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWorkflow is the sentinel matched (via errors.Is) by every
// validation error: cyclic dependencies and dangling references alike.
// The run never starts when validation fails; the caller can fix the spec
// and resubmit.
var ErrInvalidWorkflow = errors.New("invalid workflow graph")

// ErrRunNotFound is returned when a run is looked up by an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// ErrWorkflowNotFound is returned when a workflow is looked up by an
// unknown name.
var ErrWorkflowNotFound = errors.New("workflow not found")

// CyclicDependencyError reports a dependency cycle in a workflow spec.
// Cycle lists the participating task names in encounter order, with the
// start node repeated at the end, e.g. [A B A].
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrInvalidWorkflow
}

// DanglingDependencyError reports a task whose dependency does not resolve
// to any task in the same workflow.
type DanglingDependencyError struct {
	Task    string
	Missing string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.Task, e.Missing)
}

func (e *DanglingDependencyError) Is(target error) bool {
	return target == ErrInvalidWorkflow
}

// AsCyclicDependency returns the CyclicDependencyError in err's chain, if any.
func AsCyclicDependency(err error) (*CyclicDependencyError, bool) {
	var ce *CyclicDependencyError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsDanglingDependency returns the DanglingDependencyError in err's chain, if any.
func AsDanglingDependency(err error) (*DanglingDependencyError, bool) {
	var de *DanglingDependencyError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// FailureReason classifies why a task execution failed.
type FailureReason string

const (
	ReasonActionFailure FailureReason = "failure"
	ReasonTimeout       FailureReason = "timeout"
	ReasonCancelled     FailureReason = "cancelled"
)

// TaskExecutionError is the terminal error of a single failed task. It is
// recorded on the task's result and never unwinds across task boundaries:
// one task's failure must not take down the run.
type TaskExecutionError struct {
	Task   string
	Reason FailureReason
	Err    error
}

func (e *TaskExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("task %q failed (%s)", e.Task, e.Reason)
	}
	return fmt.Sprintf("task %q failed (%s): %v", e.Task, e.Reason, e.Err)
}

func (e *TaskExecutionError) Unwrap() error { return e.Err }

// AsTaskExecution returns the TaskExecutionError in err's chain, if any.
func AsTaskExecution(err error) (*TaskExecutionError, bool) {
	var te *TaskExecutionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// SchedulerFaultError reports an internal invariant violation inside the
// scheduler, e.g. a dispatch attempted on a task that is not ready. It is
// fatal to the run and surfaced distinctly from ordinary task failures,
// since it indicates an engine bug rather than workflow content.
type SchedulerFaultError struct {
	Detail string
}

func (e *SchedulerFaultError) Error() string {
	return "scheduler fault: " + e.Detail
}

// IsSchedulerFault reports whether err's chain contains a SchedulerFaultError.
func IsSchedulerFault(err error) bool {
	var se *SchedulerFaultError
	return errors.As(err, &se)
}
