// Package scheduler drives a validated execution graph to completion:
// dependency-driven readiness, bounded-concurrency dispatch, skip cascades
// on upstream failure, and cancellation.
//
// The model is dynamic Kahn-style execution, not static layering: a task is
// dispatched the moment its last dependency succeeds and a concurrency slot
// is free, regardless of what else is still running.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orbit-run/orbit/internal/action"
	"github.com/orbit-run/orbit/internal/dag"
	"github.com/orbit-run/orbit/internal/tracker"
	"github.com/orbit-run/orbit/pkg/api"
)

// DefaultConcurrency bounds in-flight tasks when the caller does not choose
// a limit.
const DefaultConcurrency = 4

// Executor runs one workflow graph at a time per Execute call. The zero
// value is not usable; construct with New.
type Executor struct {
	dispatcher action.Dispatcher
	tracker    *tracker.Tracker
	logger     *slog.Logger
}

// New creates an Executor. A nil logger falls back to slog.Default().
func New(dispatcher action.Dispatcher, tr *tracker.Tracker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{dispatcher: dispatcher, tracker: tr, logger: logger}
}

// outcome is what a task goroutine reports back to the coordinator.
type outcome struct {
	name string
	res  action.Result
	err  error
}

// Execute runs the graph to completion, mutating run in place. Task
// failures are recorded on the run and do not produce a non-nil return;
// the error return is reserved for scheduler faults, which are fatal to
// the run and indicate an engine bug rather than workflow content.
func (e *Executor) Execute(ctx context.Context, spec *api.WorkflowSpec, graph *dag.Graph, run *api.Run, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	state := newRunState(graph)
	if run.Tasks == nil {
		run.Tasks = make(map[string]*api.TaskResult, graph.Len())
	}
	for _, name := range graph.Order() {
		run.Tasks[name] = &api.TaskResult{Name: name, Status: api.StatusPending}
	}

	run.StartedAt = time.Now()
	run.Status = api.StatusRunning
	e.tracker.RunTransition(ctx, run, api.StatusPending, api.StatusRunning, nil)
	e.logger.Info("run started",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.Int("tasks", graph.Len()),
		slog.Int("concurrency", concurrency),
	)

	// Tasks with no dependencies are ready immediately.
	for _, name := range graph.Roots() {
		e.transition(ctx, run, state, name, api.StatusReady, nil)
	}

	// Buffered so that in-flight goroutines can always deliver their
	// outcome, even if the coordinator bails out on a fault.
	done := make(chan outcome, graph.Len())
	inflight := 0
	cancelled := false
	failedBeforeCancel := false

	for {
		if !cancelled {
			for inflight < concurrency {
				name, ok := state.nextReady()
				if !ok {
					break
				}
				if err := e.dispatch(ctx, run, state, name, spec, done); err != nil {
					return e.fault(ctx, run, err)
				}
				inflight++
			}
		}

		if inflight == 0 {
			break
		}

		if cancelled {
			// Only draining remains; no new admissions.
			out := <-done
			inflight--
			if err := e.complete(ctx, run, state, out, cancelled, &failedBeforeCancel); err != nil {
				return e.fault(ctx, run, err)
			}
			continue
		}

		select {
		case out := <-done:
			inflight--
			if err := e.complete(ctx, run, state, out, cancelled, &failedBeforeCancel); err != nil {
				return e.fault(ctx, run, err)
			}
		case <-ctx.Done():
			cancelled = true
			e.cancelRemaining(ctx, run, state)
		}
	}

	if !cancelled && ctx.Err() != nil {
		// Cancellation arrived after the last in-flight task returned but
		// before we observed it; remaining tasks must not start.
		cancelled = true
		e.cancelRemaining(ctx, run, state)
	}

	if n := state.countIn(api.StatusPending); n > 0 && !cancelled {
		return e.fault(ctx, run, &api.SchedulerFaultError{
			Detail: fmt.Sprintf("%d tasks still pending with nothing in flight", n),
		})
	}

	e.finish(ctx, run, state, cancelled, failedBeforeCancel)
	return nil
}

// dispatch moves a READY task to RUNNING and launches its goroutine. The
// goroutine only executes the action and reports the outcome; all state
// mutation stays with the coordinator.
func (e *Executor) dispatch(ctx context.Context, run *api.Run, state *runState, name string, spec *api.WorkflowSpec, done chan<- outcome) error {
	if st := state.status[name]; st != api.StatusReady {
		return &api.SchedulerFaultError{
			Detail: fmt.Sprintf("dispatch attempted on task %q in status %s", name, st),
		}
	}

	task := *spec.Task(name)
	run.Tasks[name].StartedAt = time.Now()
	e.transition(ctx, run, state, name, api.StatusRunning, nil)

	go func() {
		res, err := e.dispatcher.Execute(ctx, task)
		done <- outcome{name: name, res: res, err: err}
	}()
	return nil
}

// complete applies one task outcome: terminal status, bookkeeping on
// dependents, and the skip cascade on failure.
func (e *Executor) complete(ctx context.Context, run *api.Run, state *runState, out outcome, cancelled bool, failedBeforeCancel *bool) error {
	if st := state.status[out.name]; st != api.StatusRunning {
		return &api.SchedulerFaultError{
			Detail: fmt.Sprintf("completion reported for task %q in status %s", out.name, st),
		}
	}

	tr := run.Tasks[out.name]
	tr.FinishedAt = time.Now()
	tr.Output = out.res.Output
	tr.Attempts = out.res.Attempts
	if tr.Attempts == 0 {
		tr.Attempts = 1
	}

	if out.err == nil {
		e.transition(ctx, run, state, out.name, api.StatusSucceeded, map[string]any{
			"duration": tr.FinishedAt.Sub(tr.StartedAt),
			"attempts": tr.Attempts,
		})

		for _, dep := range state.graph.Node(out.name).Dependents {
			state.remaining[dep]--
			if state.remaining[dep] == 0 && state.status[dep] == api.StatusPending {
				e.transition(ctx, run, state, dep, api.StatusReady, nil)
			}
		}
		return nil
	}

	terminal := api.StatusFailed
	if te, ok := api.AsTaskExecution(out.err); ok && te.Reason == api.ReasonCancelled {
		terminal = api.StatusCancelled
	}
	tr.Error = out.err.Error()

	if terminal == api.StatusFailed && !cancelled {
		*failedBeforeCancel = true
	}

	e.transition(ctx, run, state, out.name, terminal, map[string]any{
		"error":    tr.Error,
		"attempts": tr.Attempts,
	})
	e.logger.Error("task failed",
		slog.String("run_id", run.ID),
		slog.String("task", out.name),
		slog.String("status", string(terminal)),
		slog.Any("error", out.err),
	)

	e.skipDependents(ctx, run, state, out.name)
	return nil
}

// skipDependents cascades SKIPPED through the whole downstream subgraph of
// a task that failed, was skipped, or was cancelled. It does not wait for a
// dependent's other dependencies: one bad upstream is enough.
func (e *Executor) skipDependents(ctx context.Context, run *api.Run, state *runState, name string) {
	for _, dep := range state.graph.Node(name).Dependents {
		st := state.status[dep]
		if st != api.StatusPending && st != api.StatusReady {
			continue
		}
		run.Tasks[dep].SkippedBy = name
		e.transition(ctx, run, state, dep, api.StatusSkipped, map[string]any{
			"skipped_by": name,
		})
		e.skipDependents(ctx, run, state, dep)
	}
}

// cancelRemaining marks every task that has not yet started as CANCELLED.
// In-flight tasks keep running until they observe the context cancellation
// and report back.
func (e *Executor) cancelRemaining(ctx context.Context, run *api.Run, state *runState) {
	e.logger.Info("run cancellation requested, draining in-flight tasks",
		slog.String("run_id", run.ID))
	for _, name := range state.graph.Order() {
		st := state.status[name]
		if st == api.StatusPending || st == api.StatusReady {
			e.transition(ctx, run, state, name, api.StatusCancelled, nil)
		}
	}
}

// transition performs the single-writer status mutation and emits the event.
func (e *Executor) transition(ctx context.Context, run *api.Run, state *runState, name string, new api.Status, payload map[string]any) {
	old := state.status[name]
	state.status[name] = new
	run.Tasks[name].Status = new
	e.tracker.TaskTransition(ctx, run, name, old, new, payload)
}

// finish computes the final run status per the workflow invariant:
// COMPLETED iff no task failed or was cancelled; CANCELLED only when the
// run itself was cancelled before any failure; FAILED otherwise.
func (e *Executor) finish(ctx context.Context, run *api.Run, state *runState, cancelled, failedBeforeCancel bool) {
	run.FinishedAt = time.Now()

	final := api.StatusCompleted
	var payload map[string]any

	switch {
	case cancelled && !failedBeforeCancel:
		final = api.StatusCancelled
	default:
		// Report the first failed task in definition order so identical
		// inputs always name the same task.
		for _, name := range state.graph.Order() {
			if run.Tasks[name].Status != api.StatusFailed {
				continue
			}
			final = api.StatusFailed
			run.Err = fmt.Errorf("task %q failed: %s", name, run.Tasks[name].Error)
			payload = map[string]any{"error": run.Err.Error()}
			break
		}
	}

	old := run.Status
	run.Status = final
	e.tracker.RunTransition(ctx, run, old, final, payload)
	e.logger.Info("run finished",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.String("status", string(final)),
		slog.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	)
}

// fault records a scheduler fault as a failed run and returns the fault so
// the caller can distinguish it from ordinary task failures.
func (e *Executor) fault(ctx context.Context, run *api.Run, err error) error {
	run.FinishedAt = time.Now()
	old := run.Status
	run.Status = api.StatusFailed
	run.Err = err
	e.tracker.RunTransition(ctx, run, old, api.StatusFailed, map[string]any{
		"error": err.Error(),
	})
	e.logger.Error("scheduler fault", slog.String("run_id", run.ID), slog.Any("error", err))
	return err
}
