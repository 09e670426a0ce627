package orbit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/orbit-run/orbit/internal/schedule"
	"github.com/orbit-run/orbit/internal/taskqueue"
	"github.com/orbit-run/orbit/pkg/worker"
)

// LocalRunner bundles an in-memory Engine, an in-memory queue, a Worker,
// and an interval Scheduler into a simple single-process runner for
// development and small deployments.
//
// Typical usage:
//
//	runner := orbit.NewLocalRunner()
//	orbit.New("etl").
//	    Task("extract", orbit.HTTPRequest("https://...")).
//	    MustRegister(runner.Engine)
//
//	// Synchronous run (no queue/worker involved):
//	run, err := orbit.StartRun(ctx, runner.Engine, "etl", orbit.RunOptions{})
//
//	// Asynchronous run:
//	_ = runner.StartWorkers(ctx, 2)
//	_, _ = runner.StartRunAsync(ctx, "etl", orbit.RunOptions{})
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory engine used by this runner.
	Engine Engine

	// Queue is the in-memory run-request queue consumed by the workers.
	Queue taskqueue.Queue

	// Worker processes run requests from Queue using Engine.
	Worker *worker.Worker

	// Scheduler triggers interval schedules through Worker. It only runs
	// while the workers are started.
	Scheduler *schedule.Scheduler

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory engine.
// Use NewLocalRunnerWithBroadcaster to observe status events.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWithBroadcaster(nil)
}

// NewLocalRunnerWithBroadcaster is NewLocalRunner with a Broadcaster
// attached to the engine.
func NewLocalRunnerWithBroadcaster(b Broadcaster) *LocalRunner {
	eng := NewInMemoryEngineWithBroadcaster(b)
	q := taskqueue.NewInMemoryQueue(1024)
	w := worker.New(eng, q)

	return &LocalRunner{
		Engine:    eng,
		Queue:     q,
		Worker:    w,
		Scheduler: schedule.New(eng, w, 5*time.Second, slog.Default()),
	}
}

// StartWorkers starts 'concurrency' worker goroutines plus the scheduler
// loop, all running until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("orbit: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if err != nil {
					// Cancellation is a clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// Other errors (a failed run, a bad request) must not
					// kill the worker loop.
					slog.Warn("local runner worker error", slog.Any("error", err))
					continue
				}
				if !processed {
					continue
				}
			}
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Scheduler.Run(ctx)
	}()

	return nil
}

// Stop cancels all goroutines started by StartWorkers and waits for them
// to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// StartRunAsync enqueues a run of the given workflow. The workflow must
// already be registered on LocalRunner.Engine. The returned ID identifies
// the queued request.
func (r *LocalRunner) StartRunAsync(ctx context.Context, workflowName string, opts RunOptions) (string, error) {
	return r.Worker.EnqueueRun(ctx, workflowName, opts)
}

// ScheduleEvery registers an interval schedule for the given workflow:
// while the workers are started, a run is enqueued every interval.
func (r *LocalRunner) ScheduleEvery(workflowName string, every time.Duration) error {
	return r.Scheduler.Add(schedule.Schedule{
		WorkflowName: workflowName,
		Every:        every,
		Enabled:      true,
	})
}
