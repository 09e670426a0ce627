package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orbit-run/orbit/internal/taskqueue"
	"github.com/orbit-run/orbit/pkg/api"
)

// Worker pulls run requests from a Queue and executes them with an Engine.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
}

// New creates a new Worker.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return &Worker{
		engine: engine,
		queue:  queue,
	}
}

// EnqueueRun enqueues a request to run a registered workflow asynchronously.
// It does NOT execute the workflow itself; that is done by ProcessOne. The
// returned ID identifies the request, not the run it will eventually start.
func (w *Worker) EnqueueRun(ctx context.Context, workflowName string, opts api.RunOptions) (string, error) {
	req := taskqueue.RunRequest{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		Concurrency:  opts.Concurrency,
		EnqueuedAt:   time.Now(),
	}
	if err := w.queue.Enqueue(ctx, req); err != nil {
		return "", err
	}
	return req.ID, nil
}

// EnqueueRunAt enqueues a request to run a workflow no earlier than the
// given time 'at'.
func (w *Worker) EnqueueRunAt(ctx context.Context, workflowName string, opts api.RunOptions, at time.Time) (string, error) {
	req := taskqueue.RunRequest{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		Concurrency:  opts.Concurrency,
		EnqueuedAt:   time.Now(),
		NotBefore:    at,
	}
	if err := w.queue.Enqueue(ctx, req); err != nil {
		return "", err
	}
	return req.ID, nil
}

// ProcessOne pulls a single request from the queue and executes it.
// Returns (processed, error):
//   - processed == false, err != nil: nothing processed (dequeue failed,
//     typically because ctx was cancelled)
//   - processed == true: a request was executed; err reports whether the
//     run itself failed
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	req, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, nil
	}

	_, runErr := w.engine.Run(ctx, req.WorkflowName, api.RunOptions{
		Concurrency: req.Concurrency,
	})
	return true, runErr
}

// ProcessLoop processes requests until ctx is cancelled. Run errors do not
// stop the loop; dequeue errors do.
func (w *Worker) ProcessLoop(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil && !processed {
			return err
		}
	}
}
