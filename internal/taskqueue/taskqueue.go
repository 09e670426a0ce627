// Package taskqueue provides the queue that decouples run submission from
// run execution. Workers dequeue run requests and drive them through the
// engine; the queue itself owns no execution logic.
package taskqueue

import (
	"context"
	"time"
)

// RunRequest asks a worker to execute a registered workflow.
type RunRequest struct {
	ID string

	// WorkflowName names the registered workflow to run.
	WorkflowName string

	// Concurrency bounds in-flight tasks for this run. Zero means the
	// engine default.
	Concurrency int

	EnqueuedAt time.Time

	// NotBefore is the earliest time this request should be eligible for
	// processing. Zero value means "immediately".
	NotBefore time.Time
}

// Queue is a simple async run-request queue interface.
type Queue interface {
	// Enqueue adds a request to the queue. It should respect ctx for
	// cancellation.
	Enqueue(ctx context.Context, req RunRequest) error

	// Dequeue removes and returns the next eligible request, blocking
	// until one is available or the context is cancelled.
	Dequeue(ctx context.Context) (*RunRequest, error)

	// Len returns the approximate number of requests queued.
	Len() int
}
