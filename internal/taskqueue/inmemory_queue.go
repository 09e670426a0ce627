package taskqueue

import (
	"context"
	"fmt"
	"time"
)

// InMemoryQueue is a Queue implementation backed by a buffered channel.
// It is safe for concurrent use. NotBefore is honored by re-checking at
// dequeue time.
type InMemoryQueue struct {
	ch chan RunRequest
}

// NewInMemoryQueue creates a new queue with the given capacity.
// For tests and small deployments, a modest capacity (e.g. 1024) is fine.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{ch: make(chan RunRequest, capacity)}
}

// Ensure InMemoryQueue implements Queue.
var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, req RunRequest) error {
	if req.EnqueuedAt.IsZero() {
		req.EnqueuedAt = time.Now()
	}
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*RunRequest, error) {
	select {
	case req := <-q.ch:
		if wait := time.Until(req.NotBefore); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				// Put the request back so it is not lost. If the channel
				// filled up in the meantime the request is gone; say so
				// instead of dropping it silently.
				select {
				case q.ch <- req:
					return nil, ctx.Err()
				default:
					return nil, fmt.Errorf("requeue of run request %s failed, queue full: %w", req.ID, ctx.Err())
				}
			}
		}
		return &req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}
