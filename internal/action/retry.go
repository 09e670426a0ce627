package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// RetryingDispatcher wraps another Dispatcher with per-task bounded retry.
// The retry policy comes from the task spec; the scheduler only ever sees
// the final outcome, with the attempt count carried in the Result.
//
// Cancellation is never retried: once the run is being torn down, repeating
// the action would only delay the drain.
type RetryingDispatcher struct {
	next   Dispatcher
	logger *slog.Logger
}

// NewRetryingDispatcher wraps next with retry handling. If logger is nil,
// slog.Default() is used.
func NewRetryingDispatcher(next Dispatcher, logger *slog.Logger) *RetryingDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingDispatcher{next: next, logger: logger}
}

var _ Dispatcher = (*RetryingDispatcher)(nil)

func (d *RetryingDispatcher) Execute(ctx context.Context, task api.TaskSpec) (Result, error) {
	maxAttempts := 1
	var policy api.RetryPolicy
	if task.Retry != nil {
		policy = *task.Retry
		if policy.MaxAttempts > 1 {
			maxAttempts = policy.MaxAttempts
		}
	}

	var res Result
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = d.next.Execute(ctx, task)
		res.Attempts = attempt
		if err == nil {
			return res, nil
		}

		if te, ok := api.AsTaskExecution(err); ok && te.Reason == api.ReasonCancelled {
			return res, err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := policy.BackoffFor(attempt)
		d.logger.Warn("task attempt failed, retrying",
			slog.String("task", task.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return res, &api.TaskExecutionError{
					Task:   task.Name,
					Reason: api.ReasonCancelled,
					Err:    ctx.Err(),
				}
			case <-timer.C:
			}
		}
	}

	return res, err
}
