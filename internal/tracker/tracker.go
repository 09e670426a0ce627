// Package tracker turns workflow and task status transitions into immutable
// event records and forwards them to the configured broadcaster.
//
// The tracker never drops a transition silently, and a broadcaster failure
// never aborts execution: transport errors are logged and swallowed, since
// observability must not threaten correctness.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// Tracker records status transitions for one engine. It is safe for
// concurrent use; each call forwards exactly one event.
type Tracker struct {
	broadcaster api.Broadcaster
	logger      *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Tracker forwarding to b. A nil broadcaster is replaced by
// api.NoopBroadcaster; a nil logger by slog.Default().
func New(b api.Broadcaster, logger *slog.Logger) *Tracker {
	if b == nil {
		b = api.NoopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{broadcaster: b, logger: logger, now: time.Now}
}

// RunTransition records a transition of the run itself.
func (t *Tracker) RunTransition(ctx context.Context, run *api.Run, old, new api.Status, payload map[string]any) {
	t.emit(ctx, api.Event{
		WorkflowID:   run.WorkflowID,
		WorkflowName: run.WorkflowName,
		RunID:        run.ID,
		OldStatus:    old,
		NewStatus:    new,
		Timestamp:    t.now(),
		Payload:      payload,
	})
}

// TaskTransition records a transition of a single task within the run.
func (t *Tracker) TaskTransition(ctx context.Context, run *api.Run, taskName string, old, new api.Status, payload map[string]any) {
	t.emit(ctx, api.Event{
		WorkflowID:   run.WorkflowID,
		WorkflowName: run.WorkflowName,
		RunID:        run.ID,
		TaskName:     taskName,
		OldStatus:    old,
		NewStatus:    new,
		Timestamp:    t.now(),
		Payload:      payload,
	})
}

func (t *Tracker) emit(ctx context.Context, ev api.Event) {
	if err := t.broadcaster.Broadcast(ctx, ev); err != nil {
		t.logger.Warn("event broadcast failed",
			slog.String("run_id", ev.RunID),
			slog.String("task", ev.TaskName),
			slog.String("new_status", string(ev.NewStatus)),
			slog.Any("error", err),
		)
	}
}
