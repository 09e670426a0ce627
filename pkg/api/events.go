package api

import (
	"context"
	"log/slog"
	"time"
)

// Event is an immutable record of one status transition, either of the run
// itself (TaskName empty) or of a single task.
//
// Events for one task are emitted in causal order
// (PENDING -> READY -> RUNNING -> terminal). Across tasks, ordering only
// respects dependency edges, not wall-clock simultaneity.
type Event struct {
	WorkflowID   string
	WorkflowName string
	RunID        string

	// TaskName is empty for run-level transitions.
	TaskName string

	OldStatus Status
	NewStatus Status
	Timestamp time.Time

	// Payload carries small, human-oriented details: the task error, the
	// upstream task that triggered a skip, and similar. Do not dump large
	// action outputs here.
	Payload map[string]any
}

// Broadcaster receives status events from the engine and delivers them to
// remote observers (websocket fan-out, message bus, log sink, ...).
//
// Delivery and transport guarantees are the broadcaster's responsibility.
// Implementations should be fast and non-blocking; a broadcast error never
// aborts execution — the engine logs it and continues.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
}

// NoopBroadcaster discards all events.
// It is used as the default when no broadcaster is configured.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(ctx context.Context, ev Event) error { return nil }

// CompositeBroadcaster fans out events to multiple broadcasters.
type CompositeBroadcaster struct {
	broadcasters []Broadcaster
}

// NewCompositeBroadcaster creates a Broadcaster that forwards each event to
// every non-nil broadcaster in bs. Errors from individual broadcasters do
// not stop the fan-out; the first error is returned.
func NewCompositeBroadcaster(bs ...Broadcaster) Broadcaster {
	filtered := make([]Broadcaster, 0, len(bs))
	for _, b := range bs {
		if b != nil {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return NoopBroadcaster{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeBroadcaster{broadcasters: filtered}
}

func (c *CompositeBroadcaster) Broadcast(ctx context.Context, ev Event) error {
	var first error
	for _, b := range c.broadcasters {
		if err := b.Broadcast(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoggingBroadcaster writes structured logs for every event using log/slog.
type LoggingBroadcaster struct {
	Logger *slog.Logger
}

// NewLoggingBroadcaster creates a Broadcaster that logs status transitions
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingBroadcaster(logger *slog.Logger) Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingBroadcaster{Logger: logger}
}

func (b *LoggingBroadcaster) Broadcast(ctx context.Context, ev Event) error {
	level := slog.LevelDebug
	if ev.TaskName == "" || ev.NewStatus == StatusFailed {
		level = slog.LevelInfo
	}
	if ev.NewStatus == StatusFailed {
		level = slog.LevelError
	}

	attrs := []any{
		slog.String("workflow", ev.WorkflowName),
		slog.String("run_id", ev.RunID),
		slog.String("old_status", string(ev.OldStatus)),
		slog.String("new_status", string(ev.NewStatus)),
	}
	if ev.TaskName != "" {
		attrs = append(attrs, slog.String("task", ev.TaskName))
	}
	if len(ev.Payload) > 0 {
		attrs = append(attrs, slog.Any("payload", ev.Payload))
	}

	b.Logger.Log(ctx, level, "status_change", attrs...)
	return nil
}

// ChannelBroadcaster forwards events into a buffered channel, typically
// consumed by a websocket hub or any other transport layer.
//
// If the channel is full the event is dropped and an error is returned so
// the engine can log the loss; execution itself is never blocked on slow
// consumers.
type ChannelBroadcaster struct {
	ch chan Event
}

// NewChannelBroadcaster creates a ChannelBroadcaster with the given buffer
// capacity. A modest capacity (e.g. 256) is fine for most consumers.
func NewChannelBroadcaster(capacity int) *ChannelBroadcaster {
	if capacity <= 0 {
		capacity = 256
	}
	return &ChannelBroadcaster{ch: make(chan Event, capacity)}
}

// Events returns the receive side of the broadcast channel.
func (b *ChannelBroadcaster) Events() <-chan Event { return b.ch }

func (b *ChannelBroadcaster) Broadcast(ctx context.Context, ev Event) error {
	select {
	case b.ch <- ev:
		return nil
	default:
		return &broadcastDroppedError{ev: ev}
	}
}

type broadcastDroppedError struct {
	ev Event
}

func (e *broadcastDroppedError) Error() string {
	return "event channel full, dropped transition " +
		string(e.ev.OldStatus) + " -> " + string(e.ev.NewStatus)
}
