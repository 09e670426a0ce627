package api

import (
	"context"
	"sync/atomic"
	"time"
)

// BasicMetrics collects simple counters from the event stream. It implements
// Broadcaster and can be combined with other broadcasters via
// NewCompositeBroadcaster.
type BasicMetrics struct {
	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64
	runsCancelled atomic.Int64

	tasksSucceeded atomic.Int64
	tasksFailed    atomic.Int64
	tasksSkipped   atomic.Int64

	totalTaskDuration atomic.Int64 // nanoseconds, succeeded tasks only
	lastTaskStart     atomic.Int64 // unix nanos of the most recent task start
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCancelled int64
	ActiveRuns    int64

	TasksSucceeded int64
	TasksFailed    int64
	TasksSkipped   int64

	AvgTaskDuration time.Duration
	LastTaskStart   time.Time
}

func (m *BasicMetrics) Broadcast(ctx context.Context, ev Event) error {
	if ev.TaskName == "" {
		switch ev.NewStatus {
		case StatusRunning:
			m.runsStarted.Add(1)
		case StatusCompleted:
			m.runsCompleted.Add(1)
		case StatusFailed:
			m.runsFailed.Add(1)
		case StatusCancelled:
			m.runsCancelled.Add(1)
		}
		return nil
	}

	switch ev.NewStatus {
	case StatusRunning:
		m.lastTaskStart.Store(ev.Timestamp.UnixNano())
	case StatusSucceeded:
		m.tasksSucceeded.Add(1)
		if d, ok := ev.Payload["duration"].(time.Duration); ok {
			m.totalTaskDuration.Add(d.Nanoseconds())
		}
	case StatusFailed:
		m.tasksFailed.Add(1)
	case StatusSkipped:
		m.tasksSkipped.Add(1)
	}
	return nil
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	cancelled := m.runsCancelled.Load()
	succeeded := m.tasksSucceeded.Load()
	totalNs := m.totalTaskDuration.Load()

	var avg time.Duration
	if succeeded > 0 {
		avg = time.Duration(totalNs / succeeded)
	}

	var lastStart time.Time
	if ns := m.lastTaskStart.Load(); ns != 0 {
		lastStart = time.Unix(0, ns)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		RunsCancelled:   cancelled,
		ActiveRuns:      started - completed - failed - cancelled,
		TasksSucceeded:  succeeded,
		TasksFailed:     m.tasksFailed.Load(),
		TasksSkipped:    m.tasksSkipped.Load(),
		AvgTaskDuration: avg,
		LastTaskStart:   lastStart,
	}
}
