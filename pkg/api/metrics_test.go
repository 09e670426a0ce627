package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCountsRunsAndTasks(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()

	// Two runs start; one completes, one fails.
	require.NoError(t, m.Broadcast(ctx, Event{NewStatus: StatusRunning}))
	require.NoError(t, m.Broadcast(ctx, Event{NewStatus: StatusRunning}))
	require.NoError(t, m.Broadcast(ctx, Event{NewStatus: StatusCompleted}))
	require.NoError(t, m.Broadcast(ctx, Event{NewStatus: StatusFailed}))

	// Task-level events.
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "a", NewStatus: StatusSucceeded,
		Payload: map[string]any{"duration": 100 * time.Millisecond}}))
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "b", NewStatus: StatusSucceeded,
		Payload: map[string]any{"duration": 300 * time.Millisecond}}))
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "c", NewStatus: StatusFailed}))
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "d", NewStatus: StatusSkipped}))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RunsStarted)
	assert.Equal(t, int64(1), snap.RunsCompleted)
	assert.Equal(t, int64(1), snap.RunsFailed)
	assert.Equal(t, int64(0), snap.ActiveRuns)
	assert.Equal(t, int64(2), snap.TasksSucceeded)
	assert.Equal(t, int64(1), snap.TasksFailed)
	assert.Equal(t, int64(1), snap.TasksSkipped)
	assert.Equal(t, 200*time.Millisecond, snap.AvgTaskDuration)
}

func TestBasicMetricsRunAndTaskEventsAreDistinct(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()

	// A task entering RUNNING is not a run start.
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "a", NewStatus: StatusRunning}))
	// A run failing is not a task failure.
	require.NoError(t, m.Broadcast(ctx, Event{NewStatus: StatusFailed}))

	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.RunsStarted)
	assert.Equal(t, int64(1), snap.RunsFailed)
	assert.Equal(t, int64(0), snap.TasksFailed)
}

func TestBasicMetricsTracksLastTaskStart(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()

	first := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "a", NewStatus: StatusRunning, Timestamp: first}))
	require.NoError(t, m.Broadcast(ctx, Event{TaskName: "b", NewStatus: StatusRunning, Timestamp: second}))

	assert.True(t, m.Snapshot().LastTaskStart.Equal(second))
}

func TestBasicMetricsZeroSnapshot(t *testing.T) {
	snap := (&BasicMetrics{}).Snapshot()
	assert.Zero(t, snap.RunsStarted)
	assert.Zero(t, snap.AvgTaskDuration)
	assert.True(t, snap.LastTaskStart.IsZero())
}
