package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-run/orbit/internal/engine"
	"github.com/orbit-run/orbit/pkg/api"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingEnqueuer) EnqueueRun(_ context.Context, name string, _ api.RunOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return "req-" + name, nil
}

func (r *recordingEnqueuer) enqueued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func registeredEngine(t *testing.T, names ...string) api.Engine {
	t.Helper()
	eng := engine.NewInMemoryEngine()
	for _, name := range names {
		spec := api.WorkflowSpec{
			Name: name,
			Tasks: []api.TaskSpec{
				{Name: "noop", ActionType: api.ActionSleep, ActionPayload: map[string]any{"duration_seconds": 0.0}},
			},
		}
		require.NoError(t, eng.RegisterWorkflow(spec))
	}
	return eng
}

func TestSchedulerTriggersDueWorkflows(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := New(registeredEngine(t, "nightly"), enq, time.Minute, nil)

	clock := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Add(Schedule{WorkflowName: "nightly", Every: time.Hour, Enabled: true}))

	// Zero NextRun means due immediately.
	s.CheckOnce(context.Background())
	assert.Equal(t, []string{"nightly"}, enq.enqueued())

	// Not due again within the interval.
	clock = clock.Add(30 * time.Minute)
	s.CheckOnce(context.Background())
	assert.Len(t, enq.enqueued(), 1)

	// Due again once the interval has elapsed.
	clock = clock.Add(31 * time.Minute)
	s.CheckOnce(context.Background())
	assert.Equal(t, []string{"nightly", "nightly"}, enq.enqueued())

	scheds := s.Schedules()
	require.Len(t, scheds, 1)
	assert.Equal(t, clock, scheds[0].LastRun)
	assert.Equal(t, clock.Add(time.Hour), scheds[0].NextRun)
}

func TestSchedulerSkipsDisabledSchedules(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := New(registeredEngine(t, "nightly"), enq, time.Minute, nil)

	require.NoError(t, s.Add(Schedule{WorkflowName: "nightly", Every: time.Hour}))

	s.CheckOnce(context.Background())
	assert.Empty(t, enq.enqueued())

	require.NoError(t, s.SetEnabled("nightly", true))
	s.CheckOnce(context.Background())
	assert.Equal(t, []string{"nightly"}, enq.enqueued())
}

func TestSchedulerDisablesScheduleForMissingWorkflow(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := New(engine.NewInMemoryEngine(), enq, time.Minute, nil)

	require.NoError(t, s.Add(Schedule{WorkflowName: "ghost", Every: time.Hour, Enabled: true}))

	s.CheckOnce(context.Background())
	assert.Empty(t, enq.enqueued())

	scheds := s.Schedules()
	require.Len(t, scheds, 1)
	assert.False(t, scheds[0].Enabled)
}

func TestSchedulerAddValidation(t *testing.T) {
	s := New(engine.NewInMemoryEngine(), &recordingEnqueuer{}, time.Minute, nil)

	require.Error(t, s.Add(Schedule{Every: time.Hour}))
	require.Error(t, s.Add(Schedule{WorkflowName: "x"}))
	require.Error(t, s.SetEnabled("unknown", true))
}

func TestSchedulerRemove(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := New(registeredEngine(t, "nightly"), enq, time.Minute, nil)

	require.NoError(t, s.Add(Schedule{WorkflowName: "nightly", Every: time.Hour, Enabled: true}))
	s.Remove("nightly")

	s.CheckOnce(context.Background())
	assert.Empty(t, enq.enqueued())
	assert.Empty(t, s.Schedules())
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s := New(engine.NewInMemoryEngine(), &recordingEnqueuer{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
