package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/orbit-run/orbit/pkg/api"
)

type storeFactory func(t *testing.T) Persistence

func inMemoryPersistence(t *testing.T) Persistence {
	t.Helper()
	mem := NewInMemoryStore()
	return Persistence{Workflows: mem, Runs: mem}
}

func sqlitePersistence(t *testing.T) Persistence {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// A pooled second connection would see its own empty memory database.
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return Persistence{Workflows: store, Runs: store}
}

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"in-memory": inMemoryPersistence,
		"sqlite":    sqlitePersistence,
	}
}

func sampleWorkflow(name string) api.WorkflowSpec {
	return api.WorkflowSpec{
		ID:          "wf-" + name,
		Name:        name,
		Description: "sample pipeline",
		Tasks: []api.TaskSpec{
			{
				Name:          "fetch",
				ActionType:    api.ActionHTTPRequest,
				ActionPayload: map[string]any{"url": "https://example.com/data"},
				Timeout:       5 * time.Second,
			},
			{
				Name:          "process",
				ActionType:    api.ActionShellCommand,
				ActionPayload: map[string]any{"command": "wc -l"},
				Dependencies:  []string{"fetch"},
				Retry:         &api.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second},
			},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func sampleRun(id, workflow string, status api.Status) *api.Run {
	return &api.Run{
		ID:           id,
		WorkflowID:   "wf-" + workflow,
		WorkflowName: workflow,
		Status:       status,
		Tasks: map[string]*api.TaskResult{
			"fetch": {
				Name:     "fetch",
				Status:   api.StatusSucceeded,
				Output:   map[string]any{"status_code": float64(200)},
				Attempts: 1,
			},
		},
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestWorkflowStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t).Workflows

			spec := sampleWorkflow("etl")
			require.NoError(t, store.SaveWorkflow(spec))

			got, err := store.GetWorkflow("etl")
			require.NoError(t, err)
			assert.Equal(t, spec.ID, got.ID)
			assert.Equal(t, spec.Description, got.Description)
			require.Len(t, got.Tasks, 2)
			assert.Equal(t, 5*time.Second, got.Tasks[0].Timeout)
			assert.Equal(t, []string{"fetch"}, got.Tasks[1].Dependencies)
			require.NotNil(t, got.Tasks[1].Retry)
			assert.Equal(t, 3, got.Tasks[1].Retry.MaxAttempts)

			_, err = store.GetWorkflow("absent")
			assert.ErrorIs(t, err, api.ErrWorkflowNotFound)
		})
	}
}

func TestWorkflowStoreSaveOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t).Workflows

			spec := sampleWorkflow("etl")
			require.NoError(t, store.SaveWorkflow(spec))

			spec.Description = "updated"
			require.NoError(t, store.SaveWorkflow(spec))

			got, err := store.GetWorkflow("etl")
			require.NoError(t, err)
			assert.Equal(t, "updated", got.Description)

			specs, err := store.ListWorkflows()
			require.NoError(t, err)
			assert.Len(t, specs, 1)
		})
	}
}

func TestRunStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t).Runs

			run := sampleRun("run-1", "etl", api.StatusRunning)
			require.NoError(t, store.SaveRun(ctx, run))

			got, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, api.StatusRunning, got.Status)
			require.Contains(t, got.Tasks, "fetch")
			assert.Equal(t, float64(200), got.Tasks["fetch"].Output["status_code"])

			run.Status = api.StatusCompleted
			require.NoError(t, store.UpdateRun(ctx, run))

			got, err = store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, api.StatusCompleted, got.Status)

			_, err = store.GetRun(ctx, "absent")
			assert.ErrorIs(t, err, api.ErrRunNotFound)
			assert.ErrorIs(t, store.UpdateRun(ctx, sampleRun("absent", "etl", api.StatusFailed)), api.ErrRunNotFound)
		})
	}
}

func TestRunStoreListFilters(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t).Runs

			require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", "etl", api.StatusCompleted)))
			require.NoError(t, store.SaveRun(ctx, sampleRun("run-2", "etl", api.StatusFailed)))
			require.NoError(t, store.SaveRun(ctx, sampleRun("run-3", "report", api.StatusCompleted)))

			all, err := store.ListRuns(ctx, RunFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			// Insertion order is preserved.
			assert.Equal(t, "run-1", all[0].ID)
			assert.Equal(t, "run-3", all[2].ID)

			etl, err := store.ListRuns(ctx, RunFilter{WorkflowName: "etl"})
			require.NoError(t, err)
			assert.Len(t, etl, 2)

			failed, err := store.ListRuns(ctx, RunFilter{Status: api.StatusFailed})
			require.NoError(t, err)
			require.Len(t, failed, 1)
			assert.Equal(t, "run-2", failed[0].ID)

			both, err := store.ListRuns(ctx, RunFilter{WorkflowName: "etl", Status: api.StatusCompleted})
			require.NoError(t, err)
			require.Len(t, both, 1)
			assert.Equal(t, "run-1", both[0].ID)
		})
	}
}

func TestRunStoreIsolatesStoredRuns(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t).Runs

			run := sampleRun("run-1", "etl", api.StatusRunning)
			require.NoError(t, store.SaveRun(ctx, run))

			// Mutating the caller's value must not affect the stored copy.
			run.Status = api.StatusFailed
			run.Tasks["fetch"].Status = api.StatusFailed

			got, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, api.StatusRunning, got.Status)
			assert.Equal(t, api.StatusSucceeded, got.Tasks["fetch"].Status)
		})
	}
}
