// Package engine wires the core together: repository stores for specs and
// runs, the graph validator, the scheduler, the action dispatcher, and the
// status tracker.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orbit-run/orbit/internal/action"
	"github.com/orbit-run/orbit/internal/dag"
	"github.com/orbit-run/orbit/internal/repository"
	"github.com/orbit-run/orbit/internal/scheduler"
	"github.com/orbit-run/orbit/internal/tracker"
	"github.com/orbit-run/orbit/pkg/api"
)

// engineImpl is a single-process engine implementation. One engine may
// execute many runs concurrently; each run has exactly one coordinating
// scheduler that owns that run's state.
var _ api.Engine = (*engineImpl)(nil)

type engineImpl struct {
	workflows repository.WorkflowStore
	runs      repository.RunStore

	executor       *scheduler.Executor
	tracker        *tracker.Tracker
	logger         *slog.Logger
	maxConcurrency int

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// Config describes how to construct an engine.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence repository.Persistence

	// Broadcaster receives every status event. Nil means no broadcasting.
	Broadcaster api.Broadcaster

	// Dispatcher executes task actions. Nil means the standard dispatcher
	// wrapped with retry handling.
	Dispatcher action.Dispatcher

	// Logger is used for engine-level structured logging. Nil means
	// slog.Default().
	Logger *slog.Logger

	// MaxConcurrency is the default per-run concurrency bound applied
	// when RunOptions does not choose one.
	MaxConcurrency int
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = action.NewRetryingDispatcher(action.NewStandardDispatcher(), logger)
	}

	tr := tracker.New(cfg.Broadcaster, logger)

	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = scheduler.DefaultConcurrency
	}

	return &engineImpl{
		workflows:      cfg.Persistence.Workflows,
		runs:           cfg.Persistence.Runs,
		executor:       scheduler.New(dispatcher, tr, logger),
		tracker:        tr,
		logger:         logger,
		maxConcurrency: maxConc,
		active:         make(map[string]context.CancelFunc),
	}
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() api.Engine {
	return NewInMemoryEngineWithBroadcaster(nil)
}

// NewInMemoryEngineWithBroadcaster returns an in-memory Engine with the
// given Broadcaster.
func NewInMemoryEngineWithBroadcaster(b api.Broadcaster) api.Engine {
	mem := repository.NewInMemoryStore()
	return NewEngineWithConfig(Config{
		Persistence: repository.Persistence{Workflows: mem, Runs: mem},
		Broadcaster: b,
	})
}

// NewSQLiteEngine returns an Engine that persists workflows and runs in a
// SQLite database.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	return NewSQLiteEngineWithBroadcaster(db, nil)
}

// NewSQLiteEngineWithBroadcaster returns a SQLite-backed Engine with the
// given Broadcaster.
func NewSQLiteEngineWithBroadcaster(db *sql.DB, b api.Broadcaster) (api.Engine, error) {
	store, err := repository.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Persistence: repository.Persistence{Workflows: store, Runs: store},
		Broadcaster: b,
	}), nil
}

// NewPostgresEngine returns an Engine that persists workflows and runs in
// PostgreSQL.
func NewPostgresEngine(db *sql.DB) (api.Engine, error) {
	store, err := repository.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Persistence: repository.Persistence{Workflows: store, Runs: store},
	}), nil
}

// NewRedisEngine returns an Engine that persists runs in Redis.
// Workflow definitions are kept in-memory.
func NewRedisEngine(client *redis.Client) api.Engine {
	return NewEngineWithConfig(Config{
		Persistence: repository.Persistence{
			Workflows: repository.NewInMemoryStore(),
			Runs:      repository.NewRedisRunStore(client, "orbit:"),
		},
	})
}

func (e *engineImpl) RegisterWorkflow(spec api.WorkflowSpec) error {
	if spec.Name == "" {
		return errors.New("workflow name is required")
	}
	if len(spec.Tasks) == 0 {
		return errors.New("workflow must have at least one task")
	}

	// Reject cycles and dangling references before the spec can ever run.
	if _, err := dag.Validate(&spec); err != nil {
		return err
	}

	// Check for duplicates via the store.
	if existing, err := e.workflows.GetWorkflow(spec.Name); err == nil && existing.Name != "" {
		return fmt.Errorf("workflow already registered: %s", spec.Name)
	} else if err != nil && !errors.Is(err, api.ErrWorkflowNotFound) {
		// Unexpected store error.
		return err
	}

	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now()
	}
	for i := range spec.Tasks {
		if spec.Tasks[i].ID == "" {
			spec.Tasks[i].ID = uuid.NewString()
		}
	}

	return e.workflows.SaveWorkflow(spec)
}

func (e *engineImpl) GetWorkflow(name string) (api.WorkflowSpec, error) {
	return e.workflows.GetWorkflow(name)
}

func (e *engineImpl) ListWorkflows() ([]api.WorkflowSpec, error) {
	return e.workflows.ListWorkflows()
}

func (e *engineImpl) Run(ctx context.Context, name string, opts api.RunOptions) (*api.Run, error) {
	spec, err := e.workflows.GetWorkflow(name)
	if err != nil {
		if errors.Is(err, api.ErrWorkflowNotFound) {
			return nil, fmt.Errorf("unknown workflow: %s", name)
		}
		return nil, err
	}

	// The graph was proven valid at registration; rebuild it for this run.
	graph, err := dag.Validate(&spec)
	if err != nil {
		return nil, err
	}

	run := &api.Run{
		ID:           uuid.NewString(),
		WorkflowID:   spec.ID,
		WorkflowName: spec.Name,
		Status:       api.StatusPending,
	}

	// Persist the run as soon as it exists so observers can find it.
	if err := e.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.active[run.ID] = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.active, run.ID)
		e.mu.Unlock()
	}()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = e.maxConcurrency
	}

	execErr := e.executor.Execute(runCtx, &spec, graph, run, concurrency)

	// Archive outside the caller's context: a cancelled ctx would otherwise
	// abort the write and leave the stored run at PENDING forever.
	if err := e.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		// The run finished; losing the archive is bad but must not turn a
		// completed run into an error for the caller.
		e.logger.Error("archiving finished run failed",
			slog.String("run_id", run.ID), slog.Any("error", err))
	}

	if execErr != nil {
		return run, execErr
	}
	return run, nil
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (*api.Run, error) {
	return e.runs.GetRun(ctx, id)
}

func (e *engineImpl) ListRuns(ctx context.Context, opts api.RunListOptions) ([]*api.Run, error) {
	return e.runs.ListRuns(ctx, repository.RunFilter{
		WorkflowName: opts.WorkflowName,
		Status:       opts.Status,
	})
}

func (e *engineImpl) CancelRun(id string) error {
	e.mu.Lock()
	cancel, ok := e.active[id]
	e.mu.Unlock()

	if !ok {
		return api.ErrRunNotFound
	}
	cancel()
	return nil
}
