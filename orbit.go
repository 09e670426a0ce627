package orbit

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/orbit-run/orbit/internal/dag"
	"github.com/orbit-run/orbit/internal/engine"
	"github.com/orbit-run/orbit/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	WorkflowSpec         = api.WorkflowSpec
	TaskSpec             = api.TaskSpec
	Run                  = api.Run
	TaskResult           = api.TaskResult
	RunOptions           = api.RunOptions
	RunListOptions       = api.RunListOptions
	Status               = api.Status
	ActionType           = api.ActionType
	RetryPolicy          = api.RetryPolicy
	Event                = api.Event
	Broadcaster          = api.Broadcaster
	NoopBroadcaster      = api.NoopBroadcaster
	LoggingBroadcaster   = api.LoggingBroadcaster
	ChannelBroadcaster   = api.ChannelBroadcaster
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
)

// Re-export common broadcaster helpers.

var (
	NewLoggingBroadcaster   = api.NewLoggingBroadcaster
	NewCompositeBroadcaster = api.NewCompositeBroadcaster
	NewChannelBroadcaster   = api.NewChannelBroadcaster
)

// Re-export status values for convenience.

const (
	StatusPending   = api.StatusPending
	StatusReady     = api.StatusReady
	StatusRunning   = api.StatusRunning
	StatusSucceeded = api.StatusSucceeded
	StatusFailed    = api.StatusFailed
	StatusSkipped   = api.StatusSkipped
	StatusCancelled = api.StatusCancelled
	StatusCompleted = api.StatusCompleted
)

// Re-export action types.

const (
	ActionHTTPRequest  = api.ActionHTTPRequest
	ActionPythonScript = api.ActionPythonScript
	ActionShellCommand = api.ActionShellCommand
	ActionSleep        = api.ActionSleep
)

// Validation sentinels, re-exported for errors.Is matching.

var (
	ErrInvalidWorkflow  = api.ErrInvalidWorkflow
	ErrRunNotFound      = api.ErrRunNotFound
	ErrWorkflowNotFound = api.ErrWorkflowNotFound
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithBroadcaster returns an in-memory Engine with the
// given Broadcaster.
func NewInMemoryEngineWithBroadcaster(b Broadcaster) Engine {
	return engine.NewInMemoryEngineWithBroadcaster(b)
}

// NewSQLiteEngine returns an Engine that persists workflows and runs in a
// SQLite database.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithBroadcaster returns a SQLite-backed Engine with the
// given Broadcaster.
func NewSQLiteEngineWithBroadcaster(db *sql.DB, b Broadcaster) (Engine, error) {
	return engine.NewSQLiteEngineWithBroadcaster(db, b)
}

// NewPostgresEngine returns an Engine that persists workflows and runs in
// PostgreSQL.
func NewPostgresEngine(db *sql.DB) (Engine, error) {
	return engine.NewPostgresEngine(db)
}

// NewRedisEngine returns an Engine that persists runs in Redis.
// Workflow definitions are kept in-memory.
func NewRedisEngine(client *redis.Client) Engine {
	return engine.NewRedisEngine(client)
}

// Validate checks a workflow spec without registering it: every dependency
// must resolve to a task in the same workflow and the dependency graph must
// be acyclic. The returned error matches ErrInvalidWorkflow via errors.Is.
func Validate(spec WorkflowSpec) error {
	_, err := dag.Validate(&spec)
	return err
}

// Convenience helpers that just forward to the underlying Engine.

// StartRun runs a registered workflow synchronously and returns the
// finished run.
func StartRun(ctx context.Context, eng Engine, name string, opts RunOptions) (*Run, error) {
	return eng.Run(ctx, name, opts)
}

// GetRun fetches a run by ID.
func GetRun(ctx context.Context, eng Engine, id string) (*Run, error) {
	return eng.GetRun(ctx, id)
}

// ListRuns lists runs according to the given options.
func ListRuns(ctx context.Context, eng Engine, opts RunListOptions) ([]*Run, error) {
	return eng.ListRuns(ctx, opts)
}
