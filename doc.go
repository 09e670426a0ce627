// Package orbit provides a lightweight, embeddable DAG workflow engine for Go.
//
// Orbit executes workflows defined as directed acyclic graphs of tasks: each
// task declares the tasks it depends on, and the engine runs every task as
// soon as all of its dependencies have succeeded, subject to a configurable
// concurrency bound. It runs fully in Go, supports multiple persistence
// backends, and integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The Orbit programming model is intentionally small and idiomatic:
//
//  1. Engine
//  2. WorkflowBuilder
//  3. Actions
//  4. Worker
//  5. LocalRunner
//
// These components form a complete workflow system with validated graphs,
// deterministic scheduling, and a clear mental model.
//
// # Engine
//
// The Engine stores workflow specs, validates their dependency graphs,
// executes runs, and provides APIs to:
//   - register workflows
//   - start runs synchronously
//   - cancel in-flight runs
//   - read run results and history
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//
// Registration rejects invalid graphs up front: a dependency cycle or a
// dependency naming a task that does not exist fails with an error matching
// ErrInvalidWorkflow, and the workflow never runs.
//
// # Execution model
//
// A run owns a private copy of per-task state. Tasks with no dependencies
// start immediately; every other task starts once all of its dependencies
// have succeeded. When a task fails, everything downstream of it is marked
// SKIPPED (transitively) while independent branches keep running to
// completion. Among simultaneously ready tasks the engine dispatches in the
// order the tasks were defined, so runs of the same spec are reproducible.
//
// # WorkflowBuilder and Actions
//
// WorkflowBuilder provides the declarative API used to define workflows.
// A task's work is described by an Action:
//
//   - HTTPRequest: issue an HTTP call; status >= 400 fails the task
//   - ShellCommand: run a command through the shell
//   - PythonScript: run a Python file or inline source
//   - Sleep: a cancellable timer
//
// Example:
//
//	orbit.New("nightly-etl").
//	    Task("extract", orbit.HTTPRequest("https://api.example.com/export")).
//	    Task("transform", orbit.PythonScript("transform.py"), orbit.After("extract")).
//	    Task("load", orbit.ShellCommand("psql -f load.sql"),
//	        orbit.After("transform"),
//	        orbit.WithRetry(orbit.Retry(3).WithExponentialBackoff(time.Second, 2.0, time.Minute).Policy()))
//
// Workflows can equally be loaded from YAML with LoadWorkflow.
//
// # Worker
//
// A Worker pulls run requests from a queue and executes them through an
// Engine. Workers run asynchronously and can be scaled horizontally; queue
// backends exist in-memory and on SQLite (see NewSQLiteBundle).
//
// # Observability
//
// Every status transition of a run or task is published as an Event to the
// engine's Broadcaster: log it with NewLoggingBroadcaster, consume it from a
// channel with NewChannelBroadcaster, aggregate counters with BasicMetrics,
// or fan out to several sinks with NewCompositeBroadcaster. A broadcaster
// failure never affects execution.
//
// # LocalRunner
//
// LocalRunner bundles an in-memory engine, queue, worker pool, and interval
// scheduler into a single process-local helper useful for development and
// unit testing. It is intentionally not crash-durable, but it provides the
// most convenient way to run and debug workflows during development.
//
// # Summary
//
// Orbit's goal is to give Go developers a workflow engine that feels like
// Go: easy to embed, easy to test, deterministic, and without operational
// overhead. Engines validate and execute DAGs, Actions contain the work,
// WorkflowBuilder defines workflows, Workers execute queued runs, and
// LocalRunner provides a fast, developer-friendly runtime.
package orbit
