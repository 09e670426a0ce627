// Package api contains the core building blocks used by the orbit workflow
// engine. It provides the low-level primitives for describing workflows as
// dependency graphs of tasks, inspecting run results, and observing engine
// behavior.
//
// Most users interact with the higher-level orbit package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Workflow and task specs
//   - Runs and task results
//   - Status transitions and events
//   - Broadcasters
//
// # Workflow and Task Specs
//
// A WorkflowSpec describes the structure of a workflow: its name, its tasks,
// and the dependency edges between them. Each TaskSpec names an action type
// (HTTP request, shell command, Python script, sleep) and carries an opaque
// payload configuring that action.
//
// Specs are immutable once validated and are registered with an engine
// before they can be run. The engine validates the dependency graph up
// front: cycles and references to unknown tasks are rejected before any
// execution begins.
//
// # Runs
//
// A Run holds the outcome of executing a workflow once: a final status, a
// TaskResult per task, and timing information. Runs are created at execution
// start, mutated only by the scheduling coordinator, and handed to the
// configured store for archival when finished.
//
// # Events and Broadcasters
//
// Every status transition — of the run itself and of each task — is emitted
// as an immutable Event through the Broadcaster interface. Broadcasters
// deliver events to remote observers (websocket hubs, message buses, logs);
// ready-made implementations cover logging via slog, channel fan-out, simple
// in-memory metrics, and composition of several broadcasters.
//
// Broadcast failures are logged and swallowed by the engine: observability
// must never threaten correctness of execution.
//
// # Usage
//
// Most applications should start from the orbit package, using the
// WorkflowBuilder and engine constructors provided there. The api package is
// useful when you need lower-level access or when contributing changes to
// the core engine.
package api
