// Package worker provides the background worker that drives asynchronous
// workflow runs.
//
// Workers consume run requests from a task queue and execute them through an
// engine. They are designed to be lightweight and easy to embed in existing
// services, and multiple workers can safely consume from the same queue to
// scale processing.
//
// # Worker Responsibilities
//
// A worker is responsible for:
//
//   - Polling a task queue for pending run requests
//   - Starting the requested workflow run through the engine
//   - Honoring the per-request concurrency bound and delivery time
//
// Workers are long-lived components that typically run in dedicated
// goroutines. ProcessLoop runs until the context is cancelled; ProcessOne
// handles exactly one request and is the building block for custom loops.
//
// # Integration with Engine and Queues
//
// Workers are decoupled from any particular persistence backend. They rely
// on the Engine interface for execution and the taskqueue.Queue interface
// for delivery, so different queue backends (in-memory, SQLite) can be
// plugged in without changing worker code.
//
// Most users should create workers via the orbit package, which wires
// engines, queues, and workers together with sensible defaults.
package worker
