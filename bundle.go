package orbit

import (
	"database/sql"

	"github.com/orbit-run/orbit/internal/taskqueue"
	workerpkg "github.com/orbit-run/orbit/pkg/worker"
)

// WorkerBundle wires together an Engine, a durable run-request queue, and a
// Worker that consumes requests from that queue.
//
// For now, we only provide a SQLite-backed bundle.
type WorkerBundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	// queue is kept unexported for now; it is primarily useful for internal
	// inspection and tests. The public API focuses on Engine and Worker.
	queue taskqueue.Queue
}

// NewSQLiteBundle constructs a durable Engine + Queue + Worker combo sharing
// the same SQLite database. Workflows, runs, and queued run requests are
// persisted in the provided *sql.DB, so queued work survives a restart.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:orbit.db?_journal=WAL")
//	bundle, err := orbit.NewSQLiteBundle(db)
//	// register workflows on bundle.Engine
//	// enqueue runs via bundle.Worker
func NewSQLiteBundle(db *sql.DB) (*WorkerBundle, error) {
	eng, err := NewSQLiteEngine(db)
	if err != nil {
		return nil, err
	}

	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.New(eng, q),
		queue:  q,
	}, nil
}
