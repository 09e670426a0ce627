package scheduler

import (
	"github.com/orbit-run/orbit/internal/dag"
	"github.com/orbit-run/orbit/pkg/api"
)

// runState is the mutable per-run bookkeeping. It is owned exclusively by
// the coordinating goroutine of one Execute call; task goroutines never
// touch it — they report outcomes on a channel and the coordinator performs
// the only mutation.
type runState struct {
	graph     *dag.Graph
	status    map[string]api.Status
	remaining map[string]int // dependencies not yet succeeded
}

func newRunState(graph *dag.Graph) *runState {
	s := &runState{
		graph:     graph,
		status:    make(map[string]api.Status, graph.Len()),
		remaining: make(map[string]int, graph.Len()),
	}
	for _, name := range graph.Order() {
		s.status[name] = api.StatusPending
		s.remaining[name] = graph.Node(name).InDegree
	}
	return s
}

// nextReady returns the first READY task in workflow spec insertion order.
// The scan keeps dispatch deterministic for a given spec and concurrency
// limit.
func (s *runState) nextReady() (string, bool) {
	for _, name := range s.graph.Order() {
		if s.status[name] == api.StatusReady {
			return name, true
		}
	}
	return "", false
}

// countIn returns how many tasks currently have the given status.
func (s *runState) countIn(status api.Status) int {
	n := 0
	for _, st := range s.status {
		if st == status {
			n++
		}
	}
	return n
}
