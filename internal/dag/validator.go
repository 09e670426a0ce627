package dag

import (
	"fmt"

	"github.com/orbit-run/orbit/pkg/api"
)

// Validate builds the execution graph for spec and proves it is a DAG.
//
// It fails with *api.DanglingDependencyError when a dependency name does not
// resolve to a task in the same spec, and with *api.CyclicDependencyError
// when the graph contains a cycle (a direct self-dependency counts as a
// cycle of length one). Both match api.ErrInvalidWorkflow via errors.Is.
//
// Validation is deterministic: given the same spec, including task insertion
// order, it yields the same graph and, on failure, reports the same cycle or
// dangling reference.
func Validate(spec *api.WorkflowSpec) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]*Node, len(spec.Tasks)),
		order: make([]string, 0, len(spec.Tasks)),
	}

	for i := range spec.Tasks {
		name := spec.Tasks[i].Name
		if name == "" {
			return nil, fmt.Errorf("%w: task %d has no name", api.ErrInvalidWorkflow, i)
		}
		if _, ok := g.nodes[name]; ok {
			return nil, fmt.Errorf("%w: duplicate task name %q", api.ErrInvalidWorkflow, name)
		}
		g.nodes[name] = &Node{Name: name, Index: i}
		g.order = append(g.order, name)
	}

	// Resolve dependencies and build the dependency -> dependents adjacency.
	// Iterate in spec order so the first reported problem is stable.
	for _, name := range g.order {
		task := spec.Task(name)
		node := g.nodes[name]

		seen := make(map[string]bool, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true

			depNode, ok := g.nodes[dep]
			if !ok {
				return nil, &api.DanglingDependencyError{Task: name, Missing: dep}
			}
			node.Dependencies = append(node.Dependencies, dep)
			node.InDegree++
			depNode.Dependents = append(depNode.Dependents, name)
		}
	}

	if cycle := findCycle(g); cycle != nil {
		return nil, cycle
	}
	return g, nil
}

// findCycle runs a depth-first search with white/gray/black coloring over
// dependency edges and returns the first cycle it encounters, or nil.
func findCycle(g *Graph) *api.CyclicDependencyError {
	const (
		white = iota // unvisited
		gray         // on the current DFS stack
		black        // fully explored, known cycle-free
	)

	colors := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(name string) *api.CyclicDependencyError
	visit = func(name string) *api.CyclicDependencyError {
		colors[name] = gray
		stack = append(stack, name)

		for _, dep := range g.nodes[name].Dependencies {
			switch colors[dep] {
			case gray:
				// dep is on the stack: everything from its first
				// occurrence forward participates in the cycle.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				cycle = append(cycle, dep)
				return &api.CyclicDependencyError{Cycle: cycle}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[name] = black
		return nil
	}

	for _, name := range g.order {
		if colors[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
