// Package dag builds and validates the dependency graph behind a workflow
// spec. Validation proves the graph acyclic and fully resolved before any
// execution begins; the resulting Graph is immutable and safe to share
// across all goroutines of a run.
package dag

// Node is a single task vertex in the execution graph.
type Node struct {
	// Name is the task name, unique within the workflow.
	Name string

	// Index is the task's position in the workflow spec. The scheduler
	// uses it as the deterministic tie-break among simultaneously ready
	// tasks.
	Index int

	// InDegree is the number of distinct dependencies this task declares.
	InDegree int

	// Dependencies holds the distinct upstream task names, in declared order.
	Dependencies []string

	// Dependents holds the names of tasks that depend on this one, in
	// workflow spec order.
	Dependents []string
}

// Graph is a validated execution graph: nodes keyed by task name plus the
// spec's insertion order. It is built once per run and never mutated after
// construction.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// Node returns the node with the given task name, or nil if absent.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Order returns the task names in workflow spec insertion order.
func (g *Graph) Order() []string {
	return g.order
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the names of tasks with no dependencies, in spec order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		if g.nodes[name].InDegree == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
