// Package domain contains the core domain models and business logic for the asset pipeline.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of tasks.
type Graph struct {
	root           string
	tasks          map[InternedString]Task
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
	position       map[InternedString]int
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[InternedString]Task),
		dependents: make(map[InternedString][]InternedString),
		position:   make(map[InternedString]int),
	}
}

// Root returns the project root directory the tasks resolve paths against.
func (g *Graph) Root() string {
	return g.root
}

// SetRoot sets the project root directory.
func (g *Graph) SetRoot(root string) {
	g.root = root
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return Tag(ErrTaskAlreadyExists, "task_name", t.Name.String())
	}
	g.tasks[t.Name] = *t
	return nil
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Names returns all task names sorted alphabetically.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name.String())
	}
	slices.Sort(names)
	return names
}

// Dependents returns the tasks that list name as a prerequisite.
// It is populated by Validate.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Validate checks for missing dependencies and cycles using a depth-first
// topological sort over the task names in sorted order, so the resulting
// execution order is deterministic.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.tasks))
	g.dependents = make(map[InternedString][]InternedString, len(g.tasks))
	g.position = make(map[InternedString]int, len(g.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task := g.tasks[u]
		for _, dep := range task.Dependencies {
			if _, exists := g.tasks[dep]; !exists {
				return zerr.With(Tag(ErrMissingDependency, "dependency", dep.String()), "task", u.String())
			}
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.position[u] = len(g.executionOrder)
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.Names() {
		key := NewInternedString(name)
		if visited[key] == 0 {
			if err := visit(key); err != nil {
				return err
			}
		}
	}

	for _, name := range g.executionOrder {
		for _, dep := range g.tasks[name].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return Tag(ErrCycleDetected, "cycle", strings.Join(parts, " -> "))
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// Chain resolves the targets and their transitive prerequisites.
// Each task appears once, in execution order, even when several targets share
// it. Unknown names return ErrTaskNotFound. Validate must have succeeded.
func (g *Graph) Chain(targets ...string) ([]Task, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargetsSpecified
	}

	seen := make(map[InternedString]bool)
	queue := make([]InternedString, 0, len(targets))
	for _, target := range targets {
		name := NewInternedString(target)
		if _, ok := g.tasks[name]; !ok {
			return nil, Tag(ErrTaskNotFound, "task", target)
		}
		if !seen[name] {
			seen[name] = true
			queue = append(queue, name)
		}
	}

	for i := 0; i < len(queue); i++ {
		for _, dep := range g.tasks[queue[i]].Dependencies {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	slices.SortStableFunc(queue, func(a, b InternedString) int {
		return g.position[a] - g.position[b]
	})

	chain := make([]Task, len(queue))
	for i, name := range queue {
		chain[i] = g.tasks[name]
	}
	return chain, nil
}
