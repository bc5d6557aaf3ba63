package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of actions.
type Graph struct {
	actions        map[string]Action
	dependents     map[string][]string
	executionOrder []string
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		actions:    make(map[string]Action),
		dependents: make(map[string][]string),
	}
}

// AddAction adds an action to the graph.
// It returns an error if an action with the same name already exists.
func (g *Graph) AddAction(a *Action) error {
	if _, exists := g.actions[a.Name]; exists {
		return zerr.With(ErrActionAlreadyExists, "action_name", a.Name)
	}
	g.actions[a.Name] = *a
	return nil
}

// Get returns the action with the given name.
func (g *Graph) Get(name string) (Action, bool) {
	a, ok := g.actions[name]
	return a, ok
}

// ActionCount returns the number of actions in the graph.
func (g *Graph) ActionCount() int {
	return len(g.actions)
}

// Names returns all action names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.actions))
	for name := range g.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks for missing dependencies and cycles using a topological sort.
// It populates the execution order and the reverse dependency index if successful.
func (g *Graph) Validate() error {
	g.executionOrder = make([]string, 0, len(g.actions))
	g.dependents = make(map[string][]string, len(g.actions))
	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		action, exists := g.actions[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u)
		}

		for _, dep := range action.Dependencies {
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
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	// Sorted roots keep Walk stable across runs.
	for _, name := range g.Names() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for _, name := range g.executionOrder {
		for _, dep := range g.actions[name].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []string, dep string) error {
	startIdx := slices.Index(path, dep)
	cycle := append(slices.Clone(path[startIdx:]), dep)
	return zerr.With(ErrCycleDetected, "cycle", strings.Join(cycle, " -> "))
}

// Walk returns an iterator that yields actions in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Action] {
	return func(yield func(Action) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.actions[name]) {
				return
			}
		}
	}
}

// Dependents returns the names of actions that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// Closure returns a validated graph holding the targets and everything they depend on.
// The name "all" selects every action.
func (g *Graph) Closure(targets []string) (*Graph, error) {
	if slices.Contains(targets, "all") {
		targets = g.Names()
	}

	sub := NewGraph()
	var add func(name string) error
	add = func(name string) error {
		if _, done := sub.actions[name]; done {
			return nil
		}
		action, ok := g.actions[name]
		if !ok {
			return zerr.With(ErrActionNotFound, "action_name", name)
		}
		sub.actions[name] = action
		for _, dep := range action.Dependencies {
			if err := add(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, target := range targets {
		if err := add(target); err != nil {
			return nil, err
		}
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return sub, nil
}
