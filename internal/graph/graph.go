// Package graph provides the dependency graph and concurrent executor
// behind batch pipeline evaluation. Nodes are added with the work they
// perform; edges declare that one node's output feeds another.
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RunFunc is the work a node performs once all of its dependencies have
// completed.
type RunFunc func(ctx context.Context) error

// node tracks a unit of work and its position in the graph.
type node struct {
	id         string
	run        RunFunc
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed acyclic dependency graph. All operations are safe
// for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// New returns an initialized empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode registers a node under the given id. Adding an existing id
// replaces its work function but keeps its edges.
func (g *Graph) AddNode(id string, run RunFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[id]; ok {
		n.run = run
		return
	}
	g.nodes[id] = &node{
		id:         id,
		run:        run,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge declares that toID depends on fromID. Both nodes must already
// exist and self references are rejected.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("graph: self-referential edge not allowed: %s", fromID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("graph: source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("graph: destination node not found: %s", toID)
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the sorted ids the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("graph: node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for dep := range n.deps {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps, nil
}

// TopoSort returns the node ids in dependency order: every node appears
// after all of its dependencies. Ties break alphabetically so the order is
// stable. An error reports the nodes stuck on a cycle.
func (g *Graph) TopoSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	degree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		degree[id] = len(n.deps)
	}
	var ready []string
	for id, d := range degree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := make([]string, 0)
		for dep := range g.nodes[id].dependents {
			degree[dep]--
			if degree[dep] == 0 {
				next = append(next, dep)
			}
		}
		sort.Strings(next)
		ready = mergeSorted(ready, next)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for id, d := range degree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("graph: cycle detected among nodes: %v", stuck)
	}
	return order, nil
}

// DetectCycles reports whether the graph contains a cycle.
func (g *Graph) DetectCycles() error {
	_, err := g.TopoSort()
	return err
}

func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
