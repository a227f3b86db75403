package modules

import (
	"slices"
	"sync"
)

// DependencyGraph records module -> requested module edges discovered by
// the loader. It is safe for concurrent use; Prefetch adds edges from
// several goroutines.
type DependencyGraph struct {
	edges     map[SourceIdentifier][]SourceIdentifier
	depCounts map[SourceIdentifier]int // Module -> times imported
	mutex     sync.RWMutex
}

// DependencyStats contains statistics about the dependency graph
type DependencyStats struct {
	TotalModules      int                // Modules with at least one edge
	TotalDependencies int                // Total dependency relationships
	MaxDepth          int                // Longest acyclic dependency chain
	CircularDeps      []SourceIdentifier // Modules on a cycle, sorted
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges:     make(map[SourceIdentifier][]SourceIdentifier),
		depCounts: make(map[SourceIdentifier]int),
	}
}

// AddDependency adds an edge once, keeping first-occurrence order.
func (g *DependencyGraph) AddDependency(from, to SourceIdentifier) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if slices.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
	if _, ok := g.edges[to]; !ok {
		g.edges[to] = nil
	}
	g.depCounts[to]++
}

// Dependencies returns the direct dependencies of a module
func (g *DependencyGraph) Dependencies(id SourceIdentifier) []SourceIdentifier {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return slices.Clone(g.edges[id])
}

// ImportCount returns how many distinct modules import id
func (g *DependencyGraph) ImportCount(id SourceIdentifier) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.depCounts[id]
}

// DepthFirstOrder lists the modules reachable from root with every module
// after its dependencies, the order modules are evaluated in. A module on
// a cycle is listed once, where the cycle is first closed.
func (g *DependencyGraph) DepthFirstOrder(root SourceIdentifier) []SourceIdentifier {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var order []SourceIdentifier
	visited := make(map[SourceIdentifier]bool)
	var visit func(id SourceIdentifier)
	visit = func(id SourceIdentifier) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.edges[id] {
			visit(dep)
		}
		order = append(order, id)
	}
	visit(root)
	return order
}

// Stats returns dependency statistics
func (g *DependencyGraph) Stats() DependencyStats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	stats := DependencyStats{TotalModules: len(g.edges)}
	for _, deps := range g.edges {
		stats.TotalDependencies += len(deps)
	}
	for id := range g.edges {
		if d := g.depth(id, make(map[SourceIdentifier]bool)); d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}
	stats.CircularDeps = g.cycles()
	return stats
}

// depth is the longest path from id that does not revisit a module.
func (g *DependencyGraph) depth(id SourceIdentifier, path map[SourceIdentifier]bool) int {
	if path[id] {
		return -1
	}
	path[id] = true
	defer delete(path, id)

	longest := 0
	for _, dep := range g.edges[id] {
		if d := g.depth(dep, path); d+1 > longest {
			longest = d + 1
		}
	}
	return longest
}

// cycles returns the modules that lie on a cycle (Tarjan's strongly
// connected components of size > 1, plus self-loops).
func (g *DependencyGraph) cycles() []SourceIdentifier {
	index := make(map[SourceIdentifier]int)
	low := make(map[SourceIdentifier]int)
	onStack := make(map[SourceIdentifier]bool)
	var stack, out []SourceIdentifier
	next := 0

	var strongConnect func(v SourceIdentifier)
	strongConnect = func(v SourceIdentifier) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.edges[v] {
			if _, seen := index[w]; !seen {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var component []SourceIdentifier
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || slices.Contains(g.edges[v], v) {
			out = append(out, component...)
		}
	}

	ids := make([]SourceIdentifier, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, seen := index[id]; !seen {
			strongConnect(id)
		}
	}
	slices.Sort(out)
	return out
}

// Clear resets the graph
func (g *DependencyGraph) Clear() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.edges = make(map[SourceIdentifier][]SourceIdentifier)
	g.depCounts = make(map[SourceIdentifier]int)
}
