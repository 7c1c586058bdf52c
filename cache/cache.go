// Package cache holds materialized view results and the dependency graph
// used to invalidate them when an underlying relation changes.
package cache

import (
	"sync"

	"github.com/kevinawalsh/datalogdb"
)

// DependencyGraph records, for each relation, the set of intensional
// relations whose answer depends (directly) on it.
type DependencyGraph struct {
	dependents map[string][]string
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{dependents: make(map[string][]string)}
}

// AddDependency records that `dependent` reads from `on` while being
// evaluated, so invalidating `on` must also invalidate `dependent`.
func (g *DependencyGraph) AddDependency(on, dependent string) {
	for _, d := range g.dependents[on] {
		if d == dependent {
			return
		}
	}
	g.dependents[on] = append(g.dependents[on], dependent)
}

// GetDependents returns the relations that directly depend on `name`.
func (g *DependencyGraph) GetDependents(name string) []string {
	return g.dependents[name]
}

// ViewCache holds materialized tuples per intensional relation plus the
// dependency graph used to invalidate them. Its own mutex is independent
// of the storage engine's RWMutex, so a query holding only the engine's
// shared lock can still populate the cache as it streams answers.
type ViewCache struct {
	mu       sync.Mutex
	deps     *DependencyGraph
	contents map[string]map[string]datalog.Tuple // relation -> key -> tuple
}

// New returns an empty view cache.
func New() *ViewCache {
	return &ViewCache{
		deps:     NewDependencyGraph(),
		contents: make(map[string]map[string]datalog.Tuple),
	}
}

// AddDependency records that `dependent`'s evaluation reads from `on`.
func (c *ViewCache) AddDependency(on, dependent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps.AddDependency(on, dependent)
}

// invalidateHelper performs the depth-first traversal over the dependency
// graph, using visited to guard against revisiting a relation reachable
// through more than one path (or a recursive cycle).
func (c *ViewCache) invalidateHelper(name string, visited map[string]bool) {
	if visited[name] {
		return
	}
	visited[name] = true
	delete(c.contents, name)
	for _, dep := range c.deps.GetDependents(name) {
		c.invalidateHelper(dep, visited)
	}
}

// Invalidate drops the cached contents of `name` and every relation that
// transitively depends on it.
func (c *ViewCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateHelper(name, make(map[string]bool))
}

// AddTuple records that `tuple` is a (now known) answer of `relation`,
// copying it so the cache's lifetime is independent of whatever plan
// produced it.
func (c *ViewCache) AddTuple(relation string, tuple datalog.Tuple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.contents[relation]
	if !ok {
		set = make(map[string]datalog.Tuple)
		c.contents[relation] = set
	}
	owned := make(datalog.Tuple, len(tuple))
	copy(owned, tuple)
	set[datalog.TupleKey(owned)] = owned
}

// ReadCache returns the cached tuples for `relation`, and whether the
// relation has a (possibly empty) cache entry at all — a cache miss is
// distinct from "cached but empty".
func (c *ViewCache) ReadCache(relation string) ([]datalog.Tuple, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.contents[relation]
	if !ok {
		return nil, false
	}
	out := make([]datalog.Tuple, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	return out, true
}
