package graphmodel

import (
	"sync"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/ids"
)

// WorkflowGraph is a mapping from NodeId to Node plus a sequence of
// directed edges, with memoized adjacency queries invalidated on every
// structural mutation (spec.md §3 invariant 5).
type WorkflowGraph struct {
	mu sync.RWMutex

	nodes    map[ids.NodeId]*Node
	nameToID map[string]ids.NodeId
	edges    []Edge
	metadata map[string]interface{}

	// caches, invalidated on mutation
	cacheValid bool
	deps       map[ids.NodeId][]ids.NodeId
	dependents map[ids.NodeId][]ids.NodeId
	roots      []ids.NodeId
	leaves     []ids.NodeId
}

// New creates an empty WorkflowGraph.
func New() *WorkflowGraph {
	return &WorkflowGraph{
		nodes:    make(map[ids.NodeId]*Node),
		nameToID: make(map[string]ids.NodeId),
		metadata: make(map[string]interface{}),
	}
}

// AddNode registers node. Fails with a Validation error if its id is
// already present.
func (g *WorkflowGraph) AddNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; exists {
		return errs.Validation("duplicate node id: %s", n.ID)
	}

	cp := n
	g.nodes[n.ID] = &cp
	if n.Name != "" {
		g.nameToID[n.Name] = n.ID
	}
	g.invalidateCacheLocked()
	return nil
}

// RemoveNode deletes node id and every edge touching it.
func (g *WorkflowGraph) RemoveNode(id ids.NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.nodes[id]
	if !exists {
		return errs.Validation("node not found: %s", id)
	}
	delete(g.nodes, id)
	delete(g.nameToID, n.Name)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.invalidateCacheLocked()
	return nil
}

// AddEdge registers e. Fails with a Validation error naming the missing
// endpoint, or if a Conditional edge lacks a Condition expression.
func (g *WorkflowGraph) AddEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[e.From]; !ok {
		return errs.Validation("edge references missing from-node: %s", e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return errs.Validation("edge references missing to-node: %s", e.To)
	}
	if e.Kind == EdgeConditional && e.Condition == "" {
		return errs.Validation("conditional edge from %s to %s requires a condition expression", e.From, e.To)
	}

	g.edges = append(g.edges, e)
	g.invalidateCacheLocked()
	return nil
}

// GetNode returns the node for id.
func (g *WorkflowGraph) GetNode(id ids.NodeId) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// GetNodeIDByName resolves a node's display name to its id.
func (g *WorkflowGraph) GetNodeIDByName(name string) (ids.NodeId, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.nameToID[name]
	return id, ok
}

// GetEdges returns a copy of the edge list.
func (g *WorkflowGraph) GetEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Nodes returns a copy of every node, in no particular order.
func (g *WorkflowGraph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// SetMetadata stores a graph-level metadata key/value pair.
func (g *WorkflowGraph) SetMetadata(key string, value interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metadata[key] = value
}

// GetMetadata reads a graph-level metadata key.
func (g *WorkflowGraph) GetMetadata(key string) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.metadata[key]
	return v, ok
}

// invalidateCacheLocked marks the adjacency caches stale. Caller must hold
// g.mu (write lock).
func (g *WorkflowGraph) invalidateCacheLocked() {
	g.cacheValid = false
}

// rebuildCacheLocked recomputes dependency/dependent/root/leaf caches from
// the current node/edge store. Caller must hold g.mu (write lock).
func (g *WorkflowGraph) rebuildCacheLocked() {
	deps := make(map[ids.NodeId][]ids.NodeId, len(g.nodes))
	dependents := make(map[ids.NodeId][]ids.NodeId, len(g.nodes))
	for id := range g.nodes {
		deps[id] = nil
		dependents[id] = nil
	}
	for _, e := range g.edges {
		deps[e.To] = append(deps[e.To], e.From)
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var roots, leaves []ids.NodeId
	for id := range g.nodes {
		if len(deps[id]) == 0 {
			roots = append(roots, id)
		}
		if len(dependents[id]) == 0 {
			leaves = append(leaves, id)
		}
	}

	g.deps = deps
	g.dependents = dependents
	g.roots = roots
	g.leaves = leaves
	g.cacheValid = true
}

func (g *WorkflowGraph) ensureCache() {
	g.mu.RLock()
	valid := g.cacheValid
	g.mu.RUnlock()
	if valid {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cacheValid {
		g.rebuildCacheLocked()
	}
}

// GetDependencies returns the direct predecessors of id.
func (g *WorkflowGraph) GetDependencies(id ids.NodeId) []ids.NodeId {
	g.ensureCache()
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ids.NodeId(nil), g.deps[id]...)
}

// GetDependents returns the direct successors of id.
func (g *WorkflowGraph) GetDependents(id ids.NodeId) []ids.NodeId {
	g.ensureCache()
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ids.NodeId(nil), g.dependents[id]...)
}

// GetRootNodes returns every node with no incoming edges.
func (g *WorkflowGraph) GetRootNodes() []ids.NodeId {
	g.ensureCache()
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ids.NodeId(nil), g.roots...)
}

// GetLeafNodes returns every node with no outgoing edges.
func (g *WorkflowGraph) GetLeafNodes() []ids.NodeId {
	g.ensureCache()
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ids.NodeId(nil), g.leaves...)
}

// RebuildGraph recomputes the adjacency caches from the node/edge store.
// Used after deserialization. Idempotent.
func (g *WorkflowGraph) RebuildGraph() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebuildCacheLocked()
}
