package graphmodel

import (
	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/ids"
)

// color is a DFS three-coloring state used by HasCycles/TopologicalSort.
type color int

const (
	white color = iota // unvisited
	gray                // on the current DFS stack
	black               // fully processed
)

// HasCycles reports whether the graph contains a cycle.
func (g *WorkflowGraph) HasCycles() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// TopologicalSort returns a valid topological order of every node, or an
// error referencing the cycle if the graph is not acyclic.
//
// Implemented as DFS with three-coloring (grounded in the teacher's
// traversal style for node/edge graphs): a gray node re-entered during DFS
// means a back-edge, i.e. a cycle.
func (g *WorkflowGraph) TopologicalSort() ([]ids.NodeId, error) {
	g.mu.RLock()
	adj := make(map[ids.NodeId][]ids.NodeId, len(g.nodes))
	order := make([]ids.NodeId, 0, len(g.nodes))
	for id := range g.nodes {
		adj[id] = nil
		order = append(order, id)
	}
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	g.mu.RUnlock()

	colors := make(map[ids.NodeId]color, len(adj))
	result := make([]ids.NodeId, 0, len(adj))

	var visit func(id ids.NodeId) error
	visit = func(id ids.NodeId) error {
		colors[id] = gray
		for _, next := range adj[id] {
			switch colors[next] {
			case gray:
				return errs.Validation("cycle detected in workflow graph involving node %s", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		colors[id] = black
		result = append(result, id)
		return nil
	}

	// order was collected by ranging over a map, so when several
	// topological orders are valid, which one is returned can vary.
	for _, id := range order {
		if colors[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	// visit appends post-order (dependency-first reversed); reverse to get
	// a standard topological order (dependencies before dependents).
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Validate checks every structural invariant from spec.md §3: unique node
// ids (enforced on insert), edge endpoints existing (enforced on insert),
// acyclicity, and per-node-kind required fields.
func (g *WorkflowGraph) Validate() error {
	if g.HasCycles() {
		return errs.Validation("workflow graph contains a cycle")
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, n := range g.nodes {
		switch n.Kind {
		case KindTransform:
			if n.Config["transformation"] == nil || n.Config["transformation"] == "" {
				return errs.Validation("transform node %s must have a non-empty transformation", id)
			}
		case KindCondition:
			if n.Config["expression"] == nil || n.Config["expression"] == "" {
				return errs.Validation("condition node %s must have a non-empty expression", id)
			}
		case KindDocumentLoader:
			docType, _ := n.Config["document_type"].(string)
			sourcePath, _ := n.Config["source_path"].(string)
			if docType == "" {
				return errs.Validation("document loader node %s must have a supported document_type", id)
			}
			if !supportedDocumentTypes[docType] {
				return errs.Validation("document loader node %s has unsupported document_type %q", id, docType)
			}
			if sourcePath == "" {
				return errs.Validation("document loader node %s must have a non-empty source_path", id)
			}
		}
	}
	return nil
}

var supportedDocumentTypes = map[string]bool{
	"txt": true, "pdf": true, "docx": true, "json": true,
	"csv": true, "xml": true, "html": true,
}
