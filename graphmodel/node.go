// Package graphmodel implements WorkflowGraph: the typed node/edge store,
// cycle detection, topological layering, and cached adjacency queries
// (spec.md §3, §4.1).
//
// Grounded in the teacher's graph.Engine[S] node/edge bookkeeping
// (graph/engine.go Add/Connect, graph/edge.go) generalized from a
// generic-state execution graph to a standalone, JSON-configured DAG
// store with explicit validation and cached queries.
package graphmodel

import (
	"time"

	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/retry"
)

// NodeKind tags the variant of a Node.
type NodeKind string

const (
	KindAgent          NodeKind = "agent"
	KindCondition      NodeKind = "condition"
	KindTransform      NodeKind = "transform"
	KindDelay          NodeKind = "delay"
	KindHTTPRequest    NodeKind = "http_request"
	KindDocumentLoader NodeKind = "document_loader"
	KindSplit          NodeKind = "split"
	KindJoin           NodeKind = "join"
	KindCustom         NodeKind = "custom"
)

// Node is a single unit in the workflow graph.
type Node struct {
	ID          ids.NodeId
	Name        string
	Description string
	Kind        NodeKind
	Config      map[string]interface{}
	InputSchema  map[string]interface{}
	OutputSchema map[string]interface{}
	Retry       *retry.Policy
	Timeout     time.Duration
	Tags        []string
}

// EdgeKind tags the variant of an Edge.
type EdgeKind string

const (
	EdgeDataFlow    EdgeKind = "data_flow"
	EdgeControlFlow EdgeKind = "control_flow"
	EdgeConditional EdgeKind = "conditional"
)

// Edge connects two nodes.
type Edge struct {
	From      ids.NodeId
	To        ids.NodeId
	Kind      EdgeKind
	Condition string // required iff Kind == EdgeConditional
	Transform string // optional transform expression applied to the payload
	Metadata  map[string]interface{}
}
