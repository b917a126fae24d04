package graphmodel

import (
	"testing"

	"github.com/ravel-run/agentgraph/ids"
)

func TestTopologicalSortLinear(t *testing.T) {
	g := New()
	a, b, c := newTestNode("a", KindCustom), newTestNode("b", KindCustom), newTestNode("c", KindCustom)
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddNode(c)
	_ = g.AddEdge(Edge{From: a.ID, To: b.ID, Kind: EdgeDataFlow})
	_ = g.AddEdge(Edge{From: b.ID, To: c.ID, Kind: EdgeDataFlow})

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := map[interface{}]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[a.ID] >= pos[b.ID] || pos[b.ID] >= pos[c.ID] {
		t.Fatalf("expected order a, b, c; got %v", order)
	}
}

func TestHasCyclesDetectsCycle(t *testing.T) {
	g := New()
	a, b := newTestNode("a", KindCustom), newTestNode("b", KindCustom)
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(Edge{From: a.ID, To: b.ID, Kind: EdgeDataFlow})
	_ = g.AddEdge(Edge{From: b.ID, To: a.ID, Kind: EdgeDataFlow})

	if !g.HasCycles() {
		t.Fatal("expected a cycle to be detected")
	}
	if _, err := g.TopologicalSort(); err == nil {
		t.Fatal("expected TopologicalSort to fail on a cyclic graph")
	}
}

func TestHasCyclesFalseForDAG(t *testing.T) {
	g := New()
	a, b := newTestNode("a", KindCustom), newTestNode("b", KindCustom)
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(Edge{From: a.ID, To: b.ID, Kind: EdgeDataFlow})

	if g.HasCycles() {
		t.Fatal("did not expect a cycle in a simple DAG")
	}
}

func TestValidateTransformRequiresTransformation(t *testing.T) {
	g := New()
	n := Node{ID: ids.NewNodeId(), Kind: KindTransform, Config: map[string]interface{}{}}
	_ = g.AddNode(n)

	if err := g.Validate(); err == nil {
		t.Fatal("expected validation error for transform node missing a transformation")
	}

	n2 := Node{ID: ids.NewNodeId(), Kind: KindTransform, Config: map[string]interface{}{"transformation": "x + 1"}}
	g2 := New()
	_ = g2.AddNode(n2)
	if err := g2.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConditionRequiresExpression(t *testing.T) {
	g := New()
	n := Node{ID: ids.NewNodeId(), Kind: KindCondition, Config: map[string]interface{}{}}
	_ = g.AddNode(n)

	if err := g.Validate(); err == nil {
		t.Fatal("expected validation error for condition node missing an expression")
	}
}

func TestValidateDocumentLoaderRequiresKnownType(t *testing.T) {
	g := New()
	n := Node{ID: ids.NewNodeId(), Kind: KindDocumentLoader, Config: map[string]interface{}{
		"document_type": "exe", "source_path": "/tmp/a",
	}}
	_ = g.AddNode(n)

	if err := g.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported document_type")
	}
}

func TestValidateDocumentLoaderAcceptsSupportedType(t *testing.T) {
	g := New()
	n := Node{ID: ids.NewNodeId(), Kind: KindDocumentLoader, Config: map[string]interface{}{
		"document_type": "pdf", "source_path": "/tmp/a.pdf",
	}}
	_ = g.AddNode(n)

	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDetectsCycles(t *testing.T) {
	g := New()
	a, b := newTestNode("a", KindCustom), newTestNode("b", KindCustom)
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddEdge(Edge{From: a.ID, To: b.ID, Kind: EdgeDataFlow})
	_ = g.AddEdge(Edge{From: b.ID, To: a.ID, Kind: EdgeDataFlow})

	if err := g.Validate(); err == nil {
		t.Fatal("expected Validate to reject a cyclic graph")
	}
}
