package nodeexec

import (
	"context"
	"testing"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

func newTestNode(kind graphmodel.NodeKind, config map[string]interface{}) graphmodel.Node {
	return graphmodel.Node{ID: ids.NewNodeId(), Kind: kind, Config: config}
}

func TestExecuteConditionTrue(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.SetVariable("threshold", 10)
	node := newTestNode(graphmodel.KindCondition, map[string]interface{}{"expression": "vars.threshold > 5"})

	out, err := executeCondition(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %v", out)
	}
}

func TestExecuteConditionFalse(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.SetVariable("threshold", 1)
	node := newTestNode(graphmodel.KindCondition, map[string]interface{}{"expression": "vars.threshold > 5"})

	out, err := executeCondition(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != false {
		t.Fatalf("expected false, got %v", out)
	}
}

func TestExecuteConditionMissingExpression(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindCondition, map[string]interface{}{})
	if _, err := executeCondition(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error for a missing expression field")
	}
}

func TestExecuteConditionNonBooleanResult(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindCondition, map[string]interface{}{"expression": "1 + 1"})
	if _, err := executeCondition(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error for a non-boolean expression result")
	}
}

func TestExecuteConditionReferencesOutputs(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.WriteOutput(ids.NewNodeId(), "classifier", map[string]interface{}{"label": "spam"})
	node := newTestNode(graphmodel.KindCondition, map[string]interface{}{"expression": `outputs.classifier.label == "spam"`})

	out, err := executeCondition(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %v", out)
	}
}
