package nodeexec

import (
	"context"
	"testing"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

func TestExecuteTransformArithmetic(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.SetVariable("n", 4)
	node := newTestNode(graphmodel.KindTransform, map[string]interface{}{"transformation": "vars.n * 2"})

	out, err := executeTransform(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 8 {
		t.Fatalf("expected 8, got %v", out)
	}
}

func TestExecuteTransformStringFunction(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.WriteOutput(ids.NewNodeId(), "greeting", map[string]interface{}{"content": "hello"})
	node := newTestNode(graphmodel.KindTransform, map[string]interface{}{"transformation": "upper(outputs.greeting.content)"})

	out, err := executeTransform(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "HELLO" {
		t.Fatalf("expected HELLO, got %v", out)
	}
}

func TestExecuteTransformMissingField(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindTransform, map[string]interface{}{})
	if _, err := executeTransform(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error for a missing transformation field")
	}
}

func TestExecuteTransformInvalidExpression(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindTransform, map[string]interface{}{"transformation": "vars.n +++ 1"})
	if _, err := executeTransform(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error for an invalid expression")
	}
}
