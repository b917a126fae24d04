package nodeexec

import (
	"context"
	"testing"
	"time"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

func TestExecuteDelayWaitsAndReturnsWaited(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindDelay, map[string]interface{}{"duration_ms": float64(10)})

	start := time.Now()
	out, err := executeDelay(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected executeDelay to actually wait")
	}
	m, ok := out.(map[string]interface{})
	if !ok || m["waited_ms"] != float64(10) {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestExecuteDelayHonorsCancellation(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindDelay, map[string]interface{}{"duration_ms": float64(10000)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := executeDelay(ctx, node, wctx); err == nil {
		t.Fatal("expected a cancelled context to abort the delay")
	}
}

func TestExecuteDelayDefaultsToZero(t *testing.T) {
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindDelay, map[string]interface{}{})

	out, err := executeDelay(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]interface{})
	if m["waited_ms"] != float64(0) {
		t.Fatalf("expected default duration 0, got %v", m["waited_ms"])
	}
}
