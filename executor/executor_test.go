package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ravel-run/agentgraph/breaker"
	"github.com/ravel-run/agentgraph/emit"
	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/retry"
	"github.com/ravel-run/agentgraph/store"
	"github.com/ravel-run/agentgraph/wfcontext"
)

type stubProvider struct {
	name, model string
	resp        llm.Response
	err         error
	calls       int32
	failFirstN  int32
}

func (s *stubProvider) ProviderName() string { return s.name }
func (s *stubProvider) ModelName() string    { return s.model }
func (s *stubProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= s.failFirstN {
		return llm.Response{}, s.err
	}
	return s.resp, nil
}
func (s *stubProvider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	close(out)
	return nil
}
func (s *stubProvider) SupportsStreaming() bool          { return false }
func (s *stubProvider) SupportsFunctionCalling() bool    { return false }
func (s *stubProvider) MaxContextLength() int            { return 4096 }
func (s *stubProvider) CostPerToken() (float64, float64) { return 0, 0 }

func fastRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
		MaxDelay:     5 * time.Millisecond,
		RetryableClasses: map[retry.ErrorClass]bool{
			retry.ClassNetwork: true,
		},
	}
}

func TestExecuteAgentThenTransform(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{name: "stub", model: "m", resp: llm.Response{Content: "hello", FinishReason: llm.FinishStop}}

	graph := graphmodel.New()
	agentNode := graphmodel.Node{ID: ids.NewNodeId(), Name: "greet", Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "say hi",
	}}
	transformNode := graphmodel.Node{ID: ids.NewNodeId(), Name: "shout", Kind: graphmodel.KindTransform, Config: map[string]interface{}{
		"transformation": "upper(outputs.greet.content)",
	}}
	if err := graph.AddNode(agentNode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := graph.AddNode(transformNode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := graph.AddEdge(graphmodel.Edge{From: agentNode.ID, To: transformNode.ID, Kind: graphmodel.EdgeDataFlow}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exec := New(WithFailFast(true))
	exec.RegisterProvider(agentID, provider)

	wctx, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, ok := wctx.OutputByID(transformNode.ID)
	if !ok || out != "HELLO" {
		t.Fatalf("expected transform output HELLO, got %v, %v", out, ok)
	}
	if wctx.State().Kind != wfcontext.StateCompleted {
		t.Fatalf("unexpected terminal state: %+v", wctx.State())
	}
}

func TestExecuteFailFastSkipsDownstream(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{name: "stub", model: "m", err: errs.Validation("always fails")}

	graph := graphmodel.New()
	agentNode := graphmodel.Node{ID: ids.NewNodeId(), Name: "greet", Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "say hi",
	}}
	downstream := graphmodel.Node{ID: ids.NewNodeId(), Name: "next", Kind: graphmodel.KindTransform, Config: map[string]interface{}{
		"transformation": "1 + 1",
	}}
	_ = graph.AddNode(agentNode)
	_ = graph.AddNode(downstream)
	_ = graph.AddEdge(graphmodel.Edge{From: agentNode.ID, To: downstream.ID, Kind: graphmodel.EdgeDataFlow})

	exec := New(WithFailFast(true), WithDefaultRetry(retry.Disabled()))
	exec.RegisterProvider(agentID, provider)

	wctx, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId())
	if err == nil {
		t.Fatal("expected the workflow to fail")
	}
	if _, ok := wctx.OutputByID(downstream.ID); ok {
		t.Fatal("expected the downstream node to be skipped, not executed")
	}
	if wctx.Stats().NodesSkipped != 1 {
		t.Fatalf("expected 1 skipped node, got %d", wctx.Stats().NodesSkipped)
	}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{
		name: "stub", model: "m",
		resp:       llm.Response{Content: "recovered"},
		err:        errs.Network(nil, "transient network blip"),
		failFirstN: 1,
	}

	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Name: "greet", Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "x",
	}}
	_ = graph.AddNode(node)

	exec := New(WithDefaultRetry(fastRetry()))
	exec.RegisterProvider(agentID, provider)

	wctx, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId())
	if err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	out, _ := wctx.OutputByID(node.ID)
	m := out.(map[string]interface{})
	if m["content"] != "recovered" {
		t.Fatalf("unexpected output: %v", m)
	}
	if atomic.LoadInt32(&provider.calls) != 2 {
		t.Fatalf("expected exactly 2 calls (1 failure + 1 success), got %d", provider.calls)
	}
}

func TestExecuteAuthErrorShortCircuitsEvenWithoutFailFast(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{name: "stub", model: "m", err: errs.LlmProvider("stub", "api error (status 401): invalid api key")}

	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Name: "greet", Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "x",
	}}
	downstream := graphmodel.Node{ID: ids.NewNodeId(), Name: "next", Kind: graphmodel.KindTransform, Config: map[string]interface{}{"transformation": "1"}}
	_ = graph.AddNode(node)
	_ = graph.AddNode(downstream)
	_ = graph.AddEdge(graphmodel.Edge{From: node.ID, To: downstream.ID, Kind: graphmodel.EdgeDataFlow})

	exec := New(WithFailFast(false), WithDefaultRetry(retry.Disabled()))
	exec.RegisterProvider(agentID, provider)

	wctx, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId())
	if err == nil {
		t.Fatal("expected an auth error to short-circuit the workflow")
	}
	if _, ok := wctx.OutputByID(downstream.ID); ok {
		t.Fatal("expected the downstream node to be skipped by the auth short-circuit")
	}
}

func TestExecuteUnconfiguredAgentFails(t *testing.T) {
	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": ids.NewAgentId().String(), "prompt": "x",
	}}
	_ = graph.AddNode(node)

	exec := New(WithDefaultRetry(retry.Disabled()))
	if _, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId()); err == nil {
		t.Fatal("expected an error when no provider is registered for the agent")
	}
}

func TestExecuteDefaultProviderFallback(t *testing.T) {
	provider := &stubProvider{name: "stub", model: "m", resp: llm.Response{Content: "from default"}}
	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": ids.NewAgentId().String(), "prompt": "x",
	}}
	_ = graph.AddNode(node)

	exec := New()
	exec.SetDefaultProvider(provider)

	wctx, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := wctx.OutputByID(node.ID)
	m := out.(map[string]interface{})
	if m["content"] != "from default" {
		t.Fatalf("unexpected output: %v", m)
	}
}

func TestExecuteCircuitBreakerOpensAtThreshold(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{name: "stub", model: "m", err: errs.Network(nil, "down")}

	cfg := breaker.DefaultConfig()
	cfg.FailureThreshold = 1

	emitter := &countingEmitter{}

	exec := New(WithBreakerConfig(cfg), WithDefaultRetry(retry.Disabled()), WithEmitter(emitter))
	exec.RegisterProvider(agentID, provider)

	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "x",
	}}
	_ = graph.AddNode(node)

	if _, err := exec.Execute(context.Background(), graph, ids.NewWorkflowId()); err == nil {
		t.Fatal("expected the node to fail")
	}
	if atomic.LoadInt32(&emitter.breakerOpened) != 1 {
		t.Fatalf("expected exactly 1 breaker_opened event, got %d", emitter.breakerOpened)
	}
}

type countingEmitter struct {
	breakerOpened int32
}

func (c *countingEmitter) Emit(e emit.Event) {
	if e.Msg == emit.MsgBreakerOpened {
		atomic.AddInt32(&c.breakerOpened, 1)
	}
}

func TestExecuteRecordsRunAndResults(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &stubProvider{name: "stub", model: "m", resp: llm.Response{Content: "ok"}}
	recorder := store.NewMemRecorder()

	exec := New(WithRecorder(recorder))
	exec.RegisterProvider(agentID, provider)

	graph := graphmodel.New()
	node := graphmodel.Node{ID: ids.NewNodeId(), Kind: graphmodel.KindAgent, Config: map[string]interface{}{
		"agent_id": agentID.String(), "prompt": "x",
	}}
	_ = graph.AddNode(node)

	workflowID := ids.NewWorkflowId()
	if _, err := exec.Execute(context.Background(), graph, workflowID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run, err := recorder.GetRun(context.Background(), workflowID)
	if err != nil {
		t.Fatalf("expected a recorded run: %v", err)
	}
	if run.State != wfcontext.StateCompleted {
		t.Fatalf("unexpected recorded state: %q", run.State)
	}

	results, err := recorder.ListResults(context.Background(), workflowID)
	if err != nil || len(results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d, err=%v", len(results), err)
	}
}
