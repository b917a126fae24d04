package nodeexec

import (
	"context"
	"testing"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/tool"
	"github.com/ravel-run/agentgraph/wfcontext"
)

type fakeProvider struct {
	name, model string
	resp        llm.Response
	err         error
}

func (f *fakeProvider) ProviderName() string { return f.name }
func (f *fakeProvider) ModelName() string    { return f.model }
func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f.resp, f.err
}
func (f *fakeProvider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	close(out)
	return nil
}
func (f *fakeProvider) SupportsStreaming() bool          { return false }
func (f *fakeProvider) SupportsFunctionCalling() bool    { return true }
func (f *fakeProvider) MaxContextLength() int            { return 4096 }
func (f *fakeProvider) CostPerToken() (float64, float64) { return 0, 0 }

func TestAgentExecutorCompletesAndRecordsOutput(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &fakeProvider{name: "fake", model: "m", resp: llm.Response{Content: "hi", FinishReason: llm.FinishStop}}
	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) {
		if id == agentID {
			return provider, true
		}
		return nil, false
	})

	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": agentID.String(),
		"prompt":   "say hi",
	})

	out, err := exec.Execute(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]interface{})
	if m["content"] != "hi" {
		t.Fatalf("unexpected output: %v", m)
	}
}

func TestAgentExecutorUnknownAgent(t *testing.T) {
	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) { return nil, false })
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": ids.NewAgentId().String(),
		"prompt":   "x",
	})
	if _, err := exec.Execute(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error when no provider is registered for the agent")
	}
}

func TestAgentExecutorNonUUIDAgentIDReachesResolve(t *testing.T) {
	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) { return nil, false })
	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": "not-a-uuid-but-still-a-valid-name-hash",
		"prompt":   "x",
	})
	// AgentIdFromString accepts arbitrary strings (hashed), so this should
	// actually reach Resolve and fail there instead.
	if _, err := exec.Execute(context.Background(), node, wctx); err == nil {
		t.Fatal("expected an error since no provider is registered")
	}
}

func TestAgentExecutorPropagatesProviderError(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &fakeProvider{name: "fake", model: "m", err: context.DeadlineExceeded}
	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) { return provider, true })

	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": agentID.String(),
		"prompt":   "x",
	})
	if _, err := exec.Execute(context.Background(), node, wctx); err == nil {
		t.Fatal("expected the provider's error to propagate")
	}
}

func TestAgentExecutorResolvesToolCalls(t *testing.T) {
	agentID := ids.NewAgentId()
	provider := &fakeProvider{name: "fake", model: "m", resp: llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "1", Name: "echo", Arguments: `{"msg":"hi"}`}},
	}}
	mock := &tool.MockTool{ToolName: "echo", Responses: []map[string]interface{}{{"echoed": "hi"}}}
	registry := tool.NewRegistry(mock)

	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) { return provider, true }).WithTools(registry)

	wctx := wfcontext.New(ids.NewWorkflowId())
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": agentID.String(),
		"prompt":   "x",
	})

	out, err := exec.Execute(context.Background(), node, wctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]interface{})
	results, ok := m["tool_results"].([]map[string]interface{})
	if !ok || len(results) != 1 || results[0]["output"] == nil {
		t.Fatalf("expected a resolved tool result, got %v", m["tool_results"])
	}
}

func TestAgentExecutorPromptInterpolation(t *testing.T) {
	agentID := ids.NewAgentId()
	var capturedPrompt string
	provider := &capturingProvider{fakeProvider: fakeProvider{name: "fake", model: "m"}, capture: &capturedPrompt}
	exec := NewAgentExecutor(func(id ids.AgentId) (llm.LlmProvider, bool) { return provider, true })

	wctx := wfcontext.New(ids.NewWorkflowId())
	wctx.WriteOutput(ids.NewNodeId(), "upstream", map[string]interface{}{"content": "world"})
	node := newTestNode(graphmodel.KindAgent, map[string]interface{}{
		"agent_id": agentID.String(),
		"prompt":   "hello {{upstream}}",
	})

	if _, err := exec.Execute(context.Background(), node, wctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedPrompt == "" {
		t.Fatal("expected the prompt to be captured")
	}
}

type capturingProvider struct {
	fakeProvider
	capture *string
}

func (c *capturingProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) > 0 {
		*c.capture = req.Messages[len(req.Messages)-1].Content
	}
	return llm.Response{}, nil
}
