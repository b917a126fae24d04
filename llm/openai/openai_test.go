package openai

import (
	"testing"

	oaillm "github.com/ravel-run/agentgraph/llm"
)

func TestCostPerTokenKnownModel(t *testing.T) {
	p := New("key", "gpt-4o-mini")
	prompt, completion := p.CostPerToken()
	if prompt != 0.15e-6 || completion != 0.6e-6 {
		t.Fatalf("unexpected pricing: %v/%v", prompt, completion)
	}
}

func TestCostPerTokenUnknownModel(t *testing.T) {
	p := New("key", "gpt-5-preview")
	prompt, completion := p.CostPerToken()
	if prompt != 0 || completion != 0 {
		t.Fatalf("expected zero pricing for an unknown model, got %v/%v", prompt, completion)
	}
}

func TestProviderIdentity(t *testing.T) {
	p := New("key", "gpt-4o")
	if p.ProviderName() != "openai" || p.ModelName() != "gpt-4o" {
		t.Fatalf("unexpected identity: %s/%s", p.ProviderName(), p.ModelName())
	}
	if !p.SupportsStreaming() || !p.SupportsFunctionCalling() {
		t.Fatal("expected streaming and function-calling support")
	}
	if p.MaxContextLength() != defaultMaxContext {
		t.Fatalf("unexpected max context: %d", p.MaxContextLength())
	}
}

func TestToSDKMessagesCoversAllRoles(t *testing.T) {
	out := toSDKMessages([]oaillm.Message{
		{Role: oaillm.RoleSystem, Content: "sys"},
		{Role: oaillm.RoleUser, Content: "usr"},
		{Role: oaillm.RoleAssistant, Content: "asst"},
		{Role: oaillm.RoleTool, Content: "result", ToolCallID: "call-1"},
	})
	if len(out) != 4 {
		t.Fatalf("expected 4 converted messages, got %d", len(out))
	}
}
