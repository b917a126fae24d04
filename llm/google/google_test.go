package google

import (
	"testing"

	generativelanguage "github.com/google/generative-ai-go/genai"

	"github.com/ravel-run/agentgraph/llm"
)

func TestCostPerTokenKnownModel(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	prompt, completion := p.CostPerToken()
	if prompt != 0.075e-6 || completion != 0.3e-6 {
		t.Fatalf("unexpected pricing: %v/%v", prompt, completion)
	}
}

func TestCostPerTokenUnknownModel(t *testing.T) {
	p := &Provider{model: "gemini-future"}
	prompt, completion := p.CostPerToken()
	if prompt != 0 || completion != 0 {
		t.Fatalf("expected zero pricing for an unknown model, got %v/%v", prompt, completion)
	}
}

func TestProviderIdentity(t *testing.T) {
	p := &Provider{model: "gemini-1.5-pro"}
	if p.ProviderName() != "google" || p.ModelName() != "gemini-1.5-pro" {
		t.Fatalf("unexpected identity: %s/%s", p.ProviderName(), p.ModelName())
	}
	if !p.SupportsStreaming() || !p.SupportsFunctionCalling() {
		t.Fatal("expected streaming and function-calling support")
	}
	if p.MaxContextLength() != defaultMaxContext {
		t.Fatalf("unexpected max context: %d", p.MaxContextLength())
	}
}

func TestToPartsExtractsSystemAndFinalPromptSeparately(t *testing.T) {
	system, history, prompt := toParts([]llm.Message{
		{Role: llm.RoleSystem, Content: "be terse"},
		{Role: llm.RoleUser, Content: "first turn"},
		{Role: llm.RoleAssistant, Content: "ack"},
		{Role: llm.RoleUser, Content: "final question"},
	})
	if system != "be terse" {
		t.Fatalf("expected system instruction extracted, got %q", system)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history turns (excluding the final prompt), got %d", len(history))
	}
	text, ok := prompt.(generativelanguage.Text)
	if !ok || string(text) != "final question" {
		t.Fatalf("expected the final user message to become the prompt, got %+v", prompt)
	}
}
