// Package mistral backs the Mistral AI vendor via the shared OpenAI-wire
// compat client.
//
// Grounded in original_source/core/src/llm/mistral.rs: fixed base URL,
// per-model pricing table.
package mistral

import (
	"context"

	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
)

const baseURL = "https://api.mistral.ai/v1"

var modelCost = map[string]struct{ prompt, completion float64 }{
	"mistral-large-latest": {2e-6, 6e-6},
	"mistral-small-latest": {0.2e-6, 0.6e-6},
	"open-mixtral-8x22b":   {2e-6, 6e-6},
}

const defaultMaxContext = 32000

type Provider struct {
	client *compat.Client
	model  string
}

func New(apiKey, model string) *Provider {
	return &Provider{client: compat.New("mistral", baseURL, apiKey), model: model}
}

func (p *Provider) ProviderName() string { return "mistral" }
func (p *Provider) ModelName() string    { return p.model }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	req.Model = p.model
	return p.client.Complete(ctx, req)
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	req.Model = p.model
	return p.client.Stream(ctx, req, out)
}

func (p *Provider) SupportsStreaming() bool       { return true }
func (p *Provider) SupportsFunctionCalling() bool { return true }
func (p *Provider) MaxContextLength() int         { return defaultMaxContext }

func (p *Provider) CostPerToken() (float64, float64) {
	if c, ok := modelCost[p.model]; ok {
		return c.prompt, c.completion
	}
	return 0, 0
}
