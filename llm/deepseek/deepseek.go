// Package deepseek backs the DeepSeek vendor via the shared OpenAI-wire
// compat client.
//
// Grounded in original_source/core/src/llm/deepseek.rs: fixed base URL,
// two published models (deepseek-chat, deepseek-reasoner) with fixed
// per-token pricing.
package deepseek

import (
	"context"

	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
)

const baseURL = "https://api.deepseek.com"

// published pricing, USD per token.
var modelCost = map[string]struct{ prompt, completion float64 }{
	"deepseek-chat":      {0.14e-6, 0.28e-6},
	"deepseek-reasoner":  {0.55e-6, 2.19e-6},
}

const defaultMaxContext = 64000

type Provider struct {
	client *compat.Client
	model  string
}

func New(apiKey, model string) *Provider {
	return &Provider{client: compat.New("deepseek", baseURL, apiKey), model: model}
}

func (p *Provider) ProviderName() string { return "deepseek" }
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
