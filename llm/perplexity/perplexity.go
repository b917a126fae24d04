// Package perplexity backs the Perplexity vendor via the shared
// OpenAI-wire compat client.
//
// Grounded in original_source/core/src/llm/perplexity.rs: fixed base URL,
// "sonar"-family models with built-in web search, no function-calling
// support.
package perplexity

import (
	"context"

	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
)

const baseURL = "https://api.perplexity.ai"

var modelCost = map[string]struct{ prompt, completion float64 }{
	"sonar":          {1e-6, 1e-6},
	"sonar-pro":      {3e-6, 15e-6},
	"sonar-reasoning": {1e-6, 5e-6},
}

const defaultMaxContext = 128000

type Provider struct {
	client *compat.Client
	model  string
}

func New(apiKey, model string) *Provider {
	return &Provider{client: compat.New("perplexity", baseURL, apiKey), model: model}
}

func (p *Provider) ProviderName() string { return "perplexity" }
func (p *Provider) ModelName() string    { return p.model }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	req.Model = p.model
	return p.client.Complete(ctx, req)
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	req.Model = p.model
	return p.client.Stream(ctx, req, out)
}

// SupportsFunctionCalling is false: Perplexity's sonar models do not
// support tool/function calling as of the original_source snapshot.
func (p *Provider) SupportsStreaming() bool       { return true }
func (p *Provider) SupportsFunctionCalling() bool { return false }
func (p *Provider) MaxContextLength() int         { return defaultMaxContext }

func (p *Provider) CostPerToken() (float64, float64) {
	if c, ok := modelCost[p.model]; ok {
		return c.prompt, c.completion
	}
	return 0, 0
}
