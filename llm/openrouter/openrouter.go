// Package openrouter backs the OpenRouter vendor via the shared
// OpenAI-wire compat client.
//
// Grounded in original_source/core/src/llm/openrouter.rs: a model name,
// an API key, and the fixed OpenRouter base URL, proxying to any
// upstream model OpenRouter exposes.
package openrouter

import (
	"context"

	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
)

const baseURL = "https://openrouter.ai/api/v1"

type Provider struct {
	client           *compat.Client
	model            string
	promptCost       float64
	completionCost   float64
	maxContextLength int
}

// New creates an OpenRouter provider for model, using apiKey for auth.
// costs are USD per token, looked up by the caller from OpenRouter's model
// catalog since OpenRouter proxies arbitrarily many upstream models with
// different pricing.
func New(apiKey, model string, maxContextLength int, promptCost, completionCost float64) *Provider {
	return &Provider{
		client:           compat.New("openrouter", baseURL, apiKey),
		model:            model,
		promptCost:       promptCost,
		completionCost:   completionCost,
		maxContextLength: maxContextLength,
	}
}

func (p *Provider) ProviderName() string { return "openrouter" }
func (p *Provider) ModelName() string    { return p.model }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	req.Model = p.model
	return p.client.Complete(ctx, req)
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	req.Model = p.model
	return p.client.Stream(ctx, req, out)
}

func (p *Provider) SupportsStreaming() bool        { return true }
func (p *Provider) SupportsFunctionCalling() bool  { return true }
func (p *Provider) MaxContextLength() int          { return p.maxContextLength }
func (p *Provider) CostPerToken() (float64, float64) { return p.promptCost, p.completionCost }
