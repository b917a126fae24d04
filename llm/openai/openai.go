// Package openai backs the OpenAI vendor: Complete goes through the
// official github.com/openai/openai-go SDK (the teacher's own dependency,
// graph/ doesn't use it but the module carries it for exactly this kind
// of provider integration); Stream reuses the shared compat/sse wire
// handling since openai-go's own streaming iterator is a thinner
// abstraction than this package's uniform llm.StreamChunk contract needs.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ravel-run/agentgraph/errs"
	oaillm "github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
)

const baseURL = "https://api.openai.com/v1"

var modelCost = map[string]struct{ prompt, completion float64 }{
	"gpt-4o":      {2.5e-6, 10e-6},
	"gpt-4o-mini": {0.15e-6, 0.6e-6},
	"gpt-4-turbo": {10e-6, 30e-6},
	"o1":          {15e-6, 60e-6},
}

const defaultMaxContext = 128000

type Provider struct {
	sdk          openai.Client
	streamClient *compat.Client
	model        string
}

func New(apiKey, model string) *Provider {
	return &Provider{
		sdk:          openai.NewClient(option.WithAPIKey(apiKey)),
		streamClient: compat.New("openai", baseURL, apiKey),
		model:        model,
	}
}

func (p *Provider) ProviderName() string { return "openai" }
func (p *Provider) ModelName() string    { return p.model }

func toSDKMessages(messages []oaillm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case oaillm.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case oaillm.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case oaillm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case oaillm.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func (p *Provider) Complete(ctx context.Context, req oaillm.Request) (oaillm.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toSDKMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	resp, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return oaillm.Response{}, errs.LlmProvider("openai", "completion failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return oaillm.Response{}, errs.LlmProvider("openai", "empty choices in response")
	}
	choice := resp.Choices[0]

	out := oaillm.Response{
		ID:      resp.ID,
		Content: choice.Message.Content,
		Usage: oaillm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	switch choice.FinishReason {
	case "length":
		out.FinishReason = oaillm.FinishLength
	case "tool_calls":
		out.FinishReason = oaillm.FinishToolCalls
	case "content_filter":
		out.FinishReason = oaillm.FinishContentFilter
	default:
		out.FinishReason = oaillm.FinishStop
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, oaillm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

// Stream delegates to the shared compat client: OpenAI's raw SSE chunk
// shape is exactly what compat.Client already decodes.
func (p *Provider) Stream(ctx context.Context, req oaillm.Request, out chan<- oaillm.StreamChunk) error {
	req.Model = p.model
	return p.streamClient.Stream(ctx, req, out)
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
