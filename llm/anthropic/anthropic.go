// Package anthropic backs the Anthropic vendor via the official
// github.com/anthropics/anthropic-sdk-go SDK for both Complete and Stream
// (the SDK's Messages.NewStreaming event stream), since Anthropic's
// streaming event shape ("content_block_delta" etc.) doesn't match the
// OpenAI-wire compat.Client this module shares with six other vendors.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/sse"
)

var modelCost = map[string]struct{ prompt, completion float64 }{
	"claude-opus-4-1-20250805":   {15e-6, 75e-6},
	"claude-sonnet-4-5-20250929": {3e-6, 15e-6},
	"claude-3-5-haiku-20241022":  {0.8e-6, 4e-6},
}

const defaultMaxContext = 200000

type Provider struct {
	sdk   anthropic.Client
	model string
}

func New(apiKey, model string) *Provider {
	return &Provider{sdk: anthropic.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (p *Provider) ProviderName() string { return "anthropic" }
func (p *Provider) ModelName() string    { return p.model }

func toSDKMessages(messages []llm.Message) (system string, out []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = m.Content
		case llm.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	system, messages := toSDKMessages(req.Messages)
	maxTokens := int64(4096)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := p.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, errs.LlmProvider("anthropic", "completion failed: %v", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	out := llm.Response{
		ID:      resp.ID,
		Content: content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	switch resp.StopReason {
	case "max_tokens":
		out.FinishReason = llm.FinishLength
	case "tool_use":
		out.FinishReason = llm.FinishToolCalls
	default:
		out.FinishReason = llm.FinishStop
	}
	return out, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	defer close(out)

	system, messages := toSDKMessages(req.Messages)
	maxTokens := int64(4096)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := p.sdk.Messages.NewStreaming(ctx, params)
	breaker := &sse.ParseErrorBreaker{}
	for stream.Next() {
		event := stream.Current()
		chunk := llm.StreamChunk{DeltaContent: event.Delta.Text}
		if event.Type == "message_stop" {
			chunk.FinishReason = llm.FinishStop
		}
		breaker.RecordParseSuccess()
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := stream.Err(); err != nil {
		return errs.LlmProvider("anthropic", "stream error: %v", err)
	}
	return nil
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
