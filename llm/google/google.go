// Package google backs the Google Gemini vendor via the official
// github.com/google/generative-ai-go SDK, for both Complete and Stream —
// the SDK's own ChatSession.SendMessageStream iterator maps directly onto
// llm.StreamChunk without needing the shared sse package.
package google

import (
	"context"

	generativelanguage "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/llm"
)

var modelCost = map[string]struct{ prompt, completion float64 }{
	"gemini-1.5-pro":   {1.25e-6, 5e-6},
	"gemini-1.5-flash": {0.075e-6, 0.3e-6},
	"gemini-2.0-flash": {0.1e-6, 0.4e-6},
}

const defaultMaxContext = 1000000

type Provider struct {
	client *generativelanguage.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	client, err := generativelanguage.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errs.LlmProvider("google", "creating client: %v", err)
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) ProviderName() string { return "google" }
func (p *Provider) ModelName() string    { return p.model }

func (p *Provider) buildModel() *generativelanguage.GenerativeModel {
	m := p.client.GenerativeModel(p.model)
	return m
}

func toParts(messages []llm.Message) (system string, history []*generativelanguage.Content, prompt generativelanguage.Part) {
	for i, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = m.Content
		case llm.RoleUser, llm.RoleAssistant:
			role := "user"
			if m.Role == llm.RoleAssistant {
				role = "model"
			}
			content := &generativelanguage.Content{Role: role, Parts: []generativelanguage.Part{generativelanguage.Text(m.Content)}}
			if i == len(messages)-1 && m.Role == llm.RoleUser {
				prompt = generativelanguage.Text(m.Content)
				continue
			}
			history = append(history, content)
		}
	}
	return system, history, prompt
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := p.buildModel()
	system, history, prompt := toParts(req.Messages)
	if system != "" {
		model.SystemInstruction = &generativelanguage.Content{Parts: []generativelanguage.Part{generativelanguage.Text(system)}}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		model.Temperature = &t
	}
	if req.MaxTokens != nil {
		mt := int32(*req.MaxTokens)
		model.MaxOutputTokens = &mt
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, prompt)
	if err != nil {
		return llm.Response{}, errs.LlmProvider("google", "completion failed: %v", err)
	}
	if len(resp.Candidates) == 0 {
		return llm.Response{}, errs.LlmProvider("google", "empty candidates in response")
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(generativelanguage.Text); ok {
			content += string(text)
		}
	}

	out := llm.Response{Content: content, FinishReason: llm.FinishStop}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	defer close(out)

	model := p.buildModel()
	system, history, prompt := toParts(req.Messages)
	if system != "" {
		model.SystemInstruction = &generativelanguage.Content{Parts: []generativelanguage.Part{generativelanguage.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	iter := cs.SendMessageStream(ctx, prompt)
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return errs.LlmProvider("google", "stream error: %v", err)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		var delta string
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(generativelanguage.Text); ok {
				delta += string(text)
			}
		}
		select {
		case out <- llm.StreamChunk{DeltaContent: delta}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
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
