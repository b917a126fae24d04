package embedding

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ravel-run/agentgraph/errs"
)

var openaiDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider backs EmbeddingProvider via the official openai-go SDK's
// Embeddings endpoint — the same SDK the llm/openai package already
// carries for completions.
type OpenAIProvider struct {
	sdk   openai.Client
	model string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{sdk: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (p *OpenAIProvider) ProviderName() string { return "openai" }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, int, error) {
	resp, err := p.sdk.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: p.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, 0, errs.LlmProvider("openai", "embedding failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, 0, errs.LlmProvider("openai", "empty embedding data in response")
	}
	return resp.Data[0].Embedding, int(resp.Usage.TotalTokens), nil
}

func (p *OpenAIProvider) Dimensions() int {
	if d, ok := openaiDimensions[p.model]; ok {
		return d
	}
	return 1536
}
