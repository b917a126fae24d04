// Package azure backs Azure OpenAI. Most deployments speak the same
// chat-completions wire shape as OpenAI itself and reuse compat.Client
// with an Azure-shaped base URL; "codex" deployments instead speak Azure's
// newer Responses API, which has a different request/response envelope
// and is handled by a separate branch.
//
// Grounded in original_source/core/src/llm/azure.rs's deployment-name
// dispatch between the chat-completions and responses endpoints.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/compat"
	"github.com/ravel-run/agentgraph/sse"
)

const apiVersion = "2024-10-21"

// codexDeployments speaks Azure's Responses API instead of chat
// completions.
var codexDeployments = map[string]bool{
	"codex":     true,
	"codex-mini": true,
}

type Provider struct {
	resourceName   string
	deploymentName string
	apiKey         string
	httpClient     *http.Client
	chatClient     *compat.Client
}

func New(resourceName, deploymentName, apiKey string) *Provider {
	p := &Provider{
		resourceName:   resourceName,
		deploymentName: deploymentName,
		apiKey:         apiKey,
		httpClient:     &http.Client{},
	}
	if !codexDeployments[deploymentName] {
		base := fmt.Sprintf("https://%s.openai.azure.com/openai/deployments/%s", resourceName, deploymentName)
		p.chatClient = compat.New("azure", base, apiKey)
	}
	return p
}

func (p *Provider) ProviderName() string { return "azure" }
func (p *Provider) ModelName() string    { return p.deploymentName }

func (p *Provider) isCodex() bool { return codexDeployments[p.deploymentName] }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if !p.isCodex() {
		req.Model = p.deploymentName
		return p.chatClient.Complete(ctx, req)
	}
	return p.completeResponsesAPI(ctx, req)
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	if !p.isCodex() {
		req.Model = p.deploymentName
		return p.chatClient.Stream(ctx, req, out)
	}
	return p.streamResponsesAPI(ctx, req, out)
}

// Azure Responses API request/response shapes — an input-array envelope
// distinct from the chat-completions messages array.
type responsesRequest struct {
	Input []responsesInput `json:"input"`
	Model string           `json:"model"`
	Stream bool            `json:"stream"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesOutput struct {
	ID     string `json:"id"`
	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) responsesURL() string {
	return fmt.Sprintf("https://%s.openai.azure.com/openai/responses?api-version=%s", p.resourceName, apiVersion)
}

func toResponsesInput(messages []llm.Message) []responsesInput {
	out := make([]responsesInput, 0, len(messages))
	for _, m := range messages {
		out = append(out, responsesInput{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (p *Provider) completeResponsesAPI(ctx context.Context, req llm.Request) (llm.Response, error) {
	body, err := json.Marshal(responsesRequest{Input: toResponsesInput(req.Messages), Model: p.deploymentName})
	if err != nil {
		return llm.Response{}, errs.LlmProvider("azure", "encoding request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.responsesURL(), bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, errs.LlmProvider("azure", "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, errs.Network(err, "azure: responses request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return llm.Response{}, errs.LlmProvider("azure", "api error (status %d): %s", resp.StatusCode, errBody)
	}

	var ro responsesOutput
	if err := json.NewDecoder(resp.Body).Decode(&ro); err != nil {
		return llm.Response{}, errs.LlmProvider("azure", "decoding response: %v", err)
	}

	var content string
	for _, o := range ro.Output {
		for _, c := range o.Content {
			content += c.Text
		}
	}
	return llm.Response{
		ID:           ro.ID,
		Content:      content,
		FinishReason: llm.FinishStop,
		Usage: llm.Usage{
			PromptTokens:     ro.Usage.InputTokens,
			CompletionTokens: ro.Usage.OutputTokens,
			TotalTokens:      ro.Usage.TotalTokens,
		},
	}, nil
}

// responsesStreamEvent is the subset of Azure's Responses API SSE events
// this package decodes: incremental text deltas.
type responsesStreamEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

func (p *Provider) streamResponsesAPI(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	defer close(out)

	body, err := json.Marshal(responsesRequest{Input: toResponsesInput(req.Messages), Model: p.deploymentName, Stream: true})
	if err != nil {
		return errs.LlmProvider("azure", "encoding request: %v", err)
	}

	// ConnectionTimeout bounds the request until the response headers
	// arrive; the body is then read under ctx and the chunk timeout.
	connectCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connectTimer := time.AfterFunc(llm.ConnectionTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(connectCtx, http.MethodPost, p.responsesURL(), bytes.NewReader(body))
	if err != nil {
		return errs.LlmProvider("azure", "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	connectTimedOut := !connectTimer.Stop()
	if err != nil {
		if connectCtx.Err() != nil {
			return sse.DialTimeoutError("azure")
		}
		return errs.Network(err, "azure: responses stream failed: %v", err)
	}
	defer resp.Body.Close()
	if connectTimedOut {
		return sse.DialTimeoutError("azure")
	}

	if resp.StatusCode >= 400 {
		errBody, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return errs.LlmProvider("azure", "api error (status %d): %s", resp.StatusCode, errBody)
	}

	frames := make(chan sse.Frame)
	errCh := make(chan error, 1)
	go func() { errCh <- sse.ReadSSE(ctx, resp.Body, frames); close(frames) }()

	breaker := &sse.ParseErrorBreaker{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return <-errCh
			}
			if frame.Done {
				return nil
			}
			var ev responsesStreamEvent
			if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
				if breaker.RecordParseError() {
					return errs.LlmProvider("azure", "too many consecutive unparsable stream chunks")
				}
				continue
			}
			breaker.RecordParseSuccess()
			if ev.Delta == "" {
				continue
			}
			select {
			case out <- llm.StreamChunk{DeltaContent: ev.Delta}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Provider) SupportsStreaming() bool       { return true }
func (p *Provider) SupportsFunctionCalling() bool { return !p.isCodex() }
func (p *Provider) MaxContextLength() int         { return 128000 }
func (p *Provider) CostPerToken() (float64, float64) { return 0, 0 }
