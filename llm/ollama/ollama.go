// Package ollama backs a local Ollama server: NDJSON streaming (not SSE),
// and a pull-on-absence flow that downloads a model the first time it's
// requested, then caches the verified flag so later calls skip the
// existence check.
//
// Grounded in original_source/core/src/llm/ollama.rs's NDJSON line
// protocol (each line a complete JSON object, final line {"done":true})
// and its model-presence check before first use.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/sse"
)

const defaultBaseURL = "http://localhost:11434"

type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client

	mu       sync.Mutex
	verified bool
}

func New(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), model: model, httpClient: &http.Client{}}
}

func (p *Provider) ProviderName() string { return "ollama" }
func (p *Provider) ModelName() string    { return p.model }

// ensureModel checks /api/tags for p.model and, if absent, requests
// /api/pull before continuing. The verified flag is sticky for the life
// of the Provider so repeat calls don't re-check.
func (p *Provider) ensureModel(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verified {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return errs.LlmProvider("ollama", "building tags request: %v", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errs.Network(err, "ollama: tags request failed: %v", err)
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return errs.LlmProvider("ollama", "decoding tags response: %v", err)
	}
	for _, m := range tags.Models {
		if m.Name == p.model {
			p.verified = true
			return nil
		}
	}

	if err := p.pullModel(ctx); err != nil {
		return err
	}
	p.verified = true
	return nil
}

func (p *Provider) pullModel(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"name": p.model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return errs.LlmProvider("ollama", "building pull request: %v", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errs.Network(err, "ollama: pull request failed: %v", err)
	}
	defer resp.Body.Close()

	// Drain the NDJSON pull progress stream to completion; individual
	// progress lines are not surfaced, only the terminal success/failure.
	frames := make(chan sse.Frame)
	errCh := make(chan error, 1)
	go func() { errCh <- sse.ReadNDJSON(ctx, resp.Body, frames); close(frames) }()

	var lastStatus struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	for frame := range frames {
		_ = json.Unmarshal([]byte(frame.Data), &lastStatus)
		if lastStatus.Error != "" {
			return errs.LlmProvider("ollama", "pulling model %q: %s", p.model, lastStatus.Error)
		}
	}
	if err := <-errCh; err != nil {
		return errs.LlmProvider("ollama", "pulling model %q: %v", p.model, err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done           bool `json:"done"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount      int  `json:"eval_count"`
}

func toChatMessages(messages []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := p.ensureModel(ctx); err != nil {
		return llm.Response{}, err
	}

	body, err := json.Marshal(chatRequest{Model: p.model, Messages: toChatMessages(req.Messages), Stream: false})
	if err != nil {
		return llm.Response{}, errs.LlmProvider("ollama", "encoding request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, errs.LlmProvider("ollama", "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, errs.Network(err, "ollama: chat request failed: %v", err)
	}
	defer resp.Body.Close()

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return llm.Response{}, errs.LlmProvider("ollama", "decoding response: %v", err)
	}
	return llm.Response{
		Content:      cr.Message.Content,
		FinishReason: llm.FinishStop,
		Usage: llm.Usage{
			PromptTokens:     cr.PromptEvalCount,
			CompletionTokens: cr.EvalCount,
			TotalTokens:      cr.PromptEvalCount + cr.EvalCount,
		},
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	defer close(out)

	if err := p.ensureModel(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(chatRequest{Model: p.model, Messages: toChatMessages(req.Messages), Stream: true})
	if err != nil {
		return errs.LlmProvider("ollama", "encoding request: %v", err)
	}

	// ConnectionTimeout bounds the request until the response headers
	// arrive; the body is then read under ctx and the chunk timeout.
	connectCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connectTimer := time.AfterFunc(llm.ConnectionTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(connectCtx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return errs.LlmProvider("ollama", "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	connectTimedOut := !connectTimer.Stop()
	if err != nil {
		if connectCtx.Err() != nil {
			return sse.DialTimeoutError("ollama")
		}
		return errs.Network(err, "ollama: chat stream failed: %v", err)
	}
	defer resp.Body.Close()
	if connectTimedOut {
		return sse.DialTimeoutError("ollama")
	}

	frames := make(chan sse.Frame)
	errCh := make(chan error, 1)
	go func() { errCh <- sse.ReadNDJSON(ctx, resp.Body, frames); close(frames) }()

	breaker := &sse.ParseErrorBreaker{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return <-errCh
			}
			var cr chatResponse
			if err := json.Unmarshal([]byte(frame.Data), &cr); err != nil {
				if breaker.RecordParseError() {
					return errs.LlmProvider("ollama", "too many consecutive unparsable stream chunks")
				}
				continue
			}
			breaker.RecordParseSuccess()

			chunk := llm.StreamChunk{DeltaContent: cr.Message.Content}
			if cr.Done {
				chunk.FinishReason = llm.FinishStop
				usage := llm.Usage{PromptTokens: cr.PromptEvalCount, CompletionTokens: cr.EvalCount, TotalTokens: cr.PromptEvalCount + cr.EvalCount}
				chunk.Usage = &usage
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
			if cr.Done {
				return nil
			}
		}
	}
}

func (p *Provider) SupportsStreaming() bool          { return true }
func (p *Provider) SupportsFunctionCalling() bool    { return false }
func (p *Provider) MaxContextLength() int            { return 8192 }
func (p *Provider) CostPerToken() (float64, float64) { return 0, 0 }
