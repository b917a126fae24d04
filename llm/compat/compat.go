// Package compat implements the OpenAI-wire-compatible REST client shared
// by every vendor whose API is a drop-in rename of OpenAI's chat
// completions endpoint: openrouter, deepseek, mistral, perplexity, plus
// Azure's non-codex deployments and OpenAI's Stream path, since all six
// speak the same SSE chunk shape.
//
// Grounded in original_source/core/src/llm/openrouter.rs,
// deepseek.rs, mistral.rs, perplexity.rs, which are themselves thin
// base-URL/model-list wrappers over one shared OpenAI-compatible HTTP
// client — generalized here into a single parameterized Client instead of
// four near-duplicate Go files, which is the Go-idiomatic analogue of the
// original's shared trait implementation.
package compat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/sse"
)

// Client is a minimal OpenAI-wire HTTP client: POST {BaseURL}/chat/completions
// with a Bearer APIKey, JSON request/response bodies.
type Client struct {
	ProviderID string // label used in errors/usage accounting, e.g. "openrouter"
	BaseURL    string // e.g. "https://openrouter.ai/api/v1"
	APIKey     string
	HTTPClient *http.Client
}

func New(providerID, baseURL, apiKey string) *Client {
	return &Client{
		ProviderID: providerID,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 0}, // per-request timeouts applied via context
	}
}

type wireMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description,omitempty"`
		Parameters  map[string]interface{} `json:"parameters,omitempty"`
	} `json:"function"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
}

type wireChoice struct {
	Message struct {
		Content   string `json:"content"`
		ToolCalls []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func toWireRequest(req llm.Request, stream bool) wireRequest {
	w := wireRequest{Model: req.Model, Temperature: req.Temperature, MaxTokens: req.MaxTokens, TopP: req.TopP, Stop: req.Stop, Stream: stream}
	for _, m := range req.Messages {
		w.Messages = append(w.Messages, wireMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID})
	}
	for _, t := range req.Tools {
		wt := wireTool{Type: "function"}
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		w.Tools = append(w.Tools, wt)
	}
	return w
}

func finishReason(s string) llm.FinishReason {
	switch s {
	case "length":
		return llm.FinishLength
	case "tool_calls":
		return llm.FinishToolCalls
	case "content_filter":
		return llm.FinishContentFilter
	case "":
		return ""
	default:
		return llm.FinishStop
	}
}

// Complete issues a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	body, err := json.Marshal(toWireRequest(req, false))
	if err != nil {
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "encoding request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, errs.Network(err, "%s: request failed: %v", c.ProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		body, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return llm.Response{}, errs.RateLimit(c.ProviderID, retryAfter, "rate limited: %s", body)
	}
	if resp.StatusCode >= 400 {
		body, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "api error (status %d): %s", resp.StatusCode, body)
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "decoding response: %v", err)
	}
	if wr.Error != nil {
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "api error: %s", wr.Error.Message)
	}
	if len(wr.Choices) == 0 {
		return llm.Response{}, errs.LlmProvider(c.ProviderID, "empty choices in response")
	}
	ch := wr.Choices[0]
	out := llm.Response{
		ID:           wr.ID,
		Content:      ch.Message.Content,
		FinishReason: finishReason(ch.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		},
	}
	for _, tc := range ch.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

// Stream issues a streaming chat completion over SSE.
func (c *Client) Stream(ctx context.Context, req llm.Request, out chan<- llm.StreamChunk) error {
	defer close(out)

	body, err := json.Marshal(toWireRequest(req, true))
	if err != nil {
		return errs.LlmProvider(c.ProviderID, "encoding request: %v", err)
	}

	// ConnectionTimeout bounds the request until the response headers
	// arrive; the body is then read under ctx and the chunk timeout.
	connectCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connectTimer := time.AfterFunc(llm.ConnectionTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(connectCtx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return errs.LlmProvider(c.ProviderID, "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(httpReq)
	connectTimedOut := !connectTimer.Stop()
	if err != nil {
		if connectCtx.Err() != nil {
			return sse.DialTimeoutError(c.ProviderID)
		}
		return errs.Network(err, "%s: stream request failed: %v", c.ProviderID, err)
	}
	defer resp.Body.Close()
	if connectTimedOut {
		return sse.DialTimeoutError(c.ProviderID)
	}

	if resp.StatusCode >= 400 {
		errBody, _ := sse.ErrorBodyWithTimeout(ctx, resp.Body)
		return errs.LlmProvider(c.ProviderID, "api error (status %d): %s", resp.StatusCode, errBody)
	}

	frames := make(chan sse.Frame)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.ReadSSE(ctx, resp.Body, frames)
		close(frames)
	}()

	breaker := &sse.ParseErrorBreaker{}
	var lastID string
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
			var wr wireResponse
			if err := json.Unmarshal([]byte(frame.Data), &wr); err != nil {
				if breaker.RecordParseError() {
					return errs.LlmProvider(c.ProviderID, "too many consecutive unparsable stream chunks")
				}
				continue
			}
			breaker.RecordParseSuccess()
			if wr.ID != "" {
				lastID = wr.ID
			}
			if len(wr.Choices) == 0 {
				continue
			}
			ch := wr.Choices[0]
			if ch.Delta.Content == "" {
				continue
			}
			chunk := llm.StreamChunk{ID: lastID, DeltaContent: ch.Delta.Content, FinishReason: finishReason(ch.FinishReason)}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
