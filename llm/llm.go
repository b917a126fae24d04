// Package llm defines the uniform multi-provider LLM abstraction used by
// agent nodes (spec.md §5): Message/Request/Response types and the
// LlmProvider contract every concrete vendor package implements.
//
// Grounded in the teacher's tool.Tool interface shape (graph/tool) — a
// small, name-identified capability interface — generalized to a
// completion/streaming provider contract, plus original_source's
// core/src/llm/types.rs for the Request/Response field set.
package llm

import (
	"context"
	"time"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolSpec describes a callable function offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON Schema
}

// ToolCall is a model-requested invocation of a ToolSpec.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Message is one turn in a conversation.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string // set on RoleTool messages, echoing the call being answered
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolSpec
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Stop        []string

	// ExtraParams holds provider-specific knobs (e.g. Azure's
	// "reasoning_effort") that have no home in the common fields above.
	// No provider in this module reads it, so it is not sent on the wire.
	ExtraParams map[string]interface{}
}

// FinishReason classifies why a completion stopped.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError     FinishReason = "error"
)

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-agnostic completion result.
type Response struct {
	ID           string
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
}

// StreamChunk is one increment of a streamed completion. ID is the
// completion's id as reported by the provider; every chunk in a stream
// carries it forward, not just the first, so callers never see it reset
// mid-stream.
type StreamChunk struct {
	ID           string
	DeltaContent string
	ToolCalls    []ToolCall
	FinishReason FinishReason // zero value until the final chunk
	Usage        *Usage       // set only on the final chunk, if the provider reports it
	Err          error
}

// LlmProvider is the contract every vendor package implements.
type LlmProvider interface {
	ProviderName() string
	ModelName() string

	Complete(ctx context.Context, req Request) (Response, error)

	// Stream pushes StreamChunk values to out until the completion ends or
	// ctx is cancelled, then closes out. A terminal error is returned from
	// Stream itself; the implementations in this module never set
	// StreamChunk.Err.
	Stream(ctx context.Context, req Request, out chan<- StreamChunk) error

	SupportsStreaming() bool
	SupportsFunctionCalling() bool
	MaxContextLength() int
	CostPerToken() (prompt, completion float64)
}

// Timeout tiers (spec.md §5.3) applied by the HTTP-based Stream
// implementations (compat, Azure's Responses API path, ollama) through
// package sse. The SDK-backed anthropic and google streams do not use them.
const (
	ConnectionTimeout = 60 * time.Second
	ErrorBodyTimeout  = 10 * time.Second
	ChunkTimeout      = 30 * time.Second
)

// MaxConsecutiveParseErrors trips a provider-local circuit breaker inside
// Stream implementations: this many consecutive unparsable chunks aborts
// the stream rather than looping forever on a malformed feed.
const MaxConsecutiveParseErrors = 5
