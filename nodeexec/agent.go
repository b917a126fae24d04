package nodeexec

import (
	"context"
	"encoding/json"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/tool"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// ProviderResolver maps an AgentId to the llm.LlmProvider backing it. The
// executor package owns agent registration (including the
// node > executor-default > unconfigured-sentinel resolution priority);
// nodeexec only consumes the result.
type ProviderResolver func(ids.AgentId) (llm.LlmProvider, bool)

// AgentExecutor runs KindAgent nodes by building an llm.Request from the
// node's config and the shared workflow context, then delegating to the
// resolved provider's Complete; it does not stream.
// Tools is optional; when set, any ToolCall a provider returns is
// resolved through it, whatever the node's config says, and the result
// attached to the node's output under "tool_results". Nil Tools leaves
// resp.ToolCalls unresolved — the caller can still inspect them.
type AgentExecutor struct {
	Resolve ProviderResolver
	Tools   *tool.Registry
	Costs   *llm.CostTracker
}

func NewAgentExecutor(resolve ProviderResolver) *AgentExecutor {
	return &AgentExecutor{Resolve: resolve}
}

func (a *AgentExecutor) WithTools(registry *tool.Registry) *AgentExecutor {
	a.Tools = registry
	return a
}

// WithCostTracker attaches a CostTracker; every completion's Usage gets
// priced and recorded against it.
func (a *AgentExecutor) WithCostTracker(ct *llm.CostTracker) *AgentExecutor {
	a.Costs = ct
	return a
}

func (a *AgentExecutor) Execute(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	cfg := NewConfig(node.Config)
	agentIDStr, err := cfg.ConfigString("agent_id")
	if err != nil {
		return nil, err
	}
	agentID, err := ids.AgentIdFromString(agentIDStr)
	if err != nil {
		return nil, errs.Validation("agent node %s: invalid agent_id: %v", node.ID, err)
	}

	provider, ok := a.Resolve(agentID)
	if !ok {
		return nil, errs.Config("agent node %s: no provider configured for agent %s", node.ID, agentID)
	}

	req, err := buildRequest(cfg, wctx)
	if err != nil {
		return nil, err
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if a.Costs != nil {
		a.Costs.RecordUsage(provider.ProviderName(), provider.ModelName(), resp.Usage, node.ID.String())
	}

	out := map[string]interface{}{
		"content":       resp.Content,
		"finish_reason": string(resp.FinishReason),
		"tool_calls":    resp.ToolCalls,
		"usage": map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}

	if a.Tools != nil && len(resp.ToolCalls) > 0 {
		out["tool_results"] = a.resolveToolCalls(ctx, node, resp.ToolCalls)
	}

	return out, nil
}

// resolveToolCalls executes every ToolCall the provider returned against
// the registry, recording a per-call result even on failure so a node's
// output always reflects what was attempted.
func (a *AgentExecutor) resolveToolCalls(ctx context.Context, node graphmodel.Node, calls []llm.ToolCall) []map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(calls))
	for _, call := range calls {
		entry := map[string]interface{}{"id": call.ID, "name": call.Name}

		t, ok := a.Tools.Get(call.Name)
		if !ok {
			entry["error"] = errs.Config("agent node %s: no tool registered for %q", node.ID, call.Name).Error()
			results = append(results, entry)
			continue
		}

		var input map[string]interface{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
				entry["error"] = errs.Validation("agent node %s: tool %q arguments not valid JSON: %v", node.ID, call.Name, err).Error()
				results = append(results, entry)
				continue
			}
		}

		output, err := t.Call(ctx, input)
		if err != nil {
			entry["error"] = err.Error()
		} else {
			entry["output"] = output
		}
		results = append(results, entry)
	}
	return results
}

func buildRequest(cfg Config, wctx *wfcontext.WorkflowContext) (llm.Request, error) {
	promptTemplate, err := cfg.ConfigString("prompt")
	if err != nil {
		return llm.Request{}, err
	}
	model := cfg.ConfigStringOr("model", "")
	systemPrompt := cfg.ConfigStringOr("system_prompt", "")

	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: interpolate(promptTemplate, wctx)})

	req := llm.Request{
		Model:    model,
		Messages: messages,
	}
	if t := cfg.ConfigFloatOr("temperature", -1); t >= 0 {
		req.Temperature = &t
	}
	if mt := cfg.ConfigFloatOr("max_tokens", -1); mt >= 0 {
		v := int(mt)
		req.MaxTokens = &v
	}
	if tools := cfg.ConfigRaw()["tools"]; tools != nil {
		var specs []llm.ToolSpec
		if raw, err := json.Marshal(tools); err == nil {
			_ = json.Unmarshal(raw, &specs)
		}
		req.Tools = specs
	}
	return req, nil
}

// interpolate replaces "{{name}}" placeholders in template with the
// matching node output, falling back to leaving the placeholder untouched
// when the referenced node has no recorded output (absence, not error).
func interpolate(template string, wctx *wfcontext.WorkflowContext) string {
	return expandPlaceholders(template, wctx.OutputsByName())
}
