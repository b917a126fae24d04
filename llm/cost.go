package llm

import (
	"sync"
	"time"
)

// ModelPricing is the per-million-token input/output cost of one model.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultModelPricing is a static price table, kept apart from each
// provider's CostPerToken. Models missing from it, including some that the
// provider packages list, are priced at zero.
var defaultModelPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-sonnet-20240229":   {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// Call is a single priced LLM invocation.
type Call struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Timestamp    time.Time
	NodeID       string
}

// CostTracker accumulates token usage and USD cost across LLM calls made
// during a workflow run. Unknown models are recorded at zero cost rather
// than rejected, since a missing pricing entry shouldn't block execution.
//
// Grounded in the teacher's graph/cost.go CostTracker: same static pricing
// table plus per-call ledger, relabeled to this package's Usage/Response
// shapes and given a Provider dimension alongside Model.
type CostTracker struct {
	mu sync.RWMutex

	workflowID string
	currency   string
	pricing    map[string]ModelPricing
	calls      []Call
	totalCost  float64
	modelCosts map[string]float64
}

// NewCostTracker creates a tracker seeded with the default pricing table.
func NewCostTracker(workflowID, currency string) *CostTracker {
	pricing := make(map[string]ModelPricing, len(defaultModelPricing))
	for k, v := range defaultModelPricing {
		pricing[k] = v
	}
	return &CostTracker{
		workflowID: workflowID,
		currency:   currency,
		pricing:    pricing,
		modelCosts: make(map[string]float64),
	}
}

// RecordUsage prices and records one completion's token usage.
func (ct *CostTracker) RecordUsage(provider, model string, usage Usage, nodeID string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	pricing := ct.pricing[model] // zero value if unknown: zero-cost, still recorded
	inputCost := (float64(usage.PromptTokens) / 1_000_000.0) * pricing.InputPer1M
	outputCost := (float64(usage.CompletionTokens) / 1_000_000.0) * pricing.OutputPer1M
	cost := inputCost + outputCost

	ct.calls = append(ct.calls, Call{
		Provider: provider, Model: model,
		InputTokens: usage.PromptTokens, OutputTokens: usage.CompletionTokens,
		CostUSD: cost, Timestamp: time.Now(), NodeID: nodeID,
	})
	ct.totalCost += cost
	ct.modelCosts[model] += cost
}

// TotalCost returns the cumulative cost across every recorded call.
func (ct *CostTracker) TotalCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.totalCost
}

// CostByModel returns a copy of the per-model cost breakdown.
func (ct *CostTracker) CostByModel() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make(map[string]float64, len(ct.modelCosts))
	for k, v := range ct.modelCosts {
		out[k] = v
	}
	return out
}

// Calls returns a copy of every recorded call, in order.
func (ct *CostTracker) Calls() []Call {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make([]Call, len(ct.calls))
	copy(out, ct.calls)
	return out
}

// SetPricing overrides (or adds) the pricing entry for model.
func (ct *CostTracker) SetPricing(model string, inputPer1M, outputPer1M float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.pricing[model] = ModelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}
