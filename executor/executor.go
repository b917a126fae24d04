// Package executor implements the workflow scheduler: dependency-aware
// batch execution over a graphmodel.WorkflowGraph, with per-agent circuit
// breakers, retry policies, and two-tier concurrency limiting
// (spec.md §4.4-4.5).
//
// Grounded in the teacher's Engine.runConcurrent (graph/engine.go): a
// worker-style fan-out with atomic counters, context cancellation on
// terminal failure, and emit.Emitter observability — generalized from a
// single flat work frontier to explicit topological batches (since node
// dependencies here come from the DAG itself, not a dynamic per-node
// Route), and from the teacher's node-type-agnostic Node[S] to per-kind
// nodeexec.Executor dispatch.
package executor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravel-run/agentgraph/breaker"
	"github.com/ravel-run/agentgraph/concurrency"
	"github.com/ravel-run/agentgraph/emit"
	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/nodeexec"
	"github.com/ravel-run/agentgraph/retry"
	"github.com/ravel-run/agentgraph/store"
	"github.com/ravel-run/agentgraph/tool"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// authPatterns are substrings that, when found in a lower-cased error
// message, force a fail-fast short-circuit even when fail_fast=false —
// spec.md §7's authentication/authorization override.
var authPatterns = []string{"auth", "key", "invalid", "unauthorized", "permission", "api error"}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// limitedKinds are the node kinds that contend for the two-tier
// concurrency limiter; everything else runs unthrottled (CPU-bound
// transforms/conditions, or delays which hold no external resource).
var limitedKinds = map[graphmodel.NodeKind]bool{
	graphmodel.KindAgent:          true,
	graphmodel.KindDocumentLoader: true,
}

// Options configures an Executor.
type Options struct {
	Concurrency   concurrency.Config
	DefaultRetry  retry.Policy
	BreakerConfig breaker.Config
	FailFast      bool
	Emitter       emit.Emitter
	Tools         *tool.Registry
	Recorder      store.Recorder
	Costs         *llm.CostTracker
}

// DefaultOptions mirrors the teacher's Options-struct constructor pattern
// (graph/options.go): a usable zero-config default plus functional
// overrides.
func DefaultOptions() Options {
	return Options{
		Concurrency:   concurrency.HighThroughput(),
		DefaultRetry:  retry.Default(),
		BreakerConfig: breaker.DefaultConfig(),
		FailFast:      true,
		Emitter:       emit.NewNullEmitter(),
	}
}

// Option mutates an Options value.
type Option func(*Options)

func WithConcurrency(cfg concurrency.Config) Option { return func(o *Options) { o.Concurrency = cfg } }
func WithDefaultRetry(p retry.Policy) Option        { return func(o *Options) { o.DefaultRetry = p } }
func WithBreakerConfig(c breaker.Config) Option     { return func(o *Options) { o.BreakerConfig = c } }
func WithFailFast(b bool) Option                    { return func(o *Options) { o.FailFast = b } }
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) {
		if e != nil {
			o.Emitter = e
		}
	}
}
func WithTools(r *tool.Registry) Option { return func(o *Options) { o.Tools = r } }

// WithRecorder attaches an audit-trail Recorder; every node result and the
// run's terminal state get persisted as the workflow executes. Optional —
// a nil Recorder (the default) means no audit persistence.
func WithRecorder(r store.Recorder) Option { return func(o *Options) { o.Recorder = r } }

// WithCostTracker attaches a llm.CostTracker; every agent node's completion
// usage is priced and recorded against it as the workflow runs.
func WithCostTracker(ct *llm.CostTracker) Option { return func(o *Options) { o.Costs = ct } }

// Executor runs workflows defined by a graphmodel.WorkflowGraph.
type Executor struct {
	opts     Options
	limiter  *concurrency.Limiter
	breakers *breaker.Registry

	mu        sync.RWMutex
	providers map[ids.AgentId]llm.LlmProvider

	unconfiguredProvider llm.LlmProvider // fallback when no agent-specific provider is registered
}

// New creates an Executor. opts ...Option overrides DefaultOptions().
func New(opts ...Option) *Executor {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Executor{
		opts:      o,
		limiter:   concurrency.New(o.Concurrency),
		breakers:  breaker.NewRegistry(o.BreakerConfig),
		providers: make(map[ids.AgentId]llm.LlmProvider),
	}
}

// RegisterProvider binds agent to a concrete LlmProvider. Node-level
// agent_id config always wins; RegisterProvider populates that resolution
// table.
func (e *Executor) RegisterProvider(agent ids.AgentId, p llm.LlmProvider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[agent] = p
}

// SetDefaultProvider registers the fallback provider used when a node
// names an agent with no specific registration — the
// node > executor-default > unconfigured-sentinel priority chain.
func (e *Executor) SetDefaultProvider(p llm.LlmProvider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unconfiguredProvider = p
}

func (e *Executor) resolveProvider(agent ids.AgentId) (llm.LlmProvider, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.providers[agent]; ok {
		return p, true
	}
	if e.unconfiguredProvider != nil {
		return e.unconfiguredProvider, true
	}
	return nil, false
}

// Execute validates graph, plans dependency batches, and runs every node
// to completion (or to the first fail-fast short-circuit), returning the
// WorkflowContext holding every output, variable, and execution stat.
func (e *Executor) Execute(ctx context.Context, graph *graphmodel.WorkflowGraph, workflowID ids.WorkflowId) (*wfcontext.WorkflowContext, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	batches := layerBatches(graph, order)

	execStart := time.Now()
	wctx := wfcontext.New(workflowID)
	wctx.SetState(wfcontext.Running(ids.NodeId{}))
	e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, Msg: emit.MsgWorkflowStart})

	// Snapshot the dependency map and id/name index into context metadata
	// once, up front — nodes never see a half-updated view of the graph
	// shape mid-run.
	depMap := make(map[ids.NodeId][]ids.NodeId, len(order))
	depIndex := make(map[string][]string, len(order))
	nameMap := make(map[string]string, len(order))
	for _, id := range order {
		n, _ := graph.GetNode(id)
		depMap[id] = graph.GetDependencies(id)
		depStrs := make([]string, 0, len(depMap[id]))
		for _, d := range depMap[id] {
			depStrs = append(depStrs, d.String())
		}
		depIndex[id.String()] = depStrs
		if n.Name != "" {
			nameMap[n.Name] = id.String()
		}
	}
	wctx.SetMetadata("node_dependencies", depIndex)
	wctx.SetMetadata("node_name_index", nameMap)

	var shortCircuit error
	skipped := make(map[ids.NodeId]bool)

	for _, batch := range batches {
		if shortCircuit != nil {
			for _, id := range batch {
				skipped[id] = true
				wctx.RecordSkipped()
				e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: id, Msg: emit.MsgNodeSkipped})
			}
			continue
		}

		// Only a fail-fast run cancels in-flight siblings on the first error;
		// otherwise every node in the batch runs to its own outcome.
		eg, egCtx := &errgroup.Group{}, ctx
		if e.opts.FailFast {
			eg, egCtx = errgroup.WithContext(ctx)
		}
		var failedMu sync.Mutex
		var failed []ids.NodeId
		for _, id := range batch {
			id := id
			if anyDepSkipped(depMap[id], skipped) {
				skipped[id] = true
				wctx.RecordSkipped()
				e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: id, Msg: emit.MsgNodeSkipped})
				continue
			}
			node, _ := graph.GetNode(id)
			eg.Go(func() error {
				err := e.executeWithRetry(egCtx, node, workflowID, wctx)
				if err != nil {
					failedMu.Lock()
					failed = append(failed, id)
					failedMu.Unlock()
				}
				return err
			})
		}
		batchErr := eg.Wait()
		// A failed node's dependents are skipped rather than run without its
		// output, so failed nodes join the set anyDepSkipped checks.
		for _, id := range failed {
			skipped[id] = true
		}

		if batchErr != nil {
			if e.opts.FailFast || isAuthError(batchErr) {
				shortCircuit = batchErr
			}
		}
	}

	if shortCircuit != nil {
		wctx.SetState(wfcontext.Failed(shortCircuit.Error()))
		e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, Msg: emit.MsgWorkflowFailed, Meta: map[string]interface{}{"error": shortCircuit.Error()}})
		e.recordRun(ctx, workflowID, execStart, wctx)
		return wctx, shortCircuit
	}

	wctx.SetState(wfcontext.Completed())
	e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, Msg: emit.MsgWorkflowComplete})
	e.recordRun(ctx, workflowID, execStart, wctx)
	return wctx, nil
}

// recordRun persists the run's terminal summary if a Recorder is wired in.
// Best-effort: a recording failure never overrides the workflow's own
// result, since the audit trail is observability, not execution state.
func (e *Executor) recordRun(ctx context.Context, workflowID ids.WorkflowId, startedAt time.Time, wctx *wfcontext.WorkflowContext) {
	if e.opts.Recorder == nil {
		return
	}
	state := wctx.State()
	run := store.RunRecord{
		WorkflowID:  workflowID,
		State:       state.Kind,
		Error:       state.Error,
		StartedAt:   startedAt,
		CompletedAt: wctx.CompletedAt(),
		Stats:       wctx.Stats(),
	}
	if err := e.opts.Recorder.RecordRun(ctx, run); err != nil {
		e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, Msg: emit.MsgRecorderError, Meta: map[string]interface{}{"error": err.Error()}})
	}
}

func anyDepSkipped(deps []ids.NodeId, skipped map[ids.NodeId]bool) bool {
	for _, d := range deps {
		if skipped[d] {
			return true
		}
	}
	return false
}

// layerBatches groups a topological order into dependency layers: every
// node in layer N depends only on nodes in layers < N, so each layer can
// run fully concurrently.
func layerBatches(g *graphmodel.WorkflowGraph, order []ids.NodeId) [][]ids.NodeId {
	layerOf := make(map[ids.NodeId]int, len(order))
	maxLayer := 0
	for _, id := range order {
		layer := 0
		for _, dep := range g.GetDependencies(id) {
			if l, ok := layerOf[dep]; ok && l+1 > layer {
				layer = l + 1
			}
		}
		layerOf[id] = layer
		if layer > maxLayer {
			maxLayer = layer
		}
	}
	batches := make([][]ids.NodeId, maxLayer+1)
	for _, id := range order {
		l := layerOf[id]
		batches[l] = append(batches[l], id)
	}
	return batches
}

// nodeExecutorFor resolves the nodeexec.Executor for a node kind,
// constructing the AgentExecutor on demand since it closes over the
// Executor's provider resolution.
func (e *Executor) nodeExecutorFor(kind graphmodel.NodeKind) (nodeexec.Executor, bool) {
	if kind == graphmodel.KindAgent {
		return nodeexec.NewAgentExecutor(e.resolveProvider).WithTools(e.opts.Tools).WithCostTracker(e.opts.Costs), true
	}
	return nodeexec.ByKind(kind)
}

// executeWithRetry runs node through its circuit breaker and retry policy,
// acquiring a concurrency permit first if its kind contends for one.
func (e *Executor) executeWithRetry(ctx context.Context, node graphmodel.Node, workflowID ids.WorkflowId, wctx *wfcontext.WorkflowContext) error {
	exec, ok := e.nodeExecutorFor(node.Kind)
	if !ok {
		return errs.Validation("no executor registered for node kind %q", node.Kind)
	}

	policy := e.opts.DefaultRetry
	if node.Retry != nil {
		policy = *node.Retry
	}

	var agentBreaker *breaker.Breaker
	var breakerAgentID ids.AgentId
	if node.Kind == graphmodel.KindAgent {
		if agentIDStr, err := nodeexec.NewConfig(node.Config).ConfigString("agent_id"); err == nil {
			if agentID, err := ids.AgentIdFromString(agentIDStr); err == nil {
				agentBreaker = e.breakers.GetOrCreate(agentID)
				breakerAgentID = agentID
			}
		}
	}

	start := time.Now()
	var lastErr error
	attempts := 0

retryLoop:
	for attempt := 0; ; attempt++ {
		attempts++

		if agentBreaker != nil && !agentBreaker.Allow() {
			lastErr = errs.LlmProvider("", "circuit breaker open for node %s", node.ID)
			break
		}

		var permit *concurrency.Permit
		if limitedKinds[node.Kind] {
			p, err := e.limiter.Acquire(ctx, concurrency.TaskInfo{NodeType: string(node.Kind), TaskID: node.ID.String()})
			if err != nil {
				lastErr = err
				break
			}
			permit = p
		}

		e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: node.ID, Msg: emit.MsgNodeStart})
		output, err := exec.Execute(ctx, node, wctx)
		if permit != nil {
			permit.Release()
		}

		if err == nil {
			if agentBreaker != nil {
				e.recordBreakerTransition(agentBreaker, breakerAgentID, agentBreaker.RecordSuccess)
			}
			wctx.WriteOutput(node.ID, node.Name, output)
			if stringified, err := json.Marshal(output); err == nil {
				wctx.SetVariable(node.ID.String(), string(stringified))
				if node.Name != "" {
					wctx.SetVariable(node.Name, string(stringified))
				}
			}
			result := wfcontext.NodeExecutionResult{
				NodeID: node.ID, NodeName: node.Name, Success: true,
				Output: output, StartedAt: start, FinishedAt: time.Now(), Attempts: attempts,
			}
			wctx.RecordResult(result)
			e.recordResult(ctx, workflowID, result)
			e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: node.ID, Msg: emit.MsgNodeComplete, Meta: map[string]interface{}{"duration": result.Duration()}})
			return nil
		}

		lastErr = err
		if agentBreaker != nil {
			e.recordBreakerTransition(agentBreaker, breakerAgentID, agentBreaker.RecordFailure)
		}

		if !policy.ShouldRetry(err, attempt) {
			break
		}

		e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: node.ID, Msg: emit.MsgNodeRetry, Meta: map[string]interface{}{"attempt": attempt + 1, "error": err.Error()}})
		delay := policy.CalculateDelay(attempt+1, nil)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retryLoop
		}
	}

	result := wfcontext.NodeExecutionResult{
		NodeID: node.ID, NodeName: node.Name, Success: false,
		Error: lastErr.Error(), StartedAt: start, FinishedAt: time.Now(), Attempts: attempts,
	}
	wctx.RecordResult(result)
	e.recordResult(ctx, workflowID, result)
	e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: node.ID, Msg: emit.MsgNodeFailed, Meta: map[string]interface{}{"error": lastErr.Error(), "duration": result.Duration()}})
	return lastErr
}

// recordBreakerTransition applies a success/failure outcome to b and emits
// a breaker event if doing so actually changed its state, so observers see
// one event per real transition rather than one per call.
func (e *Executor) recordBreakerTransition(b *breaker.Breaker, agentID ids.AgentId, apply func()) {
	before := b.CurrentState()
	apply()
	after := b.CurrentState()
	if before == after {
		return
	}
	switch after {
	case breaker.Open:
		e.opts.Emitter.Emit(emit.Event{AgentID: agentID, Msg: emit.MsgBreakerOpened})
	case breaker.Closed:
		e.opts.Emitter.Emit(emit.Event{AgentID: agentID, Msg: emit.MsgBreakerClosed})
	}
}

// recordResult persists one node's outcome if a Recorder is wired in.
// Best-effort, same rationale as recordRun.
func (e *Executor) recordResult(ctx context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) {
	if e.opts.Recorder == nil {
		return
	}
	if err := e.opts.Recorder.RecordResult(ctx, workflowID, result); err != nil {
		e.opts.Emitter.Emit(emit.Event{WorkflowID: workflowID, NodeID: result.NodeID, Msg: emit.MsgRecorderError, Meta: map[string]interface{}{"error": err.Error()}})
	}
}
