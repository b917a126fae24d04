// Package wfcontext implements WorkflowContext: the shared mutable state
// threaded through a workflow run (spec.md §4.2) — variables, metadata,
// dual node_outputs (by id and by name), WorkflowState, and nested
// dotted-path JSON addressing.
//
// Grounded in the teacher's state-merge idiom (graph/state.go's Reducer
// pattern for deterministic, mutex-free state updates) generalized to a
// single mutex-guarded bag of values since this spec has no generic
// per-workflow state type to reduce over — node_outputs plays that role.
package wfcontext

import (
	"sync"
	"time"

	"github.com/ravel-run/agentgraph/ids"
)

// StateKind tags the variant of WorkflowState.
type StateKind string

const (
	StatePending   StateKind = "pending"
	StateRunning   StateKind = "running"
	StatePaused    StateKind = "paused"
	StateCompleted StateKind = "completed"
	StateFailed    StateKind = "failed"
	StateCancelled StateKind = "cancelled"
)

// WorkflowState is the lifecycle state of a workflow run. CurrentNode is
// populated for Running and Paused; Reason for Paused; Error for Failed.
type WorkflowState struct {
	Kind        StateKind
	CurrentNode ids.NodeId
	Reason      string
	Error       string
}

func Pending() WorkflowState   { return WorkflowState{Kind: StatePending} }
func Cancelled() WorkflowState { return WorkflowState{Kind: StateCancelled} }
func Completed() WorkflowState { return WorkflowState{Kind: StateCompleted} }

func Running(current ids.NodeId) WorkflowState {
	return WorkflowState{Kind: StateRunning, CurrentNode: current}
}

func Paused(current ids.NodeId, reason string) WorkflowState {
	return WorkflowState{Kind: StatePaused, CurrentNode: current, Reason: reason}
}

func Failed(err string) WorkflowState {
	return WorkflowState{Kind: StateFailed, Error: err}
}

// NodeExecutionResult records the outcome of one node execution, kept for
// execution statistics and audit trails.
type NodeExecutionResult struct {
	NodeID     ids.NodeId
	NodeName   string
	Success    bool
	Output     interface{}
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   int
}

func (r NodeExecutionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Stats aggregates execution statistics over a completed or in-flight run.
type Stats struct {
	NodesSucceeded int
	NodesFailed    int
	NodesSkipped   int
	TotalAttempts  int
	TotalDuration  time.Duration
}

// WorkflowContext is the shared, mutex-guarded state passed to every node
// during a single workflow run.
type WorkflowContext struct {
	mu sync.RWMutex

	workflowID ids.WorkflowId
	state      WorkflowState

	variables map[string]interface{}
	metadata  map[string]interface{}

	// node_outputs is kept as two views over the same values so lookups by
	// either id or display name stay O(1); WriteOutput keeps both in sync.
	outputsByID   map[ids.NodeId]interface{}
	outputsByName map[string]interface{}

	results []NodeExecutionResult
	stats   Stats

	startedAt   time.Time
	completedAt time.Time
}

// New creates an empty, Pending WorkflowContext for workflowID.
func New(workflowID ids.WorkflowId) *WorkflowContext {
	return &WorkflowContext{
		workflowID:    workflowID,
		state:         Pending(),
		variables:     make(map[string]interface{}),
		metadata:      make(map[string]interface{}),
		outputsByID:   make(map[ids.NodeId]interface{}),
		outputsByName: make(map[string]interface{}),
	}
}

func (c *WorkflowContext) WorkflowID() ids.WorkflowId {
	return c.workflowID
}

func (c *WorkflowContext) State() WorkflowState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *WorkflowContext) SetState(s WorkflowState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Kind == StateRunning && c.startedAt.IsZero() {
		c.startedAt = time.Now()
	}
	switch s.Kind {
	case StateCompleted, StateFailed, StateCancelled:
		c.completedAt = time.Now()
	}
	c.state = s
}

// CompletedAt returns the time the workflow reached a terminal state
// (Completed, Failed, or Cancelled), or the zero time if it hasn't yet.
func (c *WorkflowContext) CompletedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completedAt
}

// SetVariable stores a workflow-scoped variable.
func (c *WorkflowContext) SetVariable(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = value
}

// GetVariable reads a workflow-scoped variable.
func (c *WorkflowContext) GetVariable(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	return v, ok
}

// Variables returns a shallow copy of the full variable bag.
func (c *WorkflowContext) Variables() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

func (c *WorkflowContext) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

func (c *WorkflowContext) GetMetadata(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

// WriteOutput records a node's output under both its id and display name
// (if non-empty), keeping the two views in sync (spec.md §4.2 invariant).
func (c *WorkflowContext) WriteOutput(id ids.NodeId, name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputsByID[id] = value
	if name != "" {
		c.outputsByName[name] = value
	}
}

// OutputByID reads a node's output by id.
func (c *WorkflowContext) OutputByID(id ids.NodeId) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputsByID[id]
	return v, ok
}

// OutputByName reads a node's output by display name.
func (c *WorkflowContext) OutputByName(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputsByName[name]
	return v, ok
}

// OutputsByName returns a shallow copy of every node output keyed by
// display name, for callers (e.g. expression evaluation) that need the
// whole set at once rather than one lookup at a time.
func (c *WorkflowContext) OutputsByName() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.outputsByName))
	for k, v := range c.outputsByName {
		out[k] = v
	}
	return out
}

// RecordResult appends a node execution outcome and folds it into Stats.
func (c *WorkflowContext) RecordResult(r NodeExecutionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	c.stats.TotalAttempts += r.Attempts
	c.stats.TotalDuration += r.Duration()
	if r.Success {
		c.stats.NodesSucceeded++
	} else {
		c.stats.NodesFailed++
	}
}

// RecordSkipped increments the skipped-node counter for a node that was
// never run because an upstream dependency failed or was itself skipped.
func (c *WorkflowContext) RecordSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.NodesSkipped++
}

func (c *WorkflowContext) Results() []NodeExecutionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]NodeExecutionResult, len(c.results))
	copy(out, c.results)
	return out
}

func (c *WorkflowContext) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
