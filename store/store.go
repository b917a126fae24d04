// Package store persists the executor's per-node audit trail: every
// NodeExecutionResult a workflow run produces, plus terminal run state,
// for post-mortem inspection after the fact.
//
// The teacher's graph/store package is generic checkpoint/resume
// persistence (Store[S], SaveStep/LoadLatest/SaveCheckpointV2,
// idempotency keys, a transactional outbox) for resuming a workflow
// mid-execution — an explicit non-goal here (spec.md §5's "no
// workflow-level cancellation after execute is called; workflows run to
// terminal state" rules out resumption). What's kept is the
// shape — a narrow persistence interface plus in-memory/SQL-backed
// implementations — repurposed from "resume a run" to "record a run for
// audit", which is a real need every production orchestrator has and
// this spec's Executor doesn't otherwise address.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// ErrNotFound is returned when a requested workflow id has no recorded
// run.
var ErrNotFound = errors.New("not found")

// RunRecord is the terminal summary of one workflow execution.
type RunRecord struct {
	WorkflowID  ids.WorkflowId
	State       wfcontext.StateKind
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
	Stats       wfcontext.Stats
}

// Recorder persists node execution results and run summaries for audit.
// Implementations must be safe for concurrent use — the executor calls
// RecordResult from every node task's goroutine.
type Recorder interface {
	RecordResult(ctx context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) error
	RecordRun(ctx context.Context, run RunRecord) error
	ListResults(ctx context.Context, workflowID ids.WorkflowId) ([]wfcontext.NodeExecutionResult, error)
	GetRun(ctx context.Context, workflowID ids.WorkflowId) (RunRecord, error)
}

// MemRecorder is an in-memory Recorder, grounded in the teacher's
// mutex-guarded-map idiom (graph/store's in-memory test store) — useful
// for tests and for single-process workflows with no durability needs.
type MemRecorder struct {
	mu      sync.RWMutex
	results map[ids.WorkflowId][]wfcontext.NodeExecutionResult
	runs    map[ids.WorkflowId]RunRecord
}

func NewMemRecorder() *MemRecorder {
	return &MemRecorder{
		results: make(map[ids.WorkflowId][]wfcontext.NodeExecutionResult),
		runs:    make(map[ids.WorkflowId]RunRecord),
	}
}

func (m *MemRecorder) RecordResult(_ context.Context, workflowID ids.WorkflowId, result wfcontext.NodeExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[workflowID] = append(m.results[workflowID], result)
	return nil
}

func (m *MemRecorder) RecordRun(_ context.Context, run RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.WorkflowID] = run
	return nil
}

func (m *MemRecorder) ListResults(_ context.Context, workflowID ids.WorkflowId) ([]wfcontext.NodeExecutionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]wfcontext.NodeExecutionResult, len(m.results[workflowID]))
	copy(out, m.results[workflowID])
	return out, nil
}

func (m *MemRecorder) GetRun(_ context.Context, workflowID ids.WorkflowId) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[workflowID]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return r, nil
}
