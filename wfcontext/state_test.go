package wfcontext

import (
	"testing"
	"time"

	"github.com/ravel-run/agentgraph/ids"
)

func TestNewStartsPending(t *testing.T) {
	wf := ids.NewWorkflowId()
	c := New(wf)
	if c.WorkflowID() != wf {
		t.Fatal("WorkflowID should match the id passed to New")
	}
	if c.State().Kind != StatePending {
		t.Fatalf("expected Pending state, got %s", c.State().Kind)
	}
}

func TestSetStateStampsStartedAtOnlyOnFirstRunning(t *testing.T) {
	c := New(ids.NewWorkflowId())
	node := ids.NewNodeId()

	c.SetState(Running(node))
	first := c.startedAt

	time.Sleep(time.Millisecond)
	c.SetState(Running(node))
	if c.startedAt != first {
		t.Fatal("startedAt should only be stamped on the first transition to Running")
	}
}

func TestSetStateStampsCompletedAtOnTerminalStates(t *testing.T) {
	for _, s := range []WorkflowState{Completed(), Failed("boom"), Cancelled()} {
		c := New(ids.NewWorkflowId())
		if !c.CompletedAt().IsZero() {
			t.Fatal("completedAt should be zero before any terminal transition")
		}
		c.SetState(s)
		if c.CompletedAt().IsZero() {
			t.Fatalf("expected completedAt to be stamped for terminal state %s", s.Kind)
		}
	}
}

func TestSetStateDoesNotStampCompletedAtForNonTerminalStates(t *testing.T) {
	c := New(ids.NewWorkflowId())
	node := ids.NewNodeId()
	c.SetState(Running(node))
	c.SetState(Paused(node, "waiting"))
	if !c.CompletedAt().IsZero() {
		t.Fatal("completedAt should stay zero for non-terminal states")
	}
}

func TestVariablesIsolatedCopy(t *testing.T) {
	c := New(ids.NewWorkflowId())
	c.SetVariable("x", 1)

	vars := c.Variables()
	vars["x"] = 2

	v, _ := c.GetVariable("x")
	if v != 1 {
		t.Fatal("Variables() should return a copy, not the live map")
	}
}

func TestWriteOutputDualView(t *testing.T) {
	c := New(ids.NewWorkflowId())
	node := ids.NewNodeId()

	c.WriteOutput(node, "summarizer", "result text")

	byID, ok := c.OutputByID(node)
	if !ok || byID != "result text" {
		t.Fatalf("expected output by id, got %v, %v", byID, ok)
	}
	byName, ok := c.OutputByName("summarizer")
	if !ok || byName != "result text" {
		t.Fatalf("expected output by name, got %v, %v", byName, ok)
	}
}

func TestWriteOutputEmptyNameSkipsNameView(t *testing.T) {
	c := New(ids.NewWorkflowId())
	node := ids.NewNodeId()
	c.WriteOutput(node, "", "anon")

	if _, ok := c.OutputByName(""); ok {
		t.Fatal("an empty display name should not register in the by-name view")
	}
	if v, ok := c.OutputByID(node); !ok || v != "anon" {
		t.Fatal("by-id lookup should still succeed")
	}
}

func TestRecordResultFoldsStats(t *testing.T) {
	c := New(ids.NewWorkflowId())
	now := time.Now()

	c.RecordResult(NodeExecutionResult{NodeName: "a", Success: true, Attempts: 1, StartedAt: now, FinishedAt: now.Add(time.Second)})
	c.RecordResult(NodeExecutionResult{NodeName: "b", Success: false, Attempts: 3, StartedAt: now, FinishedAt: now.Add(2 * time.Second)})
	c.RecordSkipped()

	stats := c.Stats()
	if stats.NodesSucceeded != 1 || stats.NodesFailed != 1 || stats.NodesSkipped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TotalAttempts != 4 {
		t.Fatalf("expected 4 total attempts, got %d", stats.TotalAttempts)
	}
	if stats.TotalDuration != 3*time.Second {
		t.Fatalf("expected 3s total duration, got %v", stats.TotalDuration)
	}
}

func TestResultsReturnsACopy(t *testing.T) {
	c := New(ids.NewWorkflowId())
	c.RecordResult(NodeExecutionResult{NodeName: "a"})

	results := c.Results()
	results[0].NodeName = "mutated"

	if c.Results()[0].NodeName == "mutated" {
		t.Fatal("Results() should return a defensive copy")
	}
}

func TestNodeExecutionResultDuration(t *testing.T) {
	now := time.Now()
	r := NodeExecutionResult{StartedAt: now, FinishedAt: now.Add(500 * time.Millisecond)}
	if r.Duration() != 500*time.Millisecond {
		t.Fatalf("expected 500ms duration, got %v", r.Duration())
	}
}
