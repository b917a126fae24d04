// Package emit provides observability event emission for workflow
// execution, adapted from the teacher's graph/emit package: same Emitter
// contract and Event shape, relabeled from run/step/node ids to this
// domain's WorkflowId/NodeId/AgentId.
package emit

import (
	"github.com/ravel-run/agentgraph/ids"
)

// Event is one observability event emitted during workflow execution.
type Event struct {
	WorkflowID ids.WorkflowId
	NodeID     ids.NodeId // zero value for workflow-level events
	AgentID    ids.AgentId // zero value unless the event concerns an agent node
	Msg        string
	Meta       map[string]interface{}
}

// Emitter receives observability events from workflow execution.
// Implementations must be safe for concurrent use and must not block
// workflow execution.
type Emitter interface {
	Emit(event Event)
}

// Common message labels, kept as constants so callers and tests don't
// depend on ad hoc strings.
const (
	MsgWorkflowStart    = "workflow_start"
	MsgWorkflowComplete = "workflow_complete"
	MsgWorkflowFailed   = "workflow_failed"
	MsgNodeStart        = "node_start"
	MsgNodeComplete     = "node_complete"
	MsgNodeFailed       = "node_failed"
	MsgNodeRetry        = "node_retry"
	MsgNodeSkipped      = "node_skipped"
	MsgBreakerOpened    = "breaker_opened"
	MsgBreakerClosed    = "breaker_closed"
	MsgRecorderError    = "recorder_error"
)
