package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes structured event output to a writer, in text or JSON
// mode. Grounded in the teacher's emit.LogEmitter (graph/emit/log.go).
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	nodeID := event.NodeID.String()
	if event.NodeID.IsZero() {
		nodeID = ""
	}
	agentID := event.AgentID.String()
	if event.AgentID.IsZero() {
		agentID = ""
	}

	if l.jsonMode {
		data, err := json.Marshal(struct {
			WorkflowID string                 `json:"workflow_id"`
			NodeID     string                 `json:"node_id,omitempty"`
			AgentID    string                 `json:"agent_id,omitempty"`
			Msg        string                 `json:"msg"`
			Meta       map[string]interface{} `json:"meta,omitempty"`
		}{
			WorkflowID: event.WorkflowID.String(),
			NodeID:     nodeID,
			AgentID:    agentID,
			Msg:        event.Msg,
			Meta:       event.Meta,
		})
		if err != nil {
			return
		}
		fmt.Fprintln(l.writer, string(data))
		return
	}

	fmt.Fprintf(l.writer, "[%s] workflow=%s node=%s %v\n", event.Msg, event.WorkflowID, nodeID, event.Meta)
}
