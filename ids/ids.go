// Package ids provides the stable opaque identifiers used throughout the
// workflow runtime: AgentId, NodeId, and WorkflowId. All three share the
// same 128-bit UUID representation and derivation rules; they are kept as
// distinct Go types so the compiler catches cross-kind mix-ups.
package ids

import (
	"github.com/google/uuid"
)

// namespace UUIDs used for deterministic (namespaced-hash) derivation.
// Each id kind gets its own namespace so that deriving an AgentId and a
// NodeId from the same string intentionally yields different ids —
// collisions across namespaces are permitted, per the data model.
var (
	agentNamespace    = uuid.MustParse("6f6a6465-6167-4656-b174-6167656e7430")
	nodeNamespace     = uuid.MustParse("6f6a6465-6167-4e6f-b164-656964303030")
	workflowNamespace = uuid.MustParse("6f6a6465-6167-5766-b16c-6f7731303030")
)

// AgentId identifies an agent: the breaker key and the LLM-dispatch target.
type AgentId struct{ u uuid.UUID }

// NodeId identifies a node within a WorkflowGraph.
type NodeId struct{ u uuid.UUID }

// WorkflowId identifies a single Workflow definition and its executions.
type WorkflowId struct{ u uuid.UUID }

// NewAgentId generates a random AgentId.
func NewAgentId() AgentId { return AgentId{u: uuid.New()} }

// NewNodeId generates a random NodeId.
func NewNodeId() NodeId { return NodeId{u: uuid.New()} }

// NewWorkflowId generates a random WorkflowId.
func NewWorkflowId() WorkflowId { return WorkflowId{u: uuid.New()} }

// AgentIdFromName deterministically derives an AgentId from a user string.
// The same string always yields the same id.
func AgentIdFromName(name string) AgentId {
	return AgentId{u: uuid.NewSHA1(agentNamespace, []byte(name))}
}

// NodeIdFromName deterministically derives a NodeId from a user string.
func NodeIdFromName(name string) NodeId {
	return NodeId{u: uuid.NewSHA1(nodeNamespace, []byte(name))}
}

// WorkflowIdFromName deterministically derives a WorkflowId from a user string.
func WorkflowIdFromName(name string) WorkflowId {
	return WorkflowId{u: uuid.NewSHA1(workflowNamespace, []byte(name))}
}

func (a AgentId) String() string    { return a.u.String() }
func (n NodeId) String() string     { return n.u.String() }
func (w WorkflowId) String() string { return w.u.String() }

func (a AgentId) IsZero() bool    { return a.u == uuid.Nil }
func (n NodeId) IsZero() bool     { return n.u == uuid.Nil }
func (w WorkflowId) IsZero() bool { return w.u == uuid.Nil }

// AgentIdFromString parses a string back into an AgentId.
//
// Valid UUID strings round-trip exactly. Non-UUID strings are accepted too
// (deterministically hashed the same way AgentIdFromName would), so that
// callers that pass arbitrary stable strings as ids still get a consistent
// AgentId back across calls.
func AgentIdFromString(s string) (AgentId, error) {
	if u, err := uuid.Parse(s); err == nil {
		return AgentId{u: u}, nil
	}
	return AgentIdFromName(s), nil
}

// NodeIdFromString parses a string back into a NodeId. See AgentIdFromString.
func NodeIdFromString(s string) (NodeId, error) {
	if u, err := uuid.Parse(s); err == nil {
		return NodeId{u: u}, nil
	}
	return NodeIdFromName(s), nil
}

// WorkflowIdFromString parses a string back into a WorkflowId. See AgentIdFromString.
func WorkflowIdFromString(s string) (WorkflowId, error) {
	if u, err := uuid.Parse(s); err == nil {
		return WorkflowId{u: u}, nil
	}
	return WorkflowIdFromName(s), nil
}

// MarshalJSON implements json.Marshaler so ids serialize as plain strings.
func (a AgentId) MarshalJSON() ([]byte, error) { return marshalQuoted(a.u.String()) }
func (n NodeId) MarshalJSON() ([]byte, error)  { return marshalQuoted(n.u.String()) }
func (w WorkflowId) MarshalJSON() ([]byte, error) { return marshalQuoted(w.u.String()) }

func marshalQuoted(s string) ([]byte, error) {
	b := make([]byte, 0, len(s)+2)
	b = append(b, '"')
	b = append(b, s...)
	b = append(b, '"')
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AgentId) UnmarshalJSON(data []byte) error {
	id, err := AgentIdFromString(trimQuotes(data))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func (n *NodeId) UnmarshalJSON(data []byte) error {
	id, err := NodeIdFromString(trimQuotes(data))
	if err != nil {
		return err
	}
	*n = id
	return nil
}

func (w *WorkflowId) UnmarshalJSON(data []byte) error {
	id, err := WorkflowIdFromString(trimQuotes(data))
	if err != nil {
		return err
	}
	*w = id
	return nil
}

func trimQuotes(data []byte) string {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return string(data[1 : len(data)-1])
	}
	return string(data)
}
