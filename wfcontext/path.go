package wfcontext

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ravel-run/agentgraph/ids"
)

// ResolvePathByName looks up a dotted path (e.g. "fetch.body.items.0.id")
// against the output of the node registered under name. The path is
// interpreted by gjson verbatim — no escaping syntax is offered, so a
// literal "." inside a key is indistinguishable from a path separator
// (spec.md §4.2 edge case: ambiguous on '.' in keys, resolved in favor of
// gjson's own path semantics).
//
// A missing node or a missing path is absence, not an error: ok is false.
func (c *WorkflowContext) ResolvePathByName(name, path string) (interface{}, bool) {
	raw, ok := c.OutputByName(name)
	if !ok {
		return nil, false
	}
	return resolve(raw, path)
}

// ResolvePathByID is the id-keyed counterpart of ResolvePathByName.
func (c *WorkflowContext) ResolvePathByID(id ids.NodeId, path string) (interface{}, bool) {
	raw, ok := c.OutputByID(id)
	if !ok {
		return nil, false
	}
	return resolve(raw, path)
}

func resolve(raw interface{}, path string) (interface{}, bool) {
	if path == "" {
		return raw, true
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// MergeOutput shallow-merges a value into current at a dotted path, using
// sjson for the write half of the same dotted-path addressing
// ResolvePathByName/ID read with.
func MergeOutput(current interface{}, path string, value interface{}) (interface{}, error) {
	data, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	updated, err := sjson.SetBytes(data, path, value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(updated, &out); err != nil {
		return nil, err
	}
	return out, nil
}
