// Package nodeexec implements one executor per graphmodel.NodeKind: agent,
// condition, transform, delay, and document_loader (spec.md §4.3).
//
// Grounded in the teacher's tool.Tool.Call(ctx, map[string]interface{})
// shape (graph/tool/http.go): node Config is an untyped JSON-shaped bag
// navigated defensively, with gjson promoted from the teacher's indirect
// dependency to do that navigation instead of hand-rolled type assertions.
package nodeexec

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/ravel-run/agentgraph/errs"
)

// Config wraps a node's raw Config map for structured, path-addressed
// access to its JSON-shaped settings.
type Config struct {
	raw  map[string]interface{}
	json []byte
}

// NewConfig marshals raw once so repeated gjson lookups don't re-encode.
func NewConfig(raw map[string]interface{}) Config {
	data, _ := json.Marshal(raw)
	return Config{raw: raw, json: data}
}

// ConfigString reads a required string field at path.
func (c Config) ConfigString(path string) (string, error) {
	r := gjson.GetBytes(c.json, path)
	if !r.Exists() {
		return "", errs.Validation("config missing required field %q", path)
	}
	return r.String(), nil
}

// ConfigStringOr reads an optional string field, returning def if absent.
func (c Config) ConfigStringOr(path, def string) string {
	r := gjson.GetBytes(c.json, path)
	if !r.Exists() {
		return def
	}
	return r.String()
}

// ConfigFloat reads a required numeric field at path.
func (c Config) ConfigFloat(path string) (float64, error) {
	r := gjson.GetBytes(c.json, path)
	if !r.Exists() {
		return 0, errs.Validation("config missing required field %q", path)
	}
	return r.Float(), nil
}

// ConfigFloatOr reads an optional numeric field, returning def if absent.
func (c Config) ConfigFloatOr(path string, def float64) float64 {
	r := gjson.GetBytes(c.json, path)
	if !r.Exists() {
		return def
	}
	return r.Float()
}

// ConfigBool reads an optional boolean field, returning def if absent.
func (c Config) ConfigBool(path string, def bool) bool {
	r := gjson.GetBytes(c.json, path)
	if !r.Exists() {
		return def
	}
	return r.Bool()
}

// ConfigRaw returns the underlying map for callers that need full access
// (e.g. building an llm.Request from nested provider-specific fields).
func (c Config) ConfigRaw() map[string]interface{} {
	return c.raw
}
