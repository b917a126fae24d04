package breaker

import (
	"sync"

	"github.com/ravel-run/agentgraph/ids"
)

// Registry is the read-mostly map of per-agent breakers shared by an
// Executor across all node tasks. Breakers are cloned out to callers and
// the authoritative instance is held here; in practice callers mutate the
// Breaker returned by GetOrCreate directly since *Breaker is itself
// mutex-guarded, so no writeback step is required — Clone exists for
// callers (e.g. tests) that want a point-in-time snapshot.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	breakers map[ids.AgentId]*Breaker
}

// NewRegistry creates an empty Registry using cfg for any breaker it must
// create lazily.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[ids.AgentId]*Breaker)}
}

// GetOrCreate returns the breaker for agent, creating one with the
// registry's configured defaults on first use.
func (r *Registry) GetOrCreate(agent ids.AgentId) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[agent]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[agent]; ok {
		return b
	}
	b = New(r.cfg)
	r.breakers[agent] = b
	return b
}
