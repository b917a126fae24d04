// Package concurrency implements the two-tier concurrency limiter: a
// global permit pool plus per-node-type pools, both of which a task must
// hold for its entire execution (spec.md §4.5).
//
// Grounded in the teacher's worker-pool/Frontier pattern (graph/engine.go
// runConcurrent, graph/scheduler.go): atomic counters for inflight/peak
// tracking, scoped acquisition released via defer on every exit path. The
// teacher uses one flat worker pool; this package generalizes that to two
// nested golang.org/x/sync/semaphore.Weighted pools (global + per-kind),
// which is the teacher's one actual use of that indirect dependency,
// promoted here to a direct one.
package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// TaskInfo describes the task requesting permits.
type TaskInfo struct {
	NodeType string
	TaskID   string
}

// Config is the global max plus a per-node-type override map.
type Config struct {
	GlobalMax  int64
	PerNodeMax map[string]int64
}

// HighThroughput favors maximum parallelism for I/O-bound agent-heavy
// workflows.
func HighThroughput() Config {
	return Config{
		GlobalMax: 64,
		PerNodeMax: map[string]int64{
			"agent":           32,
			"document_loader": 16,
		},
	}
}

// LowLatency favors a small number of fast-turnaround concurrent slots.
func LowLatency() Config {
	return Config{
		GlobalMax: 8,
		PerNodeMax: map[string]int64{
			"agent":           4,
			"document_loader": 4,
		},
	}
}

// MemoryOptimized favors a minimal concurrent footprint.
func MemoryOptimized() Config {
	return Config{
		GlobalMax: 4,
		PerNodeMax: map[string]int64{
			"agent":           2,
			"document_loader": 2,
		},
	}
}

// Stats is a point-in-time snapshot of limiter activity.
type Stats struct {
	ActiveGlobal       int64
	PeakGlobal         int64
	TotalAcquisitions  int64
	TotalWaitTime      time.Duration
	ActiveByNodeType   map[string]int64
}

// Limiter is the process-wide two-tier permit coordinator.
type Limiter struct {
	cfg Config

	global *semaphore.Weighted

	mu        sync.Mutex
	perKind   map[string]*semaphore.Weighted
	activeByKind map[string]int64

	activeGlobal      atomic.Int64
	peakGlobal        atomic.Int64
	totalAcquisitions atomic.Int64
	totalWaitNanos    atomic.Int64

	shuttingDown atomic.Bool
}

// New creates a Limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.GlobalMax <= 0 {
		cfg.GlobalMax = 16
	}
	return &Limiter{
		cfg:          cfg,
		global:       semaphore.NewWeighted(cfg.GlobalMax),
		perKind:      make(map[string]*semaphore.Weighted),
		activeByKind: make(map[string]int64),
	}
}

func (l *Limiter) kindSemaphore(kind string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sem, ok := l.perKind[kind]; ok {
		return sem
	}
	max := l.cfg.PerNodeMax[kind]
	if max <= 0 {
		max = l.cfg.GlobalMax
	}
	sem := semaphore.NewWeighted(max)
	l.perKind[kind] = sem
	return sem
}

// Permit represents a held global+per-kind permit pair. Release must be
// called exactly once, on every exit path (scoped acquisition).
type Permit struct {
	l       *Limiter
	kind    string
	sem     *semaphore.Weighted
	released atomic.Bool
}

// Release returns both permits held by p. Safe to call multiple times;
// only the first call has effect.
func (p *Permit) Release() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	p.sem.Release(1)
	p.l.global.Release(1)
	p.l.mu.Lock()
	p.l.activeByKind[p.kind]--
	p.l.mu.Unlock()
	p.l.activeGlobal.Add(-1)
}

// ErrShuttingDown is returned by Acquire once Shutdown has been called.
type shutdownError struct{}

func (shutdownError) Error() string { return "concurrency limiter is shutting down" }

var ErrShuttingDown error = shutdownError{}

// Acquire atomically acquires one global permit and one per-node-type
// permit for task. Blocks until both are available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context, task TaskInfo) (*Permit, error) {
	if l.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}

	start := time.Now()
	sem := l.kindSemaphore(task.NodeType)

	if err := l.global.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		l.global.Release(1)
		return nil, err
	}

	l.totalWaitNanos.Add(int64(time.Since(start)))
	l.totalAcquisitions.Add(1)

	active := l.activeGlobal.Add(1)
	for {
		peak := l.peakGlobal.Load()
		if active <= peak || l.peakGlobal.CompareAndSwap(peak, active) {
			break
		}
	}

	l.mu.Lock()
	l.activeByKind[task.NodeType]++
	l.mu.Unlock()

	return &Permit{l: l, kind: task.NodeType, sem: sem}, nil
}

// GetStats returns a read-only snapshot safe to call concurrently with
// Acquire/Release.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	byKind := make(map[string]int64, len(l.activeByKind))
	for k, v := range l.activeByKind {
		byKind[k] = v
	}
	l.mu.Unlock()

	return Stats{
		ActiveGlobal:      l.activeGlobal.Load(),
		PeakGlobal:        l.peakGlobal.Load(),
		TotalAcquisitions: l.totalAcquisitions.Load(),
		TotalWaitTime:     time.Duration(l.totalWaitNanos.Load()),
		ActiveByNodeType:  byKind,
	}
}

// GetAvailablePermits reports remaining global capacity and, for each
// configured node type, its remaining capacity.
func (l *Limiter) GetAvailablePermits() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := map[string]int64{
		"global": l.cfg.GlobalMax - l.activeGlobal.Load(),
	}
	for kind, max := range l.cfg.PerNodeMax {
		result[kind] = max - l.activeByKind[kind]
	}
	return result
}

// Utilization returns active/capacity*100 for the global pool; 0 if
// capacity is 0.
func (l *Limiter) Utilization() float64 {
	if l.cfg.GlobalMax <= 0 {
		return 0
	}
	return float64(l.activeGlobal.Load()) / float64(l.cfg.GlobalMax) * 100
}

// Shutdown marks the limiter as no longer accepting new acquisitions.
// In-flight permits are unaffected and must still be Released normally.
func (l *Limiter) Shutdown() {
	l.shuttingDown.Store(true)
}
