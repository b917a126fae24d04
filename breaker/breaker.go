// Package breaker implements the per-agent circuit breaker state machine
// (Closed / Open / HalfOpen) described in spec.md §3/§4.3.
//
// Grounded in the teacher's retry/breaker shape (graph/policy.go computes
// backoff the same way this package computes recovery windows), generalized
// from a single retry concern into a standalone failure-window state
// machine keyed on ids.AgentId.
package breaker

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures a CircuitBreaker.
type Config struct {
	FailureThreshold int           // consecutive/windowed failures to open
	SuccessThreshold int           // consecutive successes in HalfOpen to close
	RecoveryTimeout  time.Duration // Open -> HalfOpen after this elapses
	FailureWindow    time.Duration // window within which failures count toward the threshold
}

// DefaultConfig returns sensible defaults: 5 failures within 30s opens the
// breaker, a 30s recovery timeout, 2 consecutive successes to close.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
		FailureWindow:    30 * time.Second,
	}
}

// Breaker is a single circuit breaker instance. Safe for concurrent use.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	failureTimes    []time.Time
	consecutiveOK   int
	openedAt        time.Time
}

// New creates a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// Allow reports whether a request should be let through right now, and
// performs the Open -> HalfOpen transition as a side effect when the
// recovery timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if time.Since(b.openedAt) >= b.cfg.RecoveryTimeout {
			b.state = HalfOpen
			b.consecutiveOK = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful call, possibly closing the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.consecutiveOK++
		if b.consecutiveOK >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.failureTimes = nil
			b.consecutiveOK = 0
		}
	case Closed:
		b.pruneFailures(time.Now())
	}
}

// RecordFailure records a failed call, possibly opening the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case HalfOpen:
		b.state = Open
		b.openedAt = now
		b.consecutiveOK = 0
	case Closed:
		b.pruneFailures(now)
		b.failureTimes = append(b.failureTimes, now)
		if len(b.failureTimes) >= b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = now
			b.failureTimes = nil
		}
	}
}

// pruneFailures drops failure timestamps outside the configured window.
// Caller must hold b.mu.
func (b *Breaker) pruneFailures(now time.Time) {
	if b.cfg.FailureWindow <= 0 {
		return
	}
	kept := b.failureTimes[:0]
	for _, t := range b.failureTimes {
		if now.Sub(t) <= b.cfg.FailureWindow {
			kept = append(kept, t)
		}
	}
	b.failureTimes = kept
}

// CurrentState returns the current state. Does not perform timed transitions —
// call Allow for that.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Clone returns an independent copy of the breaker's current state,
// suitable for a point-in-time snapshot. The clone shares no state with b:
// later successes/failures recorded on either one do not affect the other.
// The Registry hands out the shared *Breaker itself, so callers that record
// outcomes do so on that instance and no writeback step exists.
func (b *Breaker) Clone() *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := &Breaker{
		cfg:           b.cfg,
		state:         b.state,
		consecutiveOK: b.consecutiveOK,
		openedAt:      b.openedAt,
	}
	cp.failureTimes = append(cp.failureTimes, b.failureTimes...)
	return cp
}
