package breaker

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FailureThreshold != 5 || cfg.SuccessThreshold != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New(DefaultConfig())
	if b.CurrentState() != Closed {
		t.Fatalf("expected Closed, got %s", b.CurrentState())
	}
	if !b.Allow() {
		t.Fatal("closed breaker should allow requests")
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := Config{FailureThreshold: 3, SuccessThreshold: 1, RecoveryTimeout: time.Hour, FailureWindow: time.Minute}
	b := New(cfg)

	b.RecordFailure()
	b.RecordFailure()
	if b.CurrentState() != Closed {
		t.Fatal("should remain closed below threshold")
	}
	b.RecordFailure()
	if b.CurrentState() != Open {
		t.Fatalf("expected Open after %d failures, got %s", cfg.FailureThreshold, b.CurrentState())
	}
	if b.Allow() {
		t.Fatal("open breaker should not allow requests before recovery timeout")
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: 10 * time.Millisecond, FailureWindow: time.Minute}
	b := New(cfg)

	b.RecordFailure()
	if b.CurrentState() != Open {
		t.Fatal("expected Open after single failure at threshold 1")
	}

	time.Sleep(15 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected Allow to transition Open -> HalfOpen after recovery timeout")
	}
	if b.CurrentState() != HalfOpen {
		t.Fatalf("expected HalfOpen, got %s", b.CurrentState())
	}

	b.RecordSuccess()
	if b.CurrentState() != HalfOpen {
		t.Fatal("one success below SuccessThreshold=2 should stay HalfOpen")
	}
	b.RecordSuccess()
	if b.CurrentState() != Closed {
		t.Fatalf("expected Closed after %d consecutive successes, got %s", cfg.SuccessThreshold, b.CurrentState())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: 10 * time.Millisecond, FailureWindow: time.Minute}
	b := New(cfg)

	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	b.Allow() // transitions to HalfOpen

	b.RecordFailure()
	if b.CurrentState() != Open {
		t.Fatalf("a failure in HalfOpen should reopen, got %s", b.CurrentState())
	}
}

func TestBreakerFailureWindowPrunesOldFailures(t *testing.T) {
	cfg := Config{FailureThreshold: 3, SuccessThreshold: 1, RecoveryTimeout: time.Hour, FailureWindow: 10 * time.Millisecond}
	b := New(cfg)

	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.RecordFailure() // first two should have aged out of the window

	if b.CurrentState() != Closed {
		t.Fatalf("expected Closed since only 1 failure is within the window, got %s", b.CurrentState())
	}
}

func TestBreakerClone(t *testing.T) {
	b := New(DefaultConfig())
	b.RecordFailure()

	clone := b.Clone()
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()

	if clone.CurrentState() != Closed {
		t.Fatalf("clone should retain the state at clone time (Closed), got %s", clone.CurrentState())
	}
	if b.CurrentState() != Open {
		t.Fatalf("original should have opened after 5 total failures, got %s", b.CurrentState())
	}
}
