// Package retry implements the per-node retry policy: attempt budgets,
// exponential backoff with jitter, and error-class classification.
//
// The backoff shape is grounded in the teacher's graph/policy.go
// computeBackoff helper, generalized from a fixed "base*2^attempt" schedule
// to the spec's multiplier/max-delay/jitter-factor model.
package retry

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/ravel-run/agentgraph/errs"
)

// ErrorClass classifies an error for retry-eligibility purposes.
type ErrorClass string

const (
	ClassNetwork   ErrorClass = "NetworkError"
	ClassTimeout   ErrorClass = "TimeoutError"
	ClassRateLimit ErrorClass = "RateLimitError"
	ClassOther     ErrorClass = "Other"
)

// Policy configures retry attempts, backoff, and the retryable-error
// whitelist.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	Multiplier    float64
	MaxDelay      time.Duration
	JitterFactor  float64 // clamped to [0, 1]
	RetryableClasses map[ErrorClass]bool
}

// Disabled returns a policy with MaxAttempts == 1 (no retries).
func Disabled() Policy {
	return Policy{MaxAttempts: 1}
}

// Default returns a commonly useful policy: 3 attempts, 200ms initial
// delay doubling up to 5s, 20% jitter, retrying network/timeout/rate-limit
// errors.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		JitterFactor: 0.2,
		RetryableClasses: map[ErrorClass]bool{
			ClassNetwork:   true,
			ClassTimeout:   true,
			ClassRateLimit: true,
		},
	}
}

func (p Policy) clampJitter() float64 {
	j := p.JitterFactor
	if j < 0 {
		return 0
	}
	if j > 1 {
		return 1
	}
	return j
}

// CalculateDelay returns the delay before attempt n (1-indexed). Attempt 0
// always returns zero delay.
//
// delay(n) = min(initial * multiplier^(n-1), max) * (1 ± jitter)
func (p Policy) CalculateDelay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	raw := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	jitter := p.clampJitter()
	if jitter == 0 {
		return time.Duration(raw)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter timing, not security
	}
	// Uniform factor in [1-jitter, 1+jitter].
	factor := 1 - jitter + 2*jitter*rng.Float64()
	return time.Duration(raw * factor)
}

// ShouldRetry reports whether attempt (0-indexed, the attempt that just
// failed) is eligible for another try given err's classification.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if p.MaxAttempts <= 1 {
		return false
	}
	if attempt+1 >= p.MaxAttempts {
		return false
	}
	class := Classify(err)
	return p.RetryableClasses[class]
}

// Classify maps an error onto a RetryableErrorType per spec.md §7:
// a Network or WorkflowExecution error whose message contains
// "timeout"/"timed out" is TimeoutError, and any other Network or
// WorkflowExecution error is NetworkError; RateLimit maps to
// RateLimitError; everything else is Other.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	msg := strings.ToLower(err.Error())
	isTimeoutMsg := strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")

	var e *errs.Error
	if ae, ok := err.(*errs.Error); ok {
		e = ae
	}

	switch {
	case e != nil && e.Kind == errs.KindRateLimit:
		return ClassRateLimit
	case e != nil && e.Kind == errs.KindNetwork:
		if isTimeoutMsg {
			return ClassTimeout
		}
		return ClassNetwork
	case e != nil && e.Kind == errs.KindWorkflowExecution:
		if isTimeoutMsg {
			return ClassTimeout
		}
		return ClassNetwork
	default:
		return ClassOther
	}
}
