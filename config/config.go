// Package config is an optional YAML loader for executor-level settings
// (concurrency limits, retry policy, circuit breaker thresholds, provider
// endpoints/credentials). The executor core never imports this package
// and never reads environment variables or files itself (spec.md §6) —
// Load exists purely as a convenience for callers who'd rather keep these
// knobs in a file than construct executor.Option values by hand.
package config

import (
	"io"
	"time"

	"go.yaml.in/yaml/v2"

	"github.com/ravel-run/agentgraph/breaker"
	"github.com/ravel-run/agentgraph/concurrency"
	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/executor"
	"github.com/ravel-run/agentgraph/retry"
)

// Config is the on-disk shape callers may load with Load. Every section is
// optional; an omitted section leaves the executor's own default in place
// (concurrency.HighThroughput, retry.Default, breaker.DefaultConfig). Within
// the retry and breaker sections a zero number or empty duration keeps that
// package default, except jitter_factor, which is always taken as written.
// A concurrency section replaces the default as written.
type Config struct {
	FailFast    *bool                 `yaml:"fail_fast"`
	Concurrency *ConcurrencyConfig    `yaml:"concurrency"`
	Retry       *RetryConfig          `yaml:"retry"`
	Breaker     *BreakerConfig        `yaml:"breaker"`
	Providers   map[string]Provider   `yaml:"providers"`
}

// ConcurrencyConfig mirrors concurrency.Config.
type ConcurrencyConfig struct {
	GlobalMax  int64           `yaml:"global_max"`
	PerNodeMax map[string]int64 `yaml:"per_node_max"`
}

// RetryConfig mirrors retry.Policy's numeric fields. RetryableClasses is
// left at retry.Default()'s set — a YAML file can tune backoff shape but
// not the error-class whitelist, since that whitelist is a correctness
// concern best kept in code.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay"`
	Multiplier   float64 `yaml:"multiplier"`
	MaxDelay     string  `yaml:"max_delay"`
	JitterFactor float64 `yaml:"jitter_factor"`
}

// BreakerConfig mirrors breaker.Config.
type BreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	RecoveryTimeout  string `yaml:"recovery_timeout"`
	FailureWindow    string `yaml:"failure_window"`
}

// Provider holds the endpoint/credential fields an external caller needs
// to construct an llm.LlmProvider — config itself never constructs one,
// since provider wiring is the caller's responsibility (spec.md §6).
type Provider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Load parses a YAML document into a Config. An empty document yields the
// zero Config.
func Load(r io.Reader) (Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return Config{}, errs.Config("config: decoding yaml: %v", err)
	}
	return c, nil
}

// ExecutorOptions converts the loaded settings into executor.Option
// values, ready to pass to executor.New. Unset sections are omitted so
// executor.DefaultOptions()'s own defaults apply.
func (c Config) ExecutorOptions() ([]executor.Option, error) {
	var opts []executor.Option

	if c.FailFast != nil {
		opts = append(opts, executor.WithFailFast(*c.FailFast))
	}
	if c.Concurrency != nil {
		opts = append(opts, executor.WithConcurrency(concurrency.Config{
			GlobalMax:  c.Concurrency.GlobalMax,
			PerNodeMax: c.Concurrency.PerNodeMax,
		}))
	}
	if c.Retry != nil {
		policy := retry.Default()
		if c.Retry.MaxAttempts > 0 {
			policy.MaxAttempts = c.Retry.MaxAttempts
		}
		if c.Retry.Multiplier > 0 {
			policy.Multiplier = c.Retry.Multiplier
		}
		policy.JitterFactor = c.Retry.JitterFactor
		if c.Retry.InitialDelay != "" {
			d, err := time.ParseDuration(c.Retry.InitialDelay)
			if err != nil {
				return nil, errs.Config("config: retry.initial_delay: %v", err)
			}
			policy.InitialDelay = d
		}
		if c.Retry.MaxDelay != "" {
			d, err := time.ParseDuration(c.Retry.MaxDelay)
			if err != nil {
				return nil, errs.Config("config: retry.max_delay: %v", err)
			}
			policy.MaxDelay = d
		}
		opts = append(opts, executor.WithDefaultRetry(policy))
	}
	if c.Breaker != nil {
		bc := breaker.DefaultConfig()
		if c.Breaker.FailureThreshold > 0 {
			bc.FailureThreshold = c.Breaker.FailureThreshold
		}
		if c.Breaker.SuccessThreshold > 0 {
			bc.SuccessThreshold = c.Breaker.SuccessThreshold
		}
		if c.Breaker.RecoveryTimeout != "" {
			d, err := time.ParseDuration(c.Breaker.RecoveryTimeout)
			if err != nil {
				return nil, errs.Config("config: breaker.recovery_timeout: %v", err)
			}
			bc.RecoveryTimeout = d
		}
		if c.Breaker.FailureWindow != "" {
			d, err := time.ParseDuration(c.Breaker.FailureWindow)
			if err != nil {
				return nil, errs.Config("config: breaker.failure_window: %v", err)
			}
			bc.FailureWindow = d
		}
		opts = append(opts, executor.WithBreakerConfig(bc))
	}

	return opts, nil
}
