package resilience

import (
	"strings"
	"time"
)

// RetryPolicy bounds how one call is re-attempted.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// BreakerPolicy configures the per-operation circuit breaker.
type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// Config holds the default policies plus retry overrides keyed by operation
// family, the part of an operation name before the first dot
// ("ollama.evaluate" belongs to "ollama").
type Config struct {
	Retry    RetryPolicy
	Breaker  BreakerPolicy
	Families map[string]RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     400 * time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
		Families: map[string]RetryPolicy{
			// Generation is slow; keep the chain short.
			"ollama": {
				MaxAttempts:    2,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
				Multiplier:     2.0,
			},
		},
	}
}

// WithMaxAttempts caps every retry policy at attempts. Non-positive values
// leave the config unchanged.
func (c Config) WithMaxAttempts(attempts int) Config {
	if attempts <= 0 {
		return c
	}
	out := c
	out.Retry.MaxAttempts = attempts
	out.Families = make(map[string]RetryPolicy, len(c.Families))
	for family, policy := range c.Families {
		policy.MaxAttempts = min(policy.MaxAttempts, attempts)
		out.Families[family] = policy
	}
	return out
}

func (c Config) retryFor(operation string) RetryPolicy {
	family, _, _ := strings.Cut(operation, ".")
	if policy, ok := c.Families[family]; ok {
		return policy.normalize(c.Retry)
	}
	return c.Retry
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c
	out.Retry = c.Retry.normalize(def.Retry)
	out.Breaker = c.Breaker.normalize(def.Breaker)
	return out
}

func (p RetryPolicy) normalize(def RetryPolicy) RetryPolicy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = def.MaxAttempts
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = def.InitialBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = def.MaxBackoff
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.Multiplier < 1.0 {
		out.Multiplier = def.Multiplier
	}
	return out
}

func (p BreakerPolicy) normalize(def BreakerPolicy) BreakerPolicy {
	out := p
	if out.MinRequests == 0 {
		out.MinRequests = def.MinRequests
	}
	if out.FailureRatio <= 0 || out.FailureRatio > 1 {
		out.FailureRatio = def.FailureRatio
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenMaxCalls == 0 {
		out.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return out
}
