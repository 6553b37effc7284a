package models

import "time"

// CircuitBreakerConfig holds the per-provider breaker thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold    int `yaml:"failure_threshold" json:"failure_threshold,omitzero"`
	ResetTimeoutMs      int `yaml:"reset_timeout_ms" json:"reset_timeout_ms,omitzero"`
	HalfOpenMaxAttempts int `yaml:"half_open_max_attempts" json:"half_open_max_attempts,omitzero"`
}

// WithDefaults fills unset fields with the stock thresholds.
func (c CircuitBreakerConfig) WithDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeoutMs <= 0 {
		c.ResetTimeoutMs = 60000
	}
	if c.HalfOpenMaxAttempts <= 0 {
		c.HalfOpenMaxAttempts = 3
	}
	return c
}

// ResetTimeout returns the OPEN cooldown as a duration.
func (c CircuitBreakerConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutMs) * time.Millisecond
}

// RateLimitConfig bounds request volume at three granularities over one
// fixed window.
type RateLimitConfig struct {
	PerUser  int `yaml:"per_user" json:"per_user,omitzero"`
	PerIP    int `yaml:"per_ip" json:"per_ip,omitzero"`
	Global   int `yaml:"global" json:"global,omitzero"`
	WindowMs int `yaml:"window_ms" json:"window_ms,omitzero"`
}

// WithDefaults fills unset fields with the stock limits.
func (c RateLimitConfig) WithDefaults() RateLimitConfig {
	if c.PerUser <= 0 {
		c.PerUser = 30
	}
	if c.PerIP <= 0 {
		c.PerIP = 100
	}
	if c.Global <= 0 {
		c.Global = 1000
	}
	if c.WindowMs <= 0 {
		c.WindowMs = 60000
	}
	return c
}

// Window returns the fixed window length as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}
