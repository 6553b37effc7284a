package models

import "time"

// CacheConfig configures the two-tier response cache. The memory tier is
// always on; the Redis durable tier activates when RedisURL is set.
type CacheConfig struct {
	MaxEntries      int    `yaml:"max_entries" json:"max_entries,omitzero"`
	RedisURL        string `yaml:"redis_url" json:"redis_url,omitzero"`
	SweepIntervalMs int    `yaml:"sweep_interval_ms" json:"sweep_interval_ms,omitzero"`
}

// WithDefaults fills unset fields.
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 500
	}
	if c.SweepIntervalMs <= 0 {
		c.SweepIntervalMs = int((15 * time.Minute).Milliseconds())
	}
	return c
}

// SweepInterval returns the durable-tier prune cadence.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}
