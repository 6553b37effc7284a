package models

import "time"

// QuotaConfig is a provider-specific call budget with its own reset cadence,
// independent of the generic rate limiter. A zero Limit means unlimited.
type QuotaConfig struct {
	Limit         int    `yaml:"limit" json:"limit,omitzero"`
	ResetInterval string `yaml:"reset_interval" json:"reset_interval,omitzero"` // e.g. "24h", "1m"
}

// ResetIntervalDuration parses the reset cadence, defaulting to 24h.
func (q QuotaConfig) ResetIntervalDuration() time.Duration {
	d, err := time.ParseDuration(q.ResetInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ProviderConfig holds the configuration for one generation backend.
// Immutable after startup.
type ProviderConfig struct {
	APIKey        string      `yaml:"api_key" json:"api_key,omitzero"`
	BaseURL       string      `yaml:"base_url" json:"base_url,omitzero"`
	Model         string      `yaml:"model" json:"model,omitzero"`
	FallbackModel string      `yaml:"fallback_model" json:"fallback_model,omitzero"` // local backends only
	Priority      int         `yaml:"priority" json:"priority,omitzero"`             // lower = preferred
	TimeoutMs     int         `yaml:"timeout_ms" json:"timeout_ms,omitzero"`
	Local         bool        `yaml:"local" json:"local,omitzero"` // no credential required, free to call
	Quota         QuotaConfig `yaml:"quota" json:"quota,omitzero"`
}

// Timeout returns the per-call timeout, falling back to a sane default.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutMs > 0 {
		return time.Duration(p.TimeoutMs) * time.Millisecond
	}
	return 10 * time.Second
}

// Configured reports whether the provider can be attempted at all. Local
// backends need no credential; hosted ones are skipped for the process
// lifetime when the key is absent.
func (p ProviderConfig) Configured() bool {
	return p.Local || p.APIKey != ""
}
