package models

import "time"

// Tone selects the writing style for a drafted reply.
type Tone string

const (
	ToneProfessional Tone = "professional"
	TonePersonal     Tone = "personal"
)

// Valid reports whether the tone is one of the supported values.
func (t Tone) Valid() bool {
	return t == ToneProfessional || t == TonePersonal
}

// Complexity buckets an incoming message by how much reasoning a reply needs.
// It biases provider ordering only; it never rejects a request.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// BusinessContext is the coarse intent detected from an incoming message,
// used to enrich the prompt with a suggested approach.
type BusinessContext struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Approach    string `json:"approach"`
}

// GenerationContext carries the caller-supplied context for one draft request.
type GenerationContext struct {
	Tone                Tone   `json:"tone"`
	SenderName          string `json:"sender_name,omitzero"`
	ConversationHistory string `json:"conversation_history,omitzero"`
}

// GenerationResult is the outcome of a draft request. Success is always true:
// total provider failure degrades to a template reply, it never surfaces as
// an error to the caller.
type GenerationResult struct {
	Success      bool    `json:"success"`
	Text         string  `json:"text"`
	Model        string  `json:"model"`
	Confidence   float64 `json:"confidence"`
	FromCache    bool    `json:"from_cache"`
	IsFallback   bool    `json:"is_fallback"`
	ResponseTime int64   `json:"response_time_ms"`
}

// ProviderOutput is what a single provider attempt yields.
type ProviderOutput struct {
	Text       string
	Model      string
	Confidence float64
}

// CacheEntry is a generated reply stored in the response cache.
type CacheEntry struct {
	Text       string    `json:"text"`
	Model      string    `json:"model"`
	Confidence float64   `json:"confidence"`
	CachedAt   time.Time `json:"cached_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the entry must no longer be served.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// ProviderHealth describes one provider for operational dashboards.
type ProviderHealth struct {
	Name         string     `json:"name"`
	Configured   bool       `json:"configured"`
	CircuitState string     `json:"circuit_state"`
	FailureCount int        `json:"failure_count"`
	SuccessCount int        `json:"success_count"`
	LastFailure  *time.Time `json:"last_failure,omitzero"`
	Priority     int        `json:"priority"`
}

// OrchestratorStats are the running counters exposed via the stats endpoint.
type OrchestratorStats struct {
	TotalRequests int64            `json:"total_requests"`
	CacheHits     int64            `json:"cache_hits"`
	CacheHitRate  string           `json:"cache_hit_rate"`
	ErrorCount    int64            `json:"error_count"`
	ErrorRate     string           `json:"error_rate"`
	ProviderUsage map[string]int64 `json:"provider_usage"`
}
