package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/services/cache"
	"github.com/replygate/replygate/internal/services/circuitbreaker"
	"github.com/replygate/replygate/internal/services/classify"
	"github.com/replygate/replygate/internal/services/prompt"
	"github.com/replygate/replygate/internal/services/providers"
	"github.com/replygate/replygate/internal/services/ratelimit"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	fallbackModel      = "template"
	fallbackConfidence = 0.5

	fallbackProfessional = "Thank you for your message. I'll review this and get back to you shortly with the information you need."
	fallbackPersonal     = "Hey! Thanks for reaching out. Let me check on that and get back to you soon! \U0001F60A"
)

// Orchestrator runs the full generation pipeline for one draft: cache
// lookup, classification, prompt assembly, the provider fallback chain, and
// the template reply of last resort. It never returns an error to the
// caller; total provider failure degrades to the template.
type Orchestrator struct {
	registry []providers.Provider
	configs  map[string]models.ProviderConfig
	breakers map[string]*circuitbreaker.CircuitBreaker
	limiter  *ratelimit.Limiter
	cache    *cache.ResponseCache
	prompts  *prompt.Builder

	// Pluggable so tests can pin classification outcomes.
	classifyComplexity func(string) models.Complexity
	detectContext      func(string) models.BusinessContext

	mu            sync.Mutex
	totalRequests int64
	cacheHits     int64
	errorCount    int64
	providerUsage map[string]int64

	now func() time.Time
}

// New wires the pipeline. One circuit breaker is created per registered
// provider.
func New(
	registry []providers.Provider,
	configs map[string]models.ProviderConfig,
	breakerCfg models.CircuitBreakerConfig,
	limiter *ratelimit.Limiter,
	responseCache *cache.ResponseCache,
	builder *prompt.Builder,
) *Orchestrator {
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(registry))
	for _, p := range registry {
		breakers[p.Name()] = circuitbreaker.New(p.Name(), breakerCfg)
	}

	return &Orchestrator{
		registry:           registry,
		configs:            configs,
		breakers:           breakers,
		limiter:            limiter,
		cache:              responseCache,
		prompts:            builder,
		classifyComplexity: classify.Complexity,
		detectContext:      classify.DetectBusinessContext,
		providerUsage:      make(map[string]int64),
		now:                time.Now,
	}
}

// GenerateResponse drafts a reply for the message. The result is always
// usable: a cached reply, a provider reply, or the tone's template.
func (o *Orchestrator) GenerateResponse(ctx context.Context, message string, genCtx models.GenerationContext, requestID string) *models.GenerationResult {
	start := o.now()

	tone := genCtx.Tone
	if !tone.Valid() {
		tone = models.ToneProfessional
	}
	genCtx.Tone = tone

	o.mu.Lock()
	o.totalRequests++
	o.mu.Unlock()

	key := cache.Key(tone, message)
	if entry := o.cache.Get(ctx, key); entry != nil {
		o.mu.Lock()
		o.cacheHits++
		o.mu.Unlock()

		fiberlog.Infof("[%s] Orchestrator: served from cache (model: %s)", requestID, entry.Model)
		return &models.GenerationResult{
			Success:      true,
			Text:         entry.Text,
			Model:        entry.Model,
			Confidence:   entry.Confidence,
			FromCache:    true,
			ResponseTime: o.elapsedMs(start),
		}
	}

	complexity := o.classifyComplexity(message)
	bizCtx := o.detectContext(message)
	fiberlog.Debugf("[%s] Orchestrator: complexity=%s context=%s", requestID, complexity, bizCtx.Type)

	promptText := o.prompts.Build(message, genCtx, bizCtx)

	for _, p := range o.attemptOrder(complexity) {
		out, err := o.attempt(ctx, p, promptText, requestID)
		if err != nil {
			continue
		}

		o.mu.Lock()
		o.providerUsage[p.Name()]++
		o.mu.Unlock()

		personalized := genCtx.SenderName != ""
		ttl := cache.DetermineTTL(out.Text, personalized)
		o.cache.Set(ctx, key, models.CacheEntry{
			Text:       out.Text,
			Model:      out.Model,
			Confidence: out.Confidence,
		}, ttl)

		fiberlog.Infof("[%s] Orchestrator: %s succeeded (model: %s, %dms)",
			requestID, p.Name(), out.Model, o.elapsedMs(start))
		return &models.GenerationResult{
			Success:      true,
			Text:         out.Text,
			Model:        out.Model,
			Confidence:   out.Confidence,
			ResponseTime: o.elapsedMs(start),
		}
	}

	o.mu.Lock()
	o.errorCount++
	o.mu.Unlock()

	fiberlog.Warnf("[%s] Orchestrator: all providers failed, using template reply", requestID)
	return &models.GenerationResult{
		Success:      true,
		Text:         TemplateReply(tone),
		Model:        fallbackModel,
		Confidence:   fallbackConfidence,
		IsFallback:   true,
		ResponseTime: o.elapsedMs(start),
	}
}

// attempt runs one provider with its configured deadline. Unconfigured
// providers, exhausted quotas and open breakers skip silently so the chain
// moves on.
func (o *Orchestrator) attempt(ctx context.Context, p providers.Provider, promptText, requestID string) (*models.ProviderOutput, error) {
	name := p.Name()

	if !p.Configured() {
		fiberlog.Debugf("[%s] Orchestrator: %s not configured, skipping", requestID, name)
		return nil, models.NewConfigurationError(name)
	}

	if quota := o.limiter.CheckAPIQuota(name); !quota.Available {
		fiberlog.Warnf("[%s] Orchestrator: %s quota exhausted, skipping", requestID, name)
		return nil, models.NewQuotaError(name)
	}

	cb := o.breakers[name]
	if cb != nil && !cb.CanAttempt() {
		fiberlog.Warnf("[%s] Orchestrator: circuit breaker is OPEN for %s, skipping", requestID, name)
		return nil, models.NewCircuitBreakerError(name)
	}

	attemptCtx := ctx
	if timeout := o.configs[name].Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := p.Generate(attemptCtx, promptText, requestID)
	o.limiter.RecordProviderCall(name)

	if err != nil {
		if cb != nil {
			cb.RecordFailure()
		}
		fiberlog.Warnf("[%s] Orchestrator: %s failed: %v", requestID, name, err)
		return nil, err
	}
	if out == nil || out.Text == "" {
		if cb != nil {
			cb.RecordFailure()
		}
		return nil, models.NewProviderError(name, "empty generation output", nil)
	}

	if cb != nil {
		cb.RecordSuccess()
	}
	return out, nil
}

// attemptOrder returns first the providers in configured priority order,
// with local providers promoted to the front for simple messages: a short
// message does not need a paid API round trip.
func (o *Orchestrator) attemptOrder(complexity models.Complexity) []providers.Provider {
	if complexity != models.ComplexitySimple {
		return o.registry
	}

	ordered := make([]providers.Provider, 0, len(o.registry))
	for _, p := range o.registry {
		if p.Local() {
			ordered = append(ordered, p)
		}
	}
	for _, p := range o.registry {
		if !p.Local() {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// TemplateReply returns the canned reply for a tone. No I/O, cannot fail.
func TemplateReply(tone models.Tone) string {
	if tone == models.TonePersonal {
		return fallbackPersonal
	}
	return fallbackProfessional
}

// HealthStatus reports each provider with its breaker state, in attempt
// order.
func (o *Orchestrator) HealthStatus() []models.ProviderHealth {
	health := make([]models.ProviderHealth, 0, len(o.registry))
	for _, p := range o.registry {
		h := models.ProviderHealth{
			Name:       p.Name(),
			Configured: p.Configured(),
			Priority:   o.configs[p.Name()].Priority,
		}
		if cb := o.breakers[p.Name()]; cb != nil {
			snap := cb.Snapshot()
			h.CircuitState = snap.State.String()
			h.FailureCount = snap.FailureCount
			h.SuccessCount = snap.SuccessCount
			h.LastFailure = snap.LastFailure
		}
		health = append(health, h)
	}
	return health
}

// Stats reports the orchestrator's running counters.
func (o *Orchestrator) Stats() models.OrchestratorStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	usage := make(map[string]int64, len(o.providerUsage))
	for k, v := range o.providerUsage {
		usage[k] = v
	}

	stats := models.OrchestratorStats{
		TotalRequests: o.totalRequests,
		CacheHits:     o.cacheHits,
		ErrorCount:    o.errorCount,
		ProviderUsage: usage,
		CacheHitRate:  "0%",
		ErrorRate:     "0%",
	}
	if o.totalRequests > 0 {
		stats.CacheHitRate = fmt.Sprintf("%.2f%%", float64(o.cacheHits)/float64(o.totalRequests)*100)
		stats.ErrorRate = fmt.Sprintf("%.2f%%", float64(o.errorCount)/float64(o.totalRequests)*100)
	}
	return stats
}

// ResetStats zeroes the counters and closes every breaker.
func (o *Orchestrator) ResetStats() {
	o.mu.Lock()
	o.totalRequests, o.cacheHits, o.errorCount = 0, 0, 0
	o.providerUsage = make(map[string]int64)
	o.mu.Unlock()

	for _, cb := range o.breakers {
		cb.Reset()
	}
	fiberlog.Info("Orchestrator: stats and circuit breakers reset")
}

func (o *Orchestrator) elapsedMs(start time.Time) int64 {
	return o.now().Sub(start).Milliseconds()
}
