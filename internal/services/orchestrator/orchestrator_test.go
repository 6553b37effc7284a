package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/services/cache"
	"github.com/replygate/replygate/internal/services/prompt"
	"github.com/replygate/replygate/internal/services/providers"
	"github.com/replygate/replygate/internal/services/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name       string
	local      bool
	configured bool
	output     *models.ProviderOutput
	err        error
	calls      int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Local() bool      { return f.local }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Generate(ctx context.Context, promptText, requestID string) (*models.ProviderOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func newTestOrchestrator(t *testing.T, registry []providers.Provider, configs map[string]models.ProviderConfig, breakerCfg models.CircuitBreakerConfig) *Orchestrator {
	t.Helper()
	if configs == nil {
		configs = map[string]models.ProviderConfig{}
	}
	limiter := ratelimit.New(models.RateLimitConfig{}, configs)
	responseCache := cache.New(models.CacheConfig{}, nil)
	return New(registry, configs, breakerCfg, limiter, responseCache, prompt.NewBuilder(models.BusinessConfig{}))
}

func TestHealthyPathCallsOnlyFirstProvider(t *testing.T) {
	first := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "The FX3 is available.", Model: "llama-3.1-8b-instant", Confidence: 0.92}}
	second := &fakeProvider{name: "gemini", configured: true, output: &models.ProviderOutput{Text: "other", Model: "gemini-1.5-flash", Confidence: 0.9}}

	o := newTestOrchestrator(t, []providers.Provider{first, second}, nil, models.CircuitBreakerConfig{})

	result := o.GenerateResponse(context.Background(), "Is the FX3 available to rent next weekend for my shoot in the city?", models.GenerationContext{Tone: models.ToneProfessional}, "req-1")

	require.True(t, result.Success)
	assert.Equal(t, "The FX3 is available.", result.Text)
	assert.Equal(t, "llama-3.1-8b-instant", result.Model)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.False(t, result.FromCache)
	assert.False(t, result.IsFallback)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestRepeatRequestServedFromCache(t *testing.T) {
	p := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "Hello!", Model: "llama-3.1-8b-instant", Confidence: 0.92}}
	o := newTestOrchestrator(t, []providers.Provider{p}, nil, models.CircuitBreakerConfig{})
	ctx := context.Background()
	genCtx := models.GenerationContext{Tone: models.TonePersonal}

	first := o.GenerateResponse(ctx, "hey, quick question about the weekend", genCtx, "req-1")
	second := o.GenerateResponse(ctx, "hey, quick question about the weekend", genCtx, "req-2")

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, p.calls)
}

func TestTotalFailureReturnsTemplate(t *testing.T) {
	failing := &fakeProvider{name: "groq", configured: true, err: errors.New("upstream down")}
	o := newTestOrchestrator(t, []providers.Provider{failing}, nil, models.CircuitBreakerConfig{})

	result := o.GenerateResponse(context.Background(), "are you open tomorrow", models.GenerationContext{Tone: models.ToneProfessional}, "req-1")

	require.True(t, result.Success)
	assert.True(t, result.IsFallback)
	assert.Equal(t, "template", result.Model)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
	assert.Equal(t, TemplateReply(models.ToneProfessional), result.Text)
}

func TestTemplateReplyIsDeterministicPerTone(t *testing.T) {
	assert.Equal(t, TemplateReply(models.ToneProfessional), TemplateReply(models.ToneProfessional))
	assert.Equal(t, TemplateReply(models.TonePersonal), TemplateReply(models.TonePersonal))
	assert.NotEqual(t, TemplateReply(models.ToneProfessional), TemplateReply(models.TonePersonal))
}

func TestOpenBreakerSkipsProvider(t *testing.T) {
	failing := &fakeProvider{name: "groq", configured: true, err: errors.New("upstream down")}
	healthy := &fakeProvider{name: "gemini", configured: true, output: &models.ProviderOutput{Text: "ok", Model: "gemini-1.5-flash", Confidence: 0.9}}

	o := newTestOrchestrator(t, []providers.Provider{failing, healthy},
		map[string]models.ProviderConfig{"groq": {}, "gemini": {}},
		models.CircuitBreakerConfig{FailureThreshold: 2})
	ctx := context.Background()
	genCtx := models.GenerationContext{Tone: models.ToneProfessional}

	// Distinct messages so the cache never short-circuits the chain.
	o.GenerateResponse(ctx, "first unique question about lighting rigs for studio work", genCtx, "req-1")
	o.GenerateResponse(ctx, "second unique question about gimbal balancing for a mirrorless body", genCtx, "req-2")
	assert.Equal(t, 2, failing.calls)

	o.GenerateResponse(ctx, "third unique question about renting a field monitor for outdoors", genCtx, "req-3")
	assert.Equal(t, 2, failing.calls, "open breaker should skip the failing provider")
	assert.Equal(t, 3, healthy.calls)
}

func TestUnconfiguredProviderSkipped(t *testing.T) {
	unconfigured := &fakeProvider{name: "anthropic", configured: false}
	healthy := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "ok", Model: "llama-3.1-8b-instant", Confidence: 0.92}}

	o := newTestOrchestrator(t, []providers.Provider{unconfigured, healthy}, nil, models.CircuitBreakerConfig{})

	result := o.GenerateResponse(context.Background(), "what cine lenses do you carry in stock these days", models.GenerationContext{Tone: models.ToneProfessional}, "req-1")

	assert.Equal(t, 0, unconfigured.calls)
	assert.Equal(t, "ok", result.Text)
}

func TestExhaustedQuotaSkipsProvider(t *testing.T) {
	quotaBound := &fakeProvider{name: "gemini", configured: true, output: &models.ProviderOutput{Text: "gemini says", Model: "gemini-1.5-flash", Confidence: 0.9}}
	backup := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "groq says", Model: "llama-3.1-8b-instant", Confidence: 0.92}}

	configs := map[string]models.ProviderConfig{
		"gemini": {Quota: models.QuotaConfig{Limit: 1, ResetInterval: "1m"}},
		"groq":   {},
	}
	o := newTestOrchestrator(t, []providers.Provider{quotaBound, backup}, configs, models.CircuitBreakerConfig{})
	ctx := context.Background()
	genCtx := models.GenerationContext{Tone: models.ToneProfessional}

	first := o.GenerateResponse(ctx, "long enough question about booking the cinema camera for a documentary across two cities", genCtx, "req-1")
	assert.Equal(t, "gemini says", first.Text)

	second := o.GenerateResponse(ctx, "another long question comparing nothing, about reserving lighting and grip equipment for an event", genCtx, "req-2")
	assert.Equal(t, "groq says", second.Text)
	assert.Equal(t, 1, quotaBound.calls)
}

func TestSimpleMessagesPromoteLocalProvider(t *testing.T) {
	remote := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "remote", Model: "llama-3.1-8b-instant", Confidence: 0.92}}
	local := &fakeProvider{name: "ollama", configured: true, local: true, output: &models.ProviderOutput{Text: "local", Model: "llama3.2:3b", Confidence: 0.85}}

	o := newTestOrchestrator(t, []providers.Provider{remote, local}, nil, models.CircuitBreakerConfig{})

	result := o.GenerateResponse(context.Background(), "thanks!", models.GenerationContext{Tone: models.TonePersonal}, "req-1")

	assert.Equal(t, "local", result.Text)
	assert.Equal(t, 0, remote.calls)
}

func TestStatsAndReset(t *testing.T) {
	p := &fakeProvider{name: "groq", configured: true, output: &models.ProviderOutput{Text: "ok", Model: "llama-3.1-8b-instant", Confidence: 0.92}}
	o := newTestOrchestrator(t, []providers.Provider{p}, nil, models.CircuitBreakerConfig{})
	ctx := context.Background()
	genCtx := models.GenerationContext{Tone: models.ToneProfessional}

	o.GenerateResponse(ctx, "a reasonably sized question about the studio space rental rates", genCtx, "req-1")
	o.GenerateResponse(ctx, "a reasonably sized question about the studio space rental rates", genCtx, "req-2")

	stats := o.Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, "50.00%", stats.CacheHitRate)
	assert.Equal(t, int64(1), stats.ProviderUsage["groq"])

	o.ResetStats()
	stats = o.Stats()
	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Empty(t, stats.ProviderUsage)
}

func TestInvalidToneDefaultsToProfessional(t *testing.T) {
	failing := &fakeProvider{name: "groq", configured: true, err: errors.New("down")}
	o := newTestOrchestrator(t, []providers.Provider{failing}, nil, models.CircuitBreakerConfig{})

	result := o.GenerateResponse(context.Background(), "hello there", models.GenerationContext{Tone: "shouty"}, "req-1")
	assert.Equal(t, TemplateReply(models.ToneProfessional), result.Text)
}
