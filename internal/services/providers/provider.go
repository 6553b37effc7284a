package providers

import (
	"context"
	"sort"

	"github.com/replygate/replygate/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Provider names as they appear in configuration, rate limiter quotas and
// circuit breaker keys.
const (
	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Provider generates a reply draft from an assembled prompt. Adapters wrap
// one upstream SDK each and normalize its output; they never fall back or
// retry across providers, that is the orchestrator's job.
type Provider interface {
	// Name returns the provider's configuration key.
	Name() string

	// Configured reports whether the adapter has what it needs to make
	// calls (an API key, or a local endpoint).
	Configured() bool

	// Local reports whether the provider runs on-host with no API quota.
	Local() bool

	// Generate produces a reply for the prompt. The context carries the
	// per-attempt deadline.
	Generate(ctx context.Context, prompt string, requestID string) (*models.ProviderOutput, error)
}

// BuildRegistry constructs an adapter for every known provider present in
// the configuration and returns them sorted by ascending priority. Entries
// that are present but unconfigured are kept: the orchestrator skips them at
// attempt time so a missing key degrades instead of failing startup.
func BuildRegistry(configs map[string]models.ProviderConfig) []Provider {
	var registry []Provider

	for name, cfg := range configs {
		var p Provider
		switch name {
		case ProviderGroq:
			p = NewGroq(cfg)
		case ProviderGemini:
			p = NewGemini(cfg)
		case ProviderAnthropic:
			p = NewAnthropic(cfg)
		case ProviderOllama:
			p = NewOllama(cfg)
		default:
			fiberlog.Warnf("ProviderRegistry: unknown provider %q in config, skipping", name)
			continue
		}

		if !p.Configured() {
			fiberlog.Warnf("ProviderRegistry: %s is not configured, it will be skipped at request time", name)
		}
		registry = append(registry, p)
	}

	sort.SliceStable(registry, func(i, j int) bool {
		return priorityOf(configs, registry[i].Name()) < priorityOf(configs, registry[j].Name())
	})

	names := make([]string, len(registry))
	for i, p := range registry {
		names[i] = p.Name()
	}
	fiberlog.Infof("ProviderRegistry: %d providers registered (order: %v)", len(registry), names)

	return registry
}

func priorityOf(configs map[string]models.ProviderConfig, name string) int {
	return configs[name].Priority
}
