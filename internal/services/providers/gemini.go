package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

const (
	geminiDefaultModel = "gemini-1.5-flash"
	geminiConfidence   = 0.9
)

// Gemini talks to the Gemini API through the official SDK.
type Gemini struct {
	config      models.ProviderConfig
	clientCache *clientcache.Cache[*genai.Client]
}

func NewGemini(config models.ProviderConfig) *Gemini {
	if config.Model == "" {
		config.Model = geminiDefaultModel
	}
	return &Gemini{
		config:      config,
		clientCache: clientcache.NewCache[*genai.Client](),
	}
}

func (g *Gemini) Name() string     { return ProviderGemini }
func (g *Gemini) Local() bool      { return false }
func (g *Gemini) Configured() bool { return g.config.Configured() }

func (g *Gemini) Generate(ctx context.Context, prompt string, requestID string) (*models.ProviderOutput, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	fiberlog.Debugf("[%s] Gemini: generating with model %s", requestID, g.config.Model)

	resp, err := client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 300,
	})
	if err != nil {
		return nil, models.NewProviderError(ProviderGemini, "generate request failed", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, models.NewProviderError(ProviderGemini, "generation contained no text", nil)
	}

	return &models.ProviderOutput{Text: text, Model: g.config.Model, Confidence: geminiConfidence}, nil
}

func (g *Gemini) client(ctx context.Context) (*genai.Client, error) {
	return g.clientCache.GetOrCreate(ProviderGemini, func() (*genai.Client, error) {
		if g.config.APIKey == "" {
			return nil, models.NewProviderError(ProviderGemini, "API key not configured", nil)
		}

		fiberlog.Debug("Gemini: creating client")
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.config.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	})
}
