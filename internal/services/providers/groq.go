package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "llama-3.1-8b-instant"
	groqConfidence     = 0.92
)

// Groq talks to Groq's OpenAI-compatible chat completions endpoint.
type Groq struct {
	config      models.ProviderConfig
	clientCache *clientcache.Cache[*openai.Client]
}

func NewGroq(config models.ProviderConfig) *Groq {
	if config.BaseURL == "" {
		config.BaseURL = groqDefaultBaseURL
	}
	if config.Model == "" {
		config.Model = groqDefaultModel
	}
	return &Groq{
		config:      config,
		clientCache: clientcache.NewCache[*openai.Client](),
	}
}

func (g *Groq) Name() string     { return ProviderGroq }
func (g *Groq) Local() bool      { return false }
func (g *Groq) Configured() bool { return g.config.Configured() }

func (g *Groq) Generate(ctx context.Context, prompt string, requestID string) (*models.ProviderOutput, error) {
	client, err := g.client()
	if err != nil {
		return nil, err
	}

	fiberlog.Debugf("[%s] Groq: generating with model %s", requestID, g.config.Model)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(300),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return nil, models.NewProviderError(ProviderGroq, "chat completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, models.NewProviderError(ProviderGroq, "empty completion response", nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, models.NewProviderError(ProviderGroq, "completion contained no text", nil)
	}

	return &models.ProviderOutput{Text: text, Model: g.config.Model, Confidence: groqConfidence}, nil
}

func (g *Groq) client() (*openai.Client, error) {
	return g.clientCache.GetOrCreate(ProviderGroq, func() (*openai.Client, error) {
		if g.config.APIKey == "" {
			return nil, models.NewProviderError(ProviderGroq, "API key not configured", nil)
		}

		opts := []openaiOption.RequestOption{
			openaiOption.WithAPIKey(g.config.APIKey),
			openaiOption.WithBaseURL(g.config.BaseURL),
		}
		if timeout := g.config.Timeout(); timeout > 0 {
			opts = append(opts, openaiOption.WithHTTPClient(&http.Client{Timeout: timeout}))
		}

		fiberlog.Debugf("Groq: creating client (base URL: %s)", g.config.BaseURL)
		client := openai.NewClient(opts...)
		return &client, nil
	})
}
