package providers

import (
	"context"
	"strings"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/utils/clientcache"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	anthropicDefaultModel = "claude-3-5-haiku-latest"
	anthropicConfidence   = 0.93
)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	config      models.ProviderConfig
	clientCache *clientcache.Cache[*anthropic.Client]
}

func NewAnthropic(config models.ProviderConfig) *Anthropic {
	if config.Model == "" {
		config.Model = anthropicDefaultModel
	}
	return &Anthropic{
		config:      config,
		clientCache: clientcache.NewCache[*anthropic.Client](),
	}
}

func (a *Anthropic) Name() string     { return ProviderAnthropic }
func (a *Anthropic) Local() bool      { return false }
func (a *Anthropic) Configured() bool { return a.config.Configured() }

func (a *Anthropic) Generate(ctx context.Context, prompt string, requestID string) (*models.ProviderOutput, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	fiberlog.Debugf("[%s] Anthropic: generating with model %s", requestID, a.config.Model)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: 300,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, models.NewProviderError(ProviderAnthropic, "messages request failed", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, models.NewProviderError(ProviderAnthropic, "message contained no text", nil)
	}

	return &models.ProviderOutput{Text: text, Model: a.config.Model, Confidence: anthropicConfidence}, nil
}

func (a *Anthropic) client() (*anthropic.Client, error) {
	return a.clientCache.GetOrCreate(ProviderAnthropic, func() (*anthropic.Client, error) {
		if a.config.APIKey == "" {
			return nil, models.NewProviderError(ProviderAnthropic, "API key not configured", nil)
		}

		opts := []anthropicOption.RequestOption{
			anthropicOption.WithAPIKey(a.config.APIKey),
		}
		if a.config.BaseURL != "" {
			opts = append(opts, anthropicOption.WithBaseURL(a.config.BaseURL))
		}

		fiberlog.Debug("Anthropic: creating client")
		client := anthropic.NewClient(opts...)
		return &client, nil
	})
}
