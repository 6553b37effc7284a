package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/replygate/replygate/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.2:3b"
	ollamaConfidence     = 0.85
)

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama talks to a local Ollama daemon over its JSON API. No API key and no
// quota apply; when the configured model is not pulled the adapter retries
// once with the fallback model.
type Ollama struct {
	config     models.ProviderConfig
	baseURL    string
	httpClient *http.Client
}

func NewOllama(config models.ProviderConfig) *Ollama {
	if config.BaseURL == "" {
		config.BaseURL = ollamaDefaultBaseURL
	}
	if config.Model == "" {
		config.Model = ollamaDefaultModel
	}

	// Pooled transport: the daemon is long-lived and local, keep
	// connections warm across requests.
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Ollama{
		config:  config,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
		},
	}
}

func (o *Ollama) Name() string     { return ProviderOllama }
func (o *Ollama) Local() bool      { return true }
func (o *Ollama) Configured() bool { return o.config.Configured() }

func (o *Ollama) Generate(ctx context.Context, prompt string, requestID string) (*models.ProviderOutput, error) {
	fiberlog.Debugf("[%s] Ollama: generating with model %s", requestID, o.config.Model)

	out, err := o.generateWithModel(ctx, o.config.Model, prompt)
	if err == nil {
		return out, nil
	}

	if o.config.FallbackModel != "" && o.config.FallbackModel != o.config.Model {
		fiberlog.Warnf("[%s] Ollama: model %s failed (%v), retrying with fallback model %s",
			requestID, o.config.Model, err, o.config.FallbackModel)
		return o.generateWithModel(ctx, o.config.FallbackModel, prompt)
	}

	return nil, err
}

func (o *Ollama) generateWithModel(ctx context.Context, model, prompt string) (*models.ProviderOutput, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.7,
			NumPredict:  300,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, models.NewProviderError(ProviderOllama, "generate request failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fiberlog.Errorf("Ollama: error closing response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, models.NewProviderError(ProviderOllama,
			fmt.Sprintf("generate failed with status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var generated ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("error unmarshaling generate response: %w", err)
	}

	text := strings.TrimSpace(generated.Response)
	if text == "" {
		return nil, models.NewProviderError(ProviderOllama, "generation contained no text", nil)
	}

	return &models.ProviderOutput{Text: text, Model: model, Confidence: ollamaConfidence}, nil
}

// Close releases idle connections to the daemon.
func (o *Ollama) Close() {
	if transport, ok := o.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
