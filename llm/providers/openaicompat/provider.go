// =============================================================================
// recruitflow OpenAI-Compatible Generator
// =============================================================================
// Chat-completions client shared by every OpenAI-compatible endpoint:
// OpenAI itself for text generation and Perplexity for market research.
// =============================================================================

package openaicompat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "openai", "perplexity").
	ProviderName string

	APIKey  string
	BaseURL string
	Model   string

	// Timeout is the HTTP client timeout. Defaults to 60s if zero.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// Temperature is sent only when non-nil.
	Temperature *float32

	HTTPClient *http.Client
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Citations []string `json:"citations,omitempty"`
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Content   string
	Model     string
	Citations []string
}

// Provider calls an OpenAI-compatible chat completions endpoint.
type Provider struct {
	cfg    Config
	client *httpjson.Client
	logger *zap.Logger
}

// New creates a Provider, applying defaults for empty fields.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai"
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	return &Provider{
		cfg: cfg,
		client: httpjson.New(httpjson.Config{
			Provider:   cfg.ProviderName,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Headers:    headers,
			HTTPClient: cfg.HTTPClient,
		}, logger),
		logger: logger.With(zap.String("component", "llm"), zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.cfg.ProviderName }

// Generate sends prompt as a single user message and returns the reply text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	c, err := p.Chat(ctx, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return c.Content, nil
}

// Chat sends messages and returns the first choice.
func (p *Provider) Chat(ctx context.Context, messages []Message) (*Completion, error) {
	req := chatRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: p.cfg.Temperature,
	}

	var resp chatResponse
	if err := p.client.Post(ctx, p.cfg.EndpointPath, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.ErrInvalidResponse, "completion has no choices").
			WithProvider(p.cfg.ProviderName)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	p.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("chars", len(content)),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)

	return &Completion{
		Content:   content,
		Model:     resp.Model,
		Citations: resp.Citations,
	}, nil
}
