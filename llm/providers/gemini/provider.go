package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/internal/tlsutil"
	"github.com/BaSui01/recruitflow/llm/retry"
	"github.com/BaSui01/recruitflow/types"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// Config Gemini 生成器配置
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Provider 基于 google.golang.org/genai 的文本生成器
type Provider struct {
	client  *genai.Client
	model   string
	retryer *retry.Retryer
	logger  *zap.Logger
}

// New 创建 Gemini 生成器
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, types.InvalidRequest("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cc.HTTPClient == nil {
		cc.HTTPClient = tlsutil.SecureHTTPClient(0)
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, types.NewError(types.ErrServiceUnavailable, "failed to create gemini client").WithCause(err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryDelay > 0 {
		policy.InitialDelay = cfg.RetryDelay
	}
	log := logger.With(zap.String("component", "llm"), zap.String("provider", providerName))

	return &Provider{
		client:  client,
		model:   cfg.Model,
		retryer: retry.New(policy, log),
		logger:  log,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return providerName }

// Generate implements llm.Generator.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	return retry.Do(ctx, p.retryer, func(ctx context.Context) (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
		if err != nil {
			return "", mapError(err)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", types.NewError(types.ErrInvalidResponse, "gemini returned no text").WithProvider(providerName)
		}
		p.logger.Debug("completion received", zap.String("model", p.model), zap.Int("chars", len(text)))
		return text, nil
	})
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return httpjson.MapHTTPError(providerName, apiErr.Code, apiErr.Message).WithCause(err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return httpjson.MapHTTPError(providerName, apiErrPtr.Code, apiErrPtr.Message).WithCause(err)
	}
	return httpjson.TransportError(providerName, err)
}
