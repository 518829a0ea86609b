// Package factory builds the configured llm.Generator by provider name.
// It imports the provider sub-packages so that the llm package does not.
package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/llm/circuitbreaker"
	"github.com/BaSui01/recruitflow/llm/providers/gemini"
	"github.com/BaSui01/recruitflow/llm/providers/openaicompat"
)

// NewGenerator creates a Generator from cfg behind a circuit breaker.
//
// Supported providers: openai (any OpenAI-compatible endpoint), gemini.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gen, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	breaker := circuitbreaker.New(cfg.Provider, circuitbreaker.Config{
		Threshold:    cfg.BreakerThreshold,
		ResetTimeout: cfg.BreakerReset,
	}, logger)
	return circuitbreaker.Guard(gen, breaker), nil
}

func newProvider(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return openaicompat.New(openaicompat.Config{
			ProviderName: "openai",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		}, logger), nil

	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    geminiBaseURL(cfg.BaseURL),
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// The OpenAI default base URL is meaningless for Gemini.
func geminiBaseURL(base string) string {
	if base == config.DefaultLLMConfig().BaseURL {
		return ""
	}
	return base
}
