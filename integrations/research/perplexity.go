// Package research produces market research for a job description.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/cache"
	"github.com/BaSui01/recruitflow/llm/providers/openaicompat"
	"github.com/BaSui01/recruitflow/types"
)

const cacheTTL = 24 * time.Hour

// Cache stores research reports keyed by input hash. *cache.Manager satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheObserver receives hit/miss notifications. *metrics.Collector satisfies it.
type CacheObserver interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

type chatter interface {
	Chat(ctx context.Context, messages []openaicompat.Message) (*openaicompat.Completion, error)
}

// Report is one research result.
type Report struct {
	Content   string   `json:"content"`
	Model     string   `json:"model"`
	Citations []string `json:"citations,omitempty"`
}

// Perplexity runs market research through the sonar models.
type Perplexity struct {
	chat     chatter
	model    string
	cache    Cache
	observer CacheObserver
	logger   *zap.Logger
}

// Option configures Perplexity.
type Option func(*Perplexity)

// WithCache enables report caching. A nil cache is ignored.
func WithCache(c Cache) Option {
	return func(p *Perplexity) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithObserver records cache hits and misses.
func WithObserver(o CacheObserver) Option {
	return func(p *Perplexity) { p.observer = o }
}

// NewPerplexity creates a researcher from provider config.
func NewPerplexity(cfg config.ProviderConfig, logger *zap.Logger, opts ...Option) *Perplexity {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = "sonar-pro"
	}
	provider := openaicompat.New(openaicompat.Config{
		ProviderName: "perplexity",
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        model,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		EndpointPath: "/chat/completions",
	}, logger)
	return newPerplexity(provider, model, logger, opts...)
}

func newPerplexity(c chatter, model string, logger *zap.Logger, opts ...Option) *Perplexity {
	p := &Perplexity{
		chat:   c,
		model:  model,
		logger: logger.With(zap.String("component", "research")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Research returns the research report text for summary.
func (p *Perplexity) Research(ctx context.Context, summary string) (string, error) {
	r, err := p.Report(ctx, summary)
	if err != nil {
		return "", err
	}
	return r.Content, nil
}

// Report returns the full research report for summary.
func (p *Perplexity) Report(ctx context.Context, summary string) (*Report, error) {
	key, keyErr := cache.HashKey("research", p.model, summary)
	if p.cache != nil && keyErr == nil {
		var cached Report
		err := p.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			p.observe(true)
			p.logger.Debug("research cache hit", zap.String("key", key))
			return &cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			p.observe(false)
		default:
			p.logger.Warn("research cache read failed", zap.Error(err))
		}
	}

	c, err := p.chat.Chat(ctx, []openaicompat.Message{{Role: "user", Content: Prompt(summary)}})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Content) == "" {
		return nil, types.NewError(types.ErrInvalidResponse, "research returned no content").WithProvider("perplexity")
	}

	report := &Report{Content: c.Content, Model: c.Model, Citations: c.Citations}
	if report.Model == "" {
		report.Model = p.model
	}

	if p.cache != nil && keyErr == nil {
		if err := p.cache.SetJSON(ctx, key, report, cacheTTL); err != nil {
			p.logger.Warn("research cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

func (p *Perplexity) observe(hit bool) {
	if p.observer == nil {
		return
	}
	if hit {
		p.observer.RecordCacheHit("research")
	} else {
		p.observer.RecordCacheMiss("research")
	}
}

// Prompt builds the market research request for a job description.
func Prompt(summary string) string {
	return fmt.Sprintf(`Based on this job description information, provide additional market research and context including:
1. Latest skill trends and requirements for this role
2. Market demand and availability of candidates
3. Salary ranges and compensation trends
4. Top companies hiring for similar roles
5. Key certifications or qualifications that are currently in demand
6. Industry insights and growth areas

Job Description Information:
%s

Provide comprehensive research that would help a recruitment agency understand the market better. Format your response as a well-structured research report.`, summary)
}
