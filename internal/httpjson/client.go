// Package httpjson is the shared JSON-over-HTTP transport for external providers.
// This package is internal and should not be imported by external projects.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/internal/tlsutil"
	"github.com/BaSui01/recruitflow/llm/retry"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🌐 JSON HTTP 客户端
// =============================================================================

// Config 外部服务客户端配置
type Config struct {
	// Provider 出现在错误与日志中的服务名
	Provider   string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RetryDelay 首次重试延迟，0 使用默认策略
	RetryDelay time.Duration
	// Headers 每个请求附带的固定请求头（鉴权等）
	Headers map[string]string
	// HTTPClient 可选，测试时注入
	HTTPClient *http.Client
}

// Client 带重试与错误归一化的 JSON 客户端
type Client struct {
	cfg     Config
	http    *http.Client
	retryer *retry.Retryer
	logger  *zap.Logger
}

// New 创建客户端
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = tlsutil.SecureHTTPClient(cfg.Timeout)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryDelay > 0 {
		policy.InitialDelay = cfg.RetryDelay
		policy.MaxDelay = cfg.RetryDelay * 8
	}

	log := logger.With(zap.String("provider", cfg.Provider))
	return &Client{
		cfg:     cfg,
		http:    hc,
		retryer: retry.New(policy, log),
		logger:  log,
	}
}

// Provider 返回服务名
func (c *Client) Provider() string { return c.cfg.Provider }

// Do 发送 JSON 请求并把 2xx 响应解码到 out（out 为 nil 时丢弃响应体）。
// 可重试的错误按退避策略重试。
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return types.NewError(types.ErrInvalidRequest, "failed to marshal request").
				WithProvider(c.cfg.Provider).WithCause(err)
		}
		payload = data
	}

	return c.retryer.Do(ctx, func(ctx context.Context) error {
		return c.once(ctx, method, path, payload, out)
	})
}

// Get 发送 GET 请求，query 可为 nil
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post 发送 POST 请求
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return types.NewError(types.ErrInvalidRequest, "failed to create request").
			WithProvider(c.cfg.Provider).WithCause(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return TransportError(c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("provider call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return MapHTTPError(c.cfg.Provider, resp.StatusCode, ReadErrorMessage(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrInvalidResponse, "failed to decode response").
			WithProvider(c.cfg.Provider).WithCause(err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// =============================================================================
// 🔧 错误映射
// =============================================================================

// MapHTTPError 将非 2xx 状态码映射为 UPSTREAM_ERROR，429 与 5xx 可重试
func MapHTTPError(provider string, status int, msg string) *types.Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return types.Upstream(provider, status, fmt.Sprintf("%s returned %d: %s", provider, status, msg))
}

// TransportError 归一化网络层错误：超时为 UPSTREAM_TIMEOUT，其余为 UPSTREAM_ERROR，均可重试。
// 调用方主动取消的上下文不重试。
func TransportError(provider string, err error) *types.Error {
	if errors.Is(err, context.Canceled) {
		return types.NewError(types.ErrUpstreamError, "request cancelled").
			WithProvider(provider).WithCause(err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrUpstreamTimeout, provider+" request timed out").
			WithProvider(provider).WithRetryable(true).WithCause(err)
	}
	return types.NewError(types.ErrUpstreamError, provider+" request failed").
		WithProvider(provider).WithRetryable(true).WithCause(err)
}

// ReadErrorMessage 读取响应体中的错误消息，优先解析 JSON 错误结构，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		var nested struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if len(errResp.Error) > 0 && json.Unmarshal(errResp.Error, &nested) == nil && nested.Message != "" {
			if nested.Type != "" {
				return fmt.Sprintf("%s (type: %s)", nested.Message, nested.Type)
			}
			return nested.Message
		}
		var plain string
		if len(errResp.Error) > 0 && json.Unmarshal(errResp.Error, &plain) == nil && plain != "" {
			return plain
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}

	return strings.TrimSpace(string(data))
}
