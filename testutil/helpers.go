package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/internal/cache"
)

// TestContext returns a context cancelled at test cleanup or after 30s.
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回指定超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewCache starts an in-process redis and returns a cache.Manager bound to
// it. Keys carry the default "recruitflow:" prefix, so assertions on the
// returned server must include it.
func NewCache(t *testing.T) (*cache.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := cache.DefaultConfig()
	cfg.Addr = mr.Addr()
	m, err := cache.NewManager(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("cache manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, mr
}

// MustJSON 将值转换为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
