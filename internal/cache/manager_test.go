package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.DefaultTTL = time.Minute

	manager, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return mr, manager
}

func TestNewManager_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.MaxRetries = -1

	_, err := NewManager(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestManager_SetGetDelete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("recruitflow:k"))
	assert.Equal(t, time.Minute, mr.TTL("recruitflow:k"))

	got, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, manager.Delete(ctx, "k"))
	_, err = manager.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type research struct {
		Text string `json:"text"`
	}
	require.NoError(t, manager.SetJSON(ctx, "research:abc", research{Text: "market is hot"}, time.Hour))

	var out research
	require.NoError(t, manager.GetJSON(ctx, "research:abc", &out))
	assert.Equal(t, "market is hot", out.Text)

	assert.ErrorIs(t, manager.GetJSON(ctx, "research:missing", &out), ErrCacheMiss)
}

func TestManager_MarkOnce(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	first, err := manager.MarkOnce(ctx, "webhook:msg-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := manager.MarkOnce(ctx, "webhook:msg-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	mr.FastForward(2 * time.Hour)
	again, err := manager.MarkOnce(ctx, "webhook:msg-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestManager_Lock(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	release, err := manager.Lock(ctx, "activation:c1", time.Minute)
	require.NoError(t, err)

	_, err = manager.Lock(ctx, "activation:c1", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release()
	assert.False(t, mr.Exists("recruitflow:lock:activation:c1"))

	release2, err := manager.Lock(ctx, "activation:c1", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestManager_LockReleaseKeepsForeignOwner(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	release, err := manager.Lock(ctx, "activation:c2", time.Minute)
	require.NoError(t, err)

	// 锁过期后被他人持有
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("recruitflow:lock:activation:c2", "someone-else"))

	release()
	got, err := mr.Get("recruitflow:lock:activation:c2")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	ctx := context.Background()
	_, err := manager.Get(ctx, "k")
	assert.Error(t, err)
	_, err = manager.MarkOnce(ctx, "k", time.Second)
	assert.Error(t, err)
	assert.Error(t, manager.Ping(ctx))
}

func TestHashKey(t *testing.T) {
	a, err := HashKey("research", "Senior Backend Engineer")
	require.NoError(t, err)
	b, err := HashKey("research", "Senior Backend Engineer")
	require.NoError(t, err)
	c, err := HashKey("research", "Staff Engineer")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "research:")
}
