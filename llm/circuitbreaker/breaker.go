// Package circuitbreaker stops calling a failing upstream for a cool-down
// period. It guards the text generator so that a provider outage fails
// pipeline runs and webhook replies fast instead of queueing retries.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/types"
)

// State 熔断器状态
type State int

const (
	// StateClosed 正常放行
	StateClosed State = iota
	// StateOpen 熔断中，直接拒绝
	StateOpen
	// StateHalfOpen 试探性放行少量请求
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// 连续失败次数阈值
	Threshold int
	// Open -> HalfOpen 的等待时间
	ResetTimeout time.Duration
	// 半开状态下允许的试探请求数
	HalfOpenMaxCalls int
	// 状态变更回调，在持锁外同步调用
	OnStateChange func(from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// ErrOpen is returned without calling the upstream while the breaker is open.
var ErrOpen = types.NewError(types.ErrServiceUnavailable, "text generation is temporarily unavailable").
	WithRetryable(true)

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name   string
	cfg    Config
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
}

// New creates a Breaker; non-positive config values fall back to defaults.
func New(name string, cfg Config, logger *zap.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(zap.String("component", "circuit_breaker"), zap.String("breaker", name)),
	}
}

// Do runs fn unless the breaker is open. Only upstream failures count
// toward opening; caller cancellation and invalid requests do not.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(counts(ctx, err))
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) before() error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		from := b.transition(StateHalfOpen)
		b.trials = 1
		b.mu.Unlock()
		b.notify(from, StateHalfOpen)
		return nil
	case StateHalfOpen:
		if b.trials >= b.cfg.HalfOpenMaxCalls {
			b.mu.Unlock()
			return ErrOpen
		}
		b.trials++
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) after(failed bool) {
	b.mu.Lock()
	from, to := b.state, b.state
	switch {
	case !failed:
		b.failures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
			to = StateClosed
		}
	case b.state == StateHalfOpen:
		b.openedAt = b.now()
		b.transition(StateOpen)
		to = StateOpen
	default:
		b.failures++
		if b.state == StateClosed && b.failures >= b.cfg.Threshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
			to = StateOpen
		}
	}
	failures := b.failures
	b.mu.Unlock()

	if from != to {
		if to == StateOpen {
			b.logger.Warn("circuit opened", zap.Int("failures", failures), zap.Duration("reset_after", b.cfg.ResetTimeout))
		} else {
			b.logger.Info("circuit state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		}
		b.notify(from, to)
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) State {
	from := b.state
	b.state = to
	if to != StateHalfOpen {
		b.trials = 0
	}
	if to == StateClosed {
		b.failures = 0
	}
	return from
}

func (b *Breaker) notify(from, to State) {
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

func counts(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return false
	}
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest, types.ErrNotFound, types.ErrConflict:
		return false
	}
	return true
}
