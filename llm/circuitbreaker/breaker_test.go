package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/types"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", cfg, zaptest.NewLogger(t))
	b.now = c.now
	return b, c
}

var errUpstream = types.Upstream("openai", 503, "overloaded")

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func succeed(context.Context) error { return nil }

func TestNew_Defaults(t *testing.T) {
	b := New("x", Config{HalfOpenMaxCalls: -1}, nil)
	assert.Equal(t, DefaultConfig().Threshold, b.cfg.Threshold)
	assert.Equal(t, DefaultConfig().ResetTimeout, b.cfg.ResetTimeout)
	assert.Equal(t, 1, b.cfg.HalfOpenMaxCalls)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(t, Config{Threshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Do(ctx, fail(errUpstream)), errUpstream)
	}
	assert.Equal(t, StateClosed, b.State())

	require.ErrorIs(t, b.Do(ctx, fail(errUpstream)), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.Same(t, ErrOpen, err)
	assert.False(t, called)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 503, e.Status())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(t, Config{Threshold: 2})

	_ = b.Do(ctx, fail(errUpstream))
	require.NoError(t, b.Do(ctx, succeed))
	_ = b.Do(ctx, fail(errUpstream))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(t, Config{Threshold: 1})

	_ = b.Do(ctx, fail(types.InvalidRequest("bad prompt")))
	assert.Equal(t, StateClosed, b.State())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_ = b.Do(cctx, fail(context.Canceled))
	assert.Equal(t, StateClosed, b.State())

	_ = b.Do(ctx, fail(errors.New("connection reset")))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpen(t *testing.T) {
	ctx := context.Background()
	var transitions []string
	b, c := newTestBreaker(t, Config{
		Threshold:    1,
		ResetTimeout: time.Minute,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Do(ctx, fail(errUpstream))
	c.advance(time.Minute)

	// the trial fails: open again for another full period
	_ = b.Do(ctx, fail(errUpstream))
	assert.Equal(t, StateOpen, b.State())
	c.advance(30 * time.Second)
	assert.Same(t, ErrOpen, b.Do(ctx, succeed))

	c.advance(30 * time.Second)
	require.NoError(t, b.Do(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half_open", "half_open->open",
		"open->half_open", "half_open->closed",
	}, transitions)
}

func TestBreaker_HalfOpenLimitsTrials(t *testing.T) {
	ctx := context.Background()
	b, c := newTestBreaker(t, Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenMaxCalls: 1})
	_ = b.Do(ctx, fail(errUpstream))
	c.advance(time.Second)

	inTrial := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(ctx, func(context.Context) error {
			close(inTrial)
			<-release
			return nil
		})
	}()
	<-inTrial
	assert.Same(t, ErrOpen, b.Do(ctx, succeed))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	calls := 0
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errUpstream
		}
		return "hello", nil
	})
	b, c := newTestBreaker(t, Config{Threshold: 1, ResetTimeout: time.Second})
	g := Guard(gen, b)

	_, err := g.Generate(ctx, "p")
	assert.ErrorIs(t, err, errUpstream)
	_, err = g.Generate(ctx, "p")
	assert.Same(t, ErrOpen, err)
	assert.Equal(t, 1, calls)

	c.advance(time.Second)
	out, err := g.Generate(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
