package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BaSui01/recruitflow/types"
)

func TestStream_FIFOAndTerminal(t *testing.T) {
	s := NewStream()
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	s.Emit(Frame{Step: StepProcessingPDF, Status: StatusProcessing})
	s.Emit(Frame{Step: StepProcessingPDF, Status: StatusCompleted, Timestamp: 42})
	s.Finish(Final{Success: false, Error: "boom"})
	s.Emit(Frame{Step: StepResearching, Status: StatusProcessing})
	s.Finish(Final{Success: true})

	ctx := context.Background()
	ev, ok := s.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), ev.Frame.Timestamp)

	ev, ok = s.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), ev.Frame.Timestamp)

	ev, ok = s.Next(ctx)
	require.True(t, ok)
	require.NotNil(t, ev.Final)
	assert.Equal(t, "boom", ev.Final.Error)

	_, ok = s.Next(ctx)
	assert.False(t, ok)
}

func TestStream_NextWaitsForProducer(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStream()
	got := make(chan []string, 1)
	go func() {
		var steps []string
		for {
			ev, ok := s.Next(context.Background())
			if !ok {
				break
			}
			if ev.Frame != nil {
				steps = append(steps, ev.Frame.Step)
			}
		}
		got <- steps
	}()

	for _, step := range Steps {
		s.Emit(Frame{Step: step, Status: StatusCompleted})
	}
	s.Finish(Final{Success: true})

	select {
	case steps := <-got:
		assert.Equal(t, Steps, steps)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestStream_NextHonoursContext(t *testing.T) {
	s := NewStream()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := s.Next(ctx)
	assert.False(t, ok)
}

func TestEvent_JSON(t *testing.T) {
	frame, err := json.Marshal(Event{Frame: &Frame{Step: StepSearching, Status: StatusProcessing, Timestamp: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"searching-linkedin","status":"processing","timestamp":1}`, string(frame))

	final, err := json.Marshal(Event{Final: &Final{Success: true, CampaignID: "c1", Candidates: []types.Profile{{Name: "Ada"}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"final","success":true,"campaignId":"c1","candidates":[{"name":"Ada"}]}`, string(final))

	failed, err := json.Marshal(Final{Error: "nope"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"final","success":false,"error":"nope"}`, string(failed))
}

func TestOutcomeHelpers(t *testing.T) {
	outcomes := []Outcome[int]{{Item: "a", Value: 1}, {Item: "b", Err: errors.New("x")}, {Item: "c", Value: 3}}
	assert.Equal(t, 2, Succeeded(outcomes))
	failed := Failed(outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Item)
}
