package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetingStatus_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to MeetingStatus
		ok       bool
	}{
		{MeetingPending, MeetingActive, true},
		{MeetingActive, MeetingCompleted, true},
		{MeetingPending, MeetingCompleted, true},
		{MeetingCompleted, MeetingActive, false},
		{MeetingActive, MeetingPending, false},
		{MeetingCompleted, MeetingCompleted, false},
		{MeetingStatus("bogus"), MeetingActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, ValidateMeetingTransition(tt.from, tt.to))
		} else {
			assert.True(t, IsErrorCode(ValidateMeetingTransition(tt.from, tt.to), ErrInvalidTransition))
		}
	}
}

func TestAgentStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, AgentActive.Terminal())
	assert.False(t, AgentScheduling.Terminal())
	assert.True(t, AgentCompleted.Terminal())
	assert.True(t, AgentStopped.Terminal())
	assert.False(t, AgentStatus("other").Valid())
}

func TestActivationStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []ActivationStatus{ActivationNotStarted, ActivationRunning, ActivationPaused} {
		assert.True(t, s.Valid())
	}
	assert.False(t, ActivationStatus("archived").Valid())
}
