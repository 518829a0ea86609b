package types

import "fmt"

// =============================================================================
// 📋 状态枚举
// =============================================================================

// ActivationStatus is the outreach state of a campaign.
type ActivationStatus string

const (
	ActivationNotStarted ActivationStatus = "not_started"
	ActivationRunning    ActivationStatus = "running"
	ActivationPaused     ActivationStatus = "paused"
)

// Valid reports whether s is a known activation status.
func (s ActivationStatus) Valid() bool {
	switch s {
	case ActivationNotStarted, ActivationRunning, ActivationPaused:
		return true
	default:
		return false
	}
}

// AgentStatus is the conversation state of a per-candidate agent.
type AgentStatus string

const (
	AgentActive     AgentStatus = "active"
	AgentScheduling AgentStatus = "scheduling"
	AgentCompleted  AgentStatus = "completed"
	AgentStopped    AgentStatus = "stopped"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentActive, AgentScheduling, AgentCompleted, AgentStopped:
		return true
	default:
		return false
	}
}

// Terminal 终态不再产生自动回复
func (s AgentStatus) Terminal() bool {
	switch s {
	case AgentCompleted, AgentStopped:
		return true
	case AgentActive, AgentScheduling:
		return false
	default:
		return false
	}
}

// StopReason records why an agent entered the stopped state.
type StopReason string

const (
	StopNone     StopReason = ""
	StopSafeWord StopReason = "safe_word"
	StopRejected StopReason = "rejected"
	StopAccepted StopReason = "accepted"
	StopManual   StopReason = "manual"
)

// CandidateStatus is the recruiting state of a candidate.
type CandidateStatus string

const (
	CandidateNew      CandidateStatus = ""
	CandidateAccepted CandidateStatus = "accepted"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingPending   MeetingStatus = "pending"
	MeetingActive    MeetingStatus = "active"
	MeetingCompleted MeetingStatus = "completed"
)

// Valid reports whether s is a known meeting status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingPending, MeetingActive, MeetingCompleted:
		return true
	default:
		return false
	}
}

func (s MeetingStatus) rank() int {
	switch s {
	case MeetingPending:
		return 0
	case MeetingActive:
		return 1
	case MeetingCompleted:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether the lifecycle may move from s to next.
// Transitions only move forward; pending may skip straight to completed.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	from, to := s.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// ValidateMeetingTransition returns an INVALID_TRANSITION error when the move is not allowed.
func ValidateMeetingTransition(from, to MeetingStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return NewError(ErrInvalidTransition, fmt.Sprintf("meeting cannot move from %q to %q", from, to))
}
