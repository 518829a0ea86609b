package api

import (
	"time"

	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🎬 流水线
// =============================================================================

// PipelineStart is the first WebSocket message of a pipeline run. The
// document follows as a binary message.
type PipelineStart struct {
	CampaignName string `json:"campaignName"`
}

// =============================================================================
// 📋 活动
// =============================================================================

// CampaignList is the body of GET /api/campaigns.
type CampaignList struct {
	Campaigns []store.Campaign `json:"campaigns"`
}

// CampaignDetail is a campaign with everything attached to it.
type CampaignDetail struct {
	Campaign   store.Campaign    `json:"campaign"`
	Candidates []store.Candidate `json:"candidates"`
	Agents     []store.Agent     `json:"agents"`
}

// StatusResponse reports an activation status change.
type StatusResponse struct {
	Success          bool                   `json:"success"`
	ActivationStatus types.ActivationStatus `json:"activationStatus"`
}

// MeetingList is the body of GET /api/campaigns/{id}/meetings.
type MeetingList struct {
	Meetings []store.Meeting `json:"meetings"`
}

// =============================================================================
// ✉️ 邮件线程
// =============================================================================

// ThreadMessage is one message of a campaign thread.
type ThreadMessage struct {
	MessageID   string    `json:"messageId"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Content     string    `json:"content"`
	SentByAgent bool      `json:"sentByAgent"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Thread state as seen from the recruiter side.
const (
	ThreadActive  = "active"  // last word is the candidate's
	ThreadWaiting = "waiting" // waiting on the candidate
)

// ThreadView is one conversation between an agent mailbox and its candidate.
type ThreadView struct {
	ThreadID         string          `json:"threadId"`
	AgentID          string          `json:"agentId"`
	Subject          string          `json:"subject"`
	ParticipantName  string          `json:"participantName"`
	ParticipantEmail string          `json:"participantEmail"`
	MessageCount     int             `json:"messageCount"`
	LastMessageAt    time.Time       `json:"lastMessageAt"`
	Status           string          `json:"status"`
	Messages         []ThreadMessage `json:"messages"`
}

// ThreadList is the body of GET /api/campaigns/{id}/threads.
type ThreadList struct {
	Threads []ThreadView `json:"threads"`
}

// =============================================================================
// 🗓️ 会议
// =============================================================================

// MeetingRequest names the meeting of a lifecycle call.
type MeetingRequest struct {
	MeetingID string `json:"meetingId"`
}

// SummaryRequest sets a meeting's free-text summary.
type SummaryRequest struct {
	MeetingID string `json:"meetingId"`
	Summary   string `json:"summary"`
}

// =============================================================================
// 📚 知识问答
// =============================================================================

// KnowledgeRequest asks a question about one campaign.
type KnowledgeRequest struct {
	Query      string `json:"query"`
	CampaignID string `json:"campaignId"`
}

// KnowledgeContext summarizes what the answer was grounded on.
type KnowledgeContext struct {
	CampaignName   string `json:"campaignName"`
	CandidateCount int    `json:"candidateCount"`
	AgentCount     int    `json:"agentCount"`
}

// KnowledgeResponse is the answer to a KnowledgeRequest.
type KnowledgeResponse struct {
	Success bool             `json:"success"`
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Context KnowledgeContext `json:"context"`
}
