package store

import (
	"time"

	"github.com/BaSui01/recruitflow/types"
)

// Campaign is a recruiting initiative created by one pipeline run.
type Campaign struct {
	ID                    string                 `gorm:"primaryKey;size:36" json:"id"`
	Name                  string                 `gorm:"size:255;not null" json:"name"`
	JobDescriptionSummary string                 `gorm:"type:text" json:"jobDescriptionSummary"`
	MarketResearch        string                 `gorm:"type:text" json:"marketResearch"`
	Keywords              string                 `gorm:"type:text" json:"keywords"`
	ActivationStatus      types.ActivationStatus `gorm:"size:32" json:"activationStatus"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// Candidate is a person found by the search stage, owned by one campaign.
type Candidate struct {
	ID         string                `gorm:"primaryKey;size:36" json:"id"`
	CampaignID string                `gorm:"size:36;index;not null" json:"campaignId"`
	Name       string                `gorm:"size:255;not null" json:"name"`
	Email      string                `gorm:"size:320" json:"email,omitempty"`
	ProfileURL string                `gorm:"column:profile_url" json:"profileUrl,omitempty"`
	Title      string                `gorm:"size:255" json:"title,omitempty"`
	Company    string                `gorm:"size:255" json:"company,omitempty"`
	Status     types.CandidateStatus `gorm:"size:32" json:"status,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// Agent is the outbound mailbox proxy for one candidate.
type Agent struct {
	ID           string            `gorm:"primaryKey;size:36" json:"id"`
	CampaignID   string            `gorm:"size:36;not null" json:"campaignId"`
	CandidateID  string            `gorm:"size:36;not null" json:"candidateId"`
	MailboxEmail string            `gorm:"size:320;not null" json:"mailboxEmail"`
	MailboxID    string            `gorm:"size:255;not null" json:"mailboxId"`
	Status       types.AgentStatus `gorm:"size:32" json:"status"`
	StopReason   types.StopReason  `gorm:"size:32" json:"stopReason,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Meeting is a scheduled or held interview with a candidate.
type Meeting struct {
	ID              string              `gorm:"primaryKey;size:36" json:"id"`
	CampaignID      string              `gorm:"size:36;not null" json:"campaignId"`
	CandidateID     string              `gorm:"size:36;not null" json:"candidateId"`
	AgentID         string              `gorm:"size:36" json:"agentId"`
	Status          types.MeetingStatus `gorm:"size:32" json:"status"`
	ScheduledAt     *time.Time          `json:"scheduledAt,omitempty"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	Summary         string              `gorm:"type:text" json:"summary,omitempty"`
	MeetingLink     string              `gorm:"type:text" json:"meetingLink,omitempty"`
	CalendarEventID string              `gorm:"size:255" json:"calendarEventId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}
