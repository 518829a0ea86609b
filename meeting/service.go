// Package meeting owns the interview lifecycle: accepting a candidate into a
// scheduled final interview, starting and ending meetings, and recording the
// summary.
package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/integrations/calendar"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/internal/telemetry"
	"github.com/BaSui01/recruitflow/types"
)

// DefaultLead is how far ahead an acceptance is scheduled when no time is given.
const DefaultLead = 48 * time.Hour

// InterviewDuration is the length of the scheduled final interview.
const InterviewDuration = 30 * time.Minute

// Store is the persistence used by the meeting service.
type Store interface {
	GetMeeting(ctx context.Context, id string) (*store.Meeting, error)
	CreateMeeting(ctx context.Context, meeting *store.Meeting) error
	TransitionMeeting(ctx context.Context, id string, from, to types.MeetingStatus, at time.Time) (bool, error)
	SetMeetingSummary(ctx context.Context, id, summary string) error
	GetCandidate(ctx context.Context, id string) (*store.Candidate, error)
	SetCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
	SetAgentStatus(ctx context.Context, id string, status types.AgentStatus, reason types.StopReason) error
	GetCampaign(ctx context.Context, id string) (*store.Campaign, error)
}

// Scheduler books calendar events. *calendar.Composio implements it.
type Scheduler interface {
	Schedule(ctx context.Context, ev calendar.Event) (*calendar.Scheduled, error)
}

// Recorder receives lifecycle transitions.
type Recorder interface {
	RecordMeetingTransition(to string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMeetingTransition(string) {}

// =============================================================================
// 📋 请求与结果
// =============================================================================

// AcceptRequest accepts the candidate behind a meeting.
type AcceptRequest struct {
	MeetingID     string     `json:"meetingId"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// CandidateRef is the candidate part of an acceptance result.
type CandidateRef struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Email  string                `json:"email"`
	Status types.CandidateStatus `json:"status"`
}

// AgentRef is the agent part of an acceptance result.
type AgentRef struct {
	ID     string            `json:"id"`
	Email  string            `json:"email"`
	Status types.AgentStatus `json:"status"`
}

// Ref identifies a meeting and its status.
type Ref struct {
	ID     string              `json:"id"`
	Status types.MeetingStatus `json:"status"`
}

// ScheduledMeeting is the meeting row created for a booked interview.
type ScheduledMeeting struct {
	ID              string    `json:"id"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	MeetingLink     string    `json:"meetingLink,omitempty"`
}

// ScheduleResult reports the calendar call. Failures land here rather than
// failing the acceptance.
type ScheduleResult struct {
	Success     bool   `json:"success"`
	EventID     string `json:"eventId,omitempty"`
	MeetingLink string `json:"meetingLink,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AcceptResult is returned by Accept.
type AcceptResult struct {
	Success                bool              `json:"success"`
	Message                string            `json:"message"`
	Candidate              CandidateRef      `json:"candidate"`
	Agent                  AgentRef          `json:"agent"`
	Meeting                Ref               `json:"meeting"`
	ScheduledMeeting       *ScheduledMeeting `json:"scheduledMeeting"`
	CalendarScheduleResult ScheduleResult    `json:"calendarScheduleResult"`
}

// Result is returned by the lifecycle operations.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Meeting *store.Meeting `json:"meeting"`
}

// =============================================================================
// ⚙️ 服务
// =============================================================================

// Service runs meeting operations.
type Service struct {
	store     Store
	scheduler Scheduler
	metrics   Recorder
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports transitions to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. scheduler may be nil, in which case acceptances
// report a failed calendar result.
func New(st Store, scheduler Scheduler, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     st,
		scheduler: scheduler,
		metrics:   nopRecorder{},
		now:       time.Now,
		logger:    logger.With(zap.String("component", "meeting")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept marks the candidate accepted, stops the agent and books the final
// interview.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "meeting.accept", telemetry.AttrMeetingID.String(req.MeetingID))
	res, err := s.accept(ctx, req)
	telemetry.EndSpan(span, err)
	return res, err
}

func (s *Service) accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error) {
	if strings.TrimSpace(req.MeetingID) == "" {
		return nil, types.InvalidRequest("Meeting ID is required")
	}
	meeting, err := s.getMeeting(ctx, req.MeetingID)
	if err != nil {
		return nil, err
	}
	if meeting.CandidateID == "" || meeting.AgentID == "" {
		return nil, types.InvalidRequest("Meeting missing candidate or agent information")
	}

	cand, err := s.store.GetCandidate(ctx, meeting.CandidateID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, types.NotFound("Candidate not found")
		}
		return nil, err
	}
	if strings.TrimSpace(cand.Email) == "" {
		return nil, types.InvalidRequest("Candidate email is required to schedule a meeting")
	}

	campaignName := ""
	if campaign, err := s.store.GetCampaign(ctx, meeting.CampaignID); err == nil {
		campaignName = campaign.Name
	} else {
		s.logger.Warn("campaign lookup failed", zap.String("campaign_id", meeting.CampaignID), zap.Error(err))
	}

	if err := s.store.SetCandidateStatus(ctx, cand.ID, types.CandidateAccepted); err != nil {
		return nil, err
	}
	if err := s.store.SetAgentStatus(ctx, meeting.AgentID, types.AgentStopped, types.StopAccepted); err != nil {
		return nil, err
	}
	agentEmail := ""
	if agent, err := s.store.GetAgent(ctx, meeting.AgentID); err == nil {
		agentEmail = agent.MailboxEmail
	}

	start := s.now().Add(DefaultLead).UTC()
	if req.ScheduledTime != nil && !req.ScheduledTime.IsZero() {
		start = req.ScheduledTime.UTC()
	}

	res := &AcceptResult{
		Success:   true,
		Message:   "Candidate accepted, agent stopped, and meeting scheduled",
		Candidate: CandidateRef{ID: cand.ID, Name: cand.Name, Email: cand.Email, Status: types.CandidateAccepted},
		Agent:     AgentRef{ID: meeting.AgentID, Email: agentEmail, Status: types.AgentStopped},
		Meeting:   Ref{ID: meeting.ID, Status: meeting.Status},
	}

	booked, err := s.book(ctx, cand, campaignName, start)
	if err != nil {
		s.logger.Error("calendar scheduling failed", zap.String("meeting_id", meeting.ID), zap.Error(err))
		res.CalendarScheduleResult = ScheduleResult{Error: errorMessage(err)}
		return res, nil
	}
	res.CalendarScheduleResult = ScheduleResult{Success: true, EventID: booked.EventID, MeetingLink: booked.MeetingLink}

	scheduled := &store.Meeting{
		CampaignID:      meeting.CampaignID,
		CandidateID:     meeting.CandidateID,
		AgentID:         meeting.AgentID,
		Status:          types.MeetingPending,
		ScheduledAt:     &start,
		CalendarEventID: booked.EventID,
		MeetingLink:     booked.MeetingLink,
	}
	if err := s.store.CreateMeeting(ctx, scheduled); err != nil {
		return nil, err
	}
	res.ScheduledMeeting = &ScheduledMeeting{
		ID:              scheduled.ID,
		ScheduledAt:     start,
		CalendarEventID: booked.EventID,
		MeetingLink:     booked.MeetingLink,
	}
	s.logger.Info("candidate accepted",
		zap.String("candidate_id", cand.ID),
		zap.String("meeting_id", scheduled.ID),
		zap.Time("scheduled_at", start),
	)
	return res, nil
}

func (s *Service) book(ctx context.Context, cand *store.Candidate, campaignName string, start time.Time) (*calendar.Scheduled, error) {
	if s.scheduler == nil {
		return nil, types.NewError(types.ErrServiceUnavailable, "calendar scheduling is not configured")
	}
	campaign, position := campaignName, campaignName
	if campaign == "" {
		campaign, position = "Recruitment Campaign", "Open Position"
	}
	return s.scheduler.Schedule(ctx, calendar.Event{
		Title:       "Final Interview - " + cand.Name,
		Description: fmt.Sprintf("Final stage interview for %s.\n\nCandidate: %s\nPosition: %s", campaign, cand.Name, position),
		Start:       start,
		Duration:    InterviewDuration,
		Attendees:   []string{cand.Email},
	})
}

// Start moves a pending meeting to active.
func (s *Service) Start(ctx context.Context, meetingID string) (*Result, error) {
	meeting, err := s.requireMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status == types.MeetingActive {
		return &Result{Success: true, Message: "Meeting is already active", Meeting: meeting}, nil
	}
	return s.transition(ctx, meeting, types.MeetingActive, "Meeting started")
}

// End completes the meeting. Ending a completed meeting changes nothing.
func (s *Service) End(ctx context.Context, meetingID string) (*Result, error) {
	meeting, err := s.requireMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status == types.MeetingCompleted {
		return &Result{Success: true, Message: "Meeting is already completed", Meeting: meeting}, nil
	}
	return s.transition(ctx, meeting, types.MeetingCompleted, "Meeting marked as completed")
}

func (s *Service) transition(ctx context.Context, meeting *store.Meeting, to types.MeetingStatus, msg string) (_ *Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "meeting."+string(to), telemetry.AttrMeetingID.String(meeting.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := types.ValidateMeetingTransition(meeting.Status, to); err != nil {
		return nil, err
	}
	moved, err := s.store.TransitionMeeting(ctx, meeting.ID, meeting.Status, to, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.getMeeting(ctx, meeting.ID)
	if err != nil {
		return nil, err
	}
	if !moved && updated.Status != to {
		// a concurrent caller moved it elsewhere
		return nil, types.ValidateMeetingTransition(updated.Status, to)
	}
	if moved {
		s.metrics.RecordMeetingTransition(string(to))
		s.logger.Info("meeting transitioned", zap.String("meeting_id", meeting.ID), zap.String("from", string(meeting.Status)), zap.String("to", string(to)))
	}
	return &Result{Success: true, Message: msg, Meeting: updated}, nil
}

// SetSummary stores the free-text summary of a meeting.
func (s *Service) SetSummary(ctx context.Context, meetingID, summary string) (*Result, error) {
	if strings.TrimSpace(meetingID) == "" {
		return nil, types.InvalidRequest("Meeting ID is required")
	}
	if strings.TrimSpace(summary) == "" {
		return nil, types.InvalidRequest("Summary is required")
	}
	if _, err := s.getMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	if err := s.store.SetMeetingSummary(ctx, meetingID, summary); err != nil {
		return nil, err
	}
	updated, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: "Meeting summary updated successfully", Meeting: updated}, nil
}

func (s *Service) requireMeeting(ctx context.Context, id string) (*store.Meeting, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.InvalidRequest("Meeting ID is required")
	}
	return s.getMeeting(ctx, id)
}

func (s *Service) getMeeting(ctx context.Context, id string) (*store.Meeting, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, types.NotFound("Meeting not found")
		}
		return nil, err
	}
	return m, nil
}

func errorMessage(err error) string {
	if e, ok := types.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}
