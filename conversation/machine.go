// Package conversation drives each candidate agent through its reply
// lifecycle in response to inbound mail.
//
// Agent states move active → scheduling → completed, or to stopped on a
// rejection, the safe word or an external stop. Stopped and completed agents
// never send automated replies.
package conversation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/internal/telemetry"
	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/llm/tokenizer"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🔌 依赖接口
// =============================================================================

// Mailer reads the inbound conversation and replies into it.
type Mailer interface {
	GetMessage(ctx context.Context, inboxID, messageID string) (*mail.Message, error)
	GetThread(ctx context.Context, inboxID, threadID string) (*mail.Thread, error)
	Reply(ctx context.Context, inboxID, messageID, text string) (*mail.Sent, error)
}

// Store is the persistence used by the state machine.
type Store interface {
	GetAgentByMailbox(ctx context.Context, mailboxID string) (*store.Agent, error)
	SetAgentStatus(ctx context.Context, id string, status types.AgentStatus, reason types.StopReason) error
	GetCampaign(ctx context.Context, id string) (*store.Campaign, error)
	GetCandidate(ctx context.Context, id string) (*store.Candidate, error)
	OpenMeeting(ctx context.Context, agentID string) (*store.Meeting, error)
	CreateMeeting(ctx context.Context, meeting *store.Meeting) error
}

// Deduper marks webhook deliveries as seen. *cache.Manager implements it.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Recorder receives one decision per handled event.
type Recorder interface {
	RecordWebhookDecision(decision string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWebhookDecision(string) {}

// =============================================================================
// 📋 决策
// =============================================================================

// Outcome names the branch the machine took.
type Outcome string

const (
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStopped   Outcome = "agent_stopped"
	OutcomeCompleted Outcome = "agent_completed"
	OutcomePaused    Outcome = "campaign_paused"
	OutcomeSafeWord  Outcome = "safe_word"
	OutcomeRejected  Outcome = "rejected"
	OutcomeReplied   Outcome = "replied"
)

// Decision is the webhook response body.
type Decision struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	ReplyID     string            `json:"replyId,omitempty"`
	AgentStatus types.AgentStatus `json:"agentStatus,omitempty"`
	Outcome     Outcome           `json:"-"`
}

// =============================================================================
// ⚙️ 状态机
// =============================================================================

// Machine handles inbound-message events.
type Machine struct {
	store      Store
	mailer     Mailer
	generator  llm.Generator
	classifier Classifier
	tokenizer  tokenizer.Tokenizer
	deduper    Deduper
	metrics    Recorder
	cfg        config.ConversationConfig
	budget     int
	logger     *zap.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithClassifier replaces the keyword classifier.
func WithClassifier(c Classifier) Option {
	return func(m *Machine) {
		if c != nil {
			m.classifier = c
		}
	}
}

// WithDeduper drops repeated deliveries of the same message.
func WithDeduper(d Deduper) Option {
	return func(m *Machine) { m.deduper = d }
}

// WithRecorder reports decisions to r.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithTokenizer bounds the thread transcript to budget tokens.
func WithTokenizer(t tokenizer.Tokenizer, budget int) Option {
	return func(m *Machine) {
		m.tokenizer = t
		m.budget = budget
	}
}

// New creates a Machine.
func New(st Store, mailer Mailer, gen llm.Generator, cfg config.ConversationConfig, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SafeWord == "" {
		cfg.SafeWord = config.DefaultConversationConfig().SafeWord
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = config.DefaultConversationConfig().DedupeTTL
	}
	m := &Machine{
		store:      st,
		mailer:     mailer,
		generator:  gen,
		classifier: NewKeywordClassifier(cfg.SafeWord),
		metrics:    nopRecorder{},
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "conversation")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleInbound applies one webhook event. Routing failures are returned as
// errors; ignored events are successful decisions.
func (m *Machine) HandleInbound(ctx context.Context, ev mail.WebhookEvent) (dec *Decision, err error) {
	if ev.EventType != mail.EventMessageReceived {
		return nil, types.InvalidRequest("Unsupported event type")
	}
	msg := ev.Message
	log := m.logger.With(
		zap.String("inbox_id", msg.InboxID),
		zap.String("thread_id", msg.ThreadID),
		zap.String("message_id", msg.MessageID),
	)

	ctx, span := telemetry.StartSpan(ctx, "conversation.inbound", telemetry.AttrInboxID.String(msg.InboxID))
	defer func() {
		if dec != nil {
			m.metrics.RecordWebhookDecision(string(dec.Outcome))
		} else {
			m.metrics.RecordWebhookDecision("error")
		}
		telemetry.EndSpan(span, err)
	}()

	agent, err := m.store.GetAgentByMailbox(ctx, msg.InboxID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, types.NotFound("Agent not found")
		}
		return nil, err
	}
	log = log.With(zap.String("agent_id", agent.ID))
	span.SetAttributes(telemetry.AttrAgentID.String(agent.ID), telemetry.AttrCampaignID.String(agent.CampaignID))

	switch agent.Status {
	case types.AgentStopped:
		return &Decision{Success: true, Message: "Agent stopped, callback ignored", AgentStatus: agent.Status, Outcome: OutcomeStopped}, nil
	case types.AgentCompleted:
		return &Decision{Success: true, Message: "Agent completed, callback ignored", AgentStatus: agent.Status, Outcome: OutcomeCompleted}, nil
	case types.AgentActive, types.AgentScheduling:
	}

	campaign, err := m.store.GetCampaign(ctx, agent.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.ActivationStatus == types.ActivationPaused {
		return &Decision{Success: true, Message: "Campaign paused, callback ignored", AgentStatus: agent.Status, Outcome: OutcomePaused}, nil
	}

	first, release := m.markOnce(ctx, msg.MessageID, log)
	if !first {
		return &Decision{Success: true, Message: "Duplicate delivery ignored", AgentStatus: agent.Status, Outcome: OutcomeDuplicate}, nil
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	full, err := m.mailer.GetMessage(ctx, msg.InboxID, msg.MessageID)
	if err != nil {
		return nil, err
	}
	body := full.Body()

	intent := m.classifier.Classify(body)
	log.Info("inbound message classified", zap.String("intent", string(intent)), zap.String("agent_status", string(agent.Status)))

	switch intent {
	case IntentSafeWord:
		if err := m.store.SetAgentStatus(ctx, agent.ID, types.AgentStopped, types.StopSafeWord); err != nil {
			return nil, err
		}
		return &Decision{Success: true, Message: "Safe word detected, agent stopped", AgentStatus: types.AgentStopped, Outcome: OutcomeSafeWord}, nil
	case IntentReject:
		if err := m.store.SetAgentStatus(ctx, agent.ID, types.AgentStopped, types.StopRejected); err != nil {
			return nil, err
		}
		return &Decision{Success: true, Message: "Candidate rejected, agent stopped", AgentStatus: types.AgentStopped, Outcome: OutcomeRejected}, nil
	case IntentContinue, IntentAgree, IntentSchedule:
	}

	cand, err := m.store.GetCandidate(ctx, agent.CandidateID)
	if err != nil {
		return nil, err
	}

	reply, err := m.compose(ctx, campaign, cand, full, body)
	if err != nil {
		return nil, err
	}

	// the reply goes out before the status changes: a completed agent ignores
	// redeliveries, so a failed send must leave the agent retryable
	sent, err := m.mailer.Reply(ctx, msg.InboxID, msg.MessageID, reply)
	if err != nil {
		return nil, err
	}

	status := agent.Status
	switch intent {
	case IntentAgree:
		status = types.AgentCompleted
	case IntentSchedule:
		status = types.AgentScheduling
	case IntentContinue, IntentSafeWord, IntentReject:
	}
	if status != agent.Status {
		if err := m.store.SetAgentStatus(ctx, agent.ID, status, types.StopNone); err != nil {
			return nil, err
		}
	}
	if intent == IntentAgree || intent == IntentSchedule {
		m.ensureMeeting(ctx, agent, log)
	}

	log.Info("reply sent", zap.String("reply_id", sent.MessageID), zap.String("agent_status", string(status)))
	return &Decision{
		Success:     true,
		Message:     "Response sent successfully",
		ReplyID:     sent.MessageID,
		AgentStatus: status,
		Outcome:     OutcomeReplied,
	}, nil
}

// compose generates and sanitizes the reply using the thread as context.
func (m *Machine) compose(ctx context.Context, campaign *store.Campaign, cand *store.Candidate, latest *mail.Message, body string) (string, error) {
	transcript := body
	if thread, err := m.mailer.GetThread(ctx, latest.InboxID, latest.ThreadID); err != nil {
		m.logger.Warn("thread unavailable, replying to the latest message only", zap.String("thread_id", latest.ThreadID), zap.Error(err))
	} else if t := Transcript(thread.Messages); t != "" {
		transcript = t
	}

	if m.tokenizer != nil && m.budget > 0 {
		trimmed, err := tokenizer.TrimToBudget(m.tokenizer, transcript, m.budget)
		if err != nil {
			m.logger.Warn("transcript trim failed", zap.Error(err))
		} else {
			transcript = trimmed
		}
	}

	out, err := m.generator.Generate(ctx, ReplyPrompt(campaign, cand, transcript, body))
	if err != nil {
		return "", err
	}
	return Sanitize(out), nil
}

// ensureMeeting opens a pending meeting for the agent unless one exists.
// Failures are logged; the reply still goes out.
func (m *Machine) ensureMeeting(ctx context.Context, agent *store.Agent, log *zap.Logger) {
	open, err := m.store.OpenMeeting(ctx, agent.ID)
	if err == nil && open != nil {
		return
	}
	if err != nil && !store.IsNotFound(err) {
		log.Warn("open meeting lookup failed", zap.Error(err))
		return
	}
	meeting := &store.Meeting{
		CampaignID:  agent.CampaignID,
		CandidateID: agent.CandidateID,
		AgentID:     agent.ID,
		Status:      types.MeetingPending,
	}
	if err := m.store.CreateMeeting(ctx, meeting); err != nil {
		log.Warn("meeting creation failed", zap.Error(err))
		return
	}
	log.Info("meeting opened", zap.String("meeting_id", meeting.ID))
}

// markOnce reports whether this is the first delivery of messageID. The
// returned func forgets the marker so a failed delivery can be retried.
func (m *Machine) markOnce(ctx context.Context, messageID string, log *zap.Logger) (bool, func()) {
	noop := func() {}
	if m.deduper == nil || messageID == "" {
		return true, noop
	}
	key := "webhook:" + messageID
	first, err := m.deduper.MarkOnce(ctx, key, m.cfg.DedupeTTL)
	if err != nil {
		log.Warn("webhook dedupe unavailable", zap.Error(err))
		return true, noop
	}
	if !first {
		log.Info("duplicate webhook delivery")
		return false, noop
	}
	return true, func() {
		if err := m.deduper.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Warn("webhook marker release failed", zap.Error(err))
		}
	}
}
