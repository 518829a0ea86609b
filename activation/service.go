// Package activation provisions one mailbox agent per campaign candidate and
// sends the first outreach email.
//
// Activate is safe to call repeatedly: it only works on candidates that have
// no agent yet. In-process callers for the same campaign share one run, and
// separate processes are serialized by an optional distributed lock.
package activation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/cache"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/internal/telemetry"
	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🔌 依赖接口
// =============================================================================

// Mailer provisions inboxes and sends first-contact mail.
type Mailer interface {
	CreateInbox(ctx context.Context, req mail.CreateInboxRequest) (*mail.Inbox, error)
	Send(ctx context.Context, inboxID string, req mail.SendRequest) (*mail.Sent, error)
}

// Store is the persistence used by activation.
type Store interface {
	GetCampaign(ctx context.Context, id string) (*store.Campaign, error)
	ListCandidates(ctx context.Context, campaignID string) ([]store.Candidate, error)
	ListAgents(ctx context.Context, campaignID string) ([]store.Agent, error)
	CreateAgent(ctx context.Context, agent *store.Agent) error
	SetActivationStatus(ctx context.Context, id string, status types.ActivationStatus) error
}

// Locker serializes activations across processes. *cache.Manager implements it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Recorder receives activation metrics.
type Recorder interface {
	RecordActivationAgent(outcome string)
	RecordActivationEmail(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordActivationAgent(string) {}
func (nopRecorder) RecordActivationEmail(string) {}

// =============================================================================
// 📋 结果
// =============================================================================

// AgentSummary describes an agent created by this activation.
type AgentSummary struct {
	AgentID       string `json:"agentId"`
	CandidateName string `json:"candidateName"`
	Email         string `json:"email"`
	MailboxID     string `json:"mailboxId"`
}

// EmailResult is the first-contact outcome for one candidate.
type EmailResult struct {
	CandidateName string `json:"candidateName"`
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
}

// Report is returned by Activate.
type Report struct {
	Success       bool           `json:"success"`
	AgentsCreated int            `json:"agentsCreated"`
	Agents        []AgentSummary `json:"agents"`
	EmailsSent    int            `json:"emailsSent"`
	EmailResults  []EmailResult  `json:"emailResults"`
}

// =============================================================================
// ⚙️ 服务
// =============================================================================

// Service runs campaign activations.
type Service struct {
	store     Store
	mailer    Mailer
	generator llm.Generator
	locker    Locker
	lockTTL   time.Duration
	metrics   Recorder
	logger    *zap.Logger

	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLocker enables cross-process locking.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithRecorder reports activation metrics to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// New creates a Service.
func New(st Store, mailer Mailer, gen llm.Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     st,
		mailer:    mailer,
		generator: gen,
		lockTTL:   2 * time.Minute,
		metrics:   nopRecorder{},
		logger:    logger.With(zap.String("component", "activation")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate ensures every candidate of the campaign has an agent, sends first
// contact to new ones and marks the campaign running.
func (s *Service) Activate(ctx context.Context, campaignID string) (*Report, error) {
	v, err, shared := s.group.Do(campaignID, func() (any, error) {
		ctx, span := telemetry.StartSpan(ctx, "activation.activate", telemetry.AttrCampaignID.String(campaignID))
		report, err := s.activate(ctx, campaignID)
		telemetry.EndSpan(span, err)
		return report, err
	})
	if shared {
		s.logger.Debug("activation shared with concurrent caller", zap.String("campaign_id", campaignID))
	}
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *Service) activate(ctx context.Context, campaignID string) (*Report, error) {
	log := s.logger.With(zap.String("campaign_id", campaignID))

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, "activation:"+campaignID, s.lockTTL)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			return nil, types.NewError(types.ErrConflict, "Activation already in progress")
		case err != nil:
			log.Warn("activation lock unavailable, continuing without it", zap.Error(err))
		default:
			defer release()
		}
	}

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, types.NotFound("Campaign not found")
		}
		return nil, err
	}

	candidates, err := s.store.ListCandidates(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, types.InvalidRequest("No candidates found for this campaign")
	}

	agents, err := s.store.ListAgents(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	missing := withoutAgents(candidates, agents)

	report := &Report{Success: true, Agents: []AgentSummary{}, EmailResults: []EmailResult{}}
	var firstErr error
	for _, cand := range missing {
		agent, err := s.provision(ctx, campaign, cand)
		if err != nil {
			if store.IsConflict(err) {
				s.metrics.RecordActivationAgent("exists")
				log.Info("agent already exists, skipping", zap.String("candidate_id", cand.ID))
				continue
			}
			s.metrics.RecordActivationAgent("error")
			log.Error("agent provisioning failed", zap.String("candidate_id", cand.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.metrics.RecordActivationAgent("created")

		report.Agents = append(report.Agents, AgentSummary{
			AgentID:       agent.ID,
			CandidateName: cand.Name,
			Email:         agent.MailboxEmail,
			MailboxID:     agent.MailboxID,
		})
		report.EmailResults = append(report.EmailResults, s.firstContact(ctx, campaign, cand, agent))
	}

	if len(report.Agents) == 0 && firstErr != nil {
		return nil, types.NewError(types.ErrActivationFailed, "Failed to create any agents: "+errorMessage(firstErr)).
			WithHTTPStatus(http.StatusInternalServerError).
			WithCause(firstErr)
	}

	if err := s.store.SetActivationStatus(ctx, campaignID, types.ActivationRunning); err != nil {
		return nil, err
	}

	report.AgentsCreated = len(report.Agents)
	for _, r := range report.EmailResults {
		if r.Success {
			report.EmailsSent++
		}
	}
	log.Info("campaign activated",
		zap.Int("candidates", len(candidates)),
		zap.Int("agents_created", report.AgentsCreated),
		zap.Int("emails_sent", report.EmailsSent),
	)
	return report, nil
}

// withoutAgents is the set difference candidates minus agent targets.
func withoutAgents(candidates []store.Candidate, agents []store.Agent) []store.Candidate {
	has := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		has[a.CandidateID] = struct{}{}
	}
	out := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := has[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// provision creates the inbox and the agent row. The inbox client id is
// derived from the pair so a retried activation reuses the same inbox.
func (s *Service) provision(ctx context.Context, campaign *store.Campaign, cand store.Candidate) (*store.Agent, error) {
	inbox, err := s.mailer.CreateInbox(ctx, mail.CreateInboxRequest{
		DisplayName: campaign.Name + " Recruiting",
		ClientID:    fmt.Sprintf("recruitflow-%s-%s", campaign.ID, cand.ID),
	})
	if err != nil {
		return nil, err
	}

	agent := &store.Agent{
		CampaignID:   campaign.ID,
		CandidateID:  cand.ID,
		MailboxEmail: inbox.InboxID,
		MailboxID:    inbox.InboxID,
		Status:       types.AgentActive,
	}
	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// firstContact generates and sends the opening email. Failures are reported,
// never returned.
func (s *Service) firstContact(ctx context.Context, campaign *store.Campaign, cand store.Candidate, agent *store.Agent) EmailResult {
	res := EmailResult{CandidateName: cand.Name}
	if strings.TrimSpace(cand.Email) == "" {
		s.metrics.RecordActivationEmail("no_email")
		res.Message = "No email address available"
		return res
	}

	text, err := s.generator.Generate(ctx, FirstContactPrompt(campaign, cand))
	if err != nil {
		s.metrics.RecordActivationEmail("error")
		res.Message = errorMessage(err)
		return res
	}
	email := ParseEmail(text, cand.Name, campaign.Name)

	if _, err := s.mailer.Send(ctx, agent.MailboxID, mail.SendRequest{
		To:      []string{cand.Email},
		Subject: email.Subject,
		Text:    email.Text,
		Labels:  []string{"outreach"},
	}); err != nil {
		s.metrics.RecordActivationEmail("error")
		s.logger.Warn("first contact failed", zap.String("candidate_id", cand.ID), zap.Error(err))
		res.Message = errorMessage(err)
		return res
	}

	s.metrics.RecordActivationEmail("sent")
	res.Success = true
	res.Message = "Email sent successfully"
	return res
}

// Pause stops automated replies for the campaign.
func (s *Service) Pause(ctx context.Context, campaignID string) error {
	return s.setStatus(ctx, campaignID, types.ActivationPaused)
}

// Resume re-enables automated replies.
func (s *Service) Resume(ctx context.Context, campaignID string) error {
	return s.setStatus(ctx, campaignID, types.ActivationRunning)
}

func (s *Service) setStatus(ctx context.Context, campaignID string, status types.ActivationStatus) error {
	if err := s.store.SetActivationStatus(ctx, campaignID, status); err != nil {
		if store.IsNotFound(err) {
			return types.NotFound("Campaign not found")
		}
		return err
	}
	s.logger.Info("activation status changed", zap.String("campaign_id", campaignID), zap.String("status", string(status)))
	return nil
}

// =============================================================================
// ✉️ 首封邮件
// =============================================================================

// Email is a generated first-contact message.
type Email struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// ParseEmail reads the {"subject","text"} object from generator output. When
// no usable object is found the raw text becomes the body under a default subject.
func ParseEmail(output, candidateName, campaignName string) Email {
	fallbackSubject := fmt.Sprintf("%s, perfect fit for exclusive %s opportunity?", candidateName, campaignName)

	var e Email
	if obj := llm.ExtractJSONObject(output); obj != "" && json.Unmarshal([]byte(obj), &e) == nil {
		if strings.TrimSpace(e.Subject) == "" {
			e.Subject = fallbackSubject
		}
		if strings.TrimSpace(e.Text) != "" {
			return e
		}
	}
	return Email{Subject: fallbackSubject, Text: strings.TrimSpace(output)}
}

// FirstContactPrompt asks for a short personalized introduction as JSON.
func FirstContactPrompt(campaign *store.Campaign, cand store.Candidate) string {
	company := cand.Company
	if company == "" {
		company = "their company"
	}
	return fmt.Sprintf(`Write a short, personalized introductory email for %[1]s to convince them to consider this job opportunity.

IMPORTANT REQUIREMENTS:
- Keep the email SHORT (100-150 words max) - do not overwhelm the reader
- Use %[1]s's name naturally throughout the email
- Reference their current role at %[2]s and title %[3]s
- Be conversational and friendly, not template-like or generic
- Focus on why they're a perfect fit for this specific opportunity

CAMPAIGN: %[4]s
JOB: %[5]s
RESEARCH: %[6]s
KEYWORDS: %[7]s

Respond with ONLY valid JSON in this format:
{
  "subject": "Short subject line",
  "text": "Concise email body in plain text"
}`, cand.Name, company, cand.Title, campaign.Name, campaign.JobDescriptionSummary, campaign.MarketResearch, campaign.Keywords)
}

func errorMessage(err error) string {
	if e, ok := types.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}
