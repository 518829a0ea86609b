package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/activation"
	"github.com/BaSui01/recruitflow/api"
	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/types"
)

// CampaignReader is the read side of the store used by the campaign endpoints.
type CampaignReader interface {
	ListCampaigns(ctx context.Context) ([]store.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*store.Campaign, error)
	ListCandidates(ctx context.Context, campaignID string) ([]store.Candidate, error)
	ListAgents(ctx context.Context, campaignID string) ([]store.Agent, error)
	ListMeetings(ctx context.Context, campaignID string) ([]store.Meeting, error)
}

// Activator provisions agents and toggles a campaign's activation status.
type Activator interface {
	Activate(ctx context.Context, campaignID string) (*activation.Report, error)
	Pause(ctx context.Context, campaignID string) error
	Resume(ctx context.Context, campaignID string) error
}

// ThreadSource reads agent mailboxes.
type ThreadSource interface {
	ListThreads(ctx context.Context, inboxID string) ([]mail.Thread, error)
	GetThread(ctx context.Context, inboxID, threadID string) (*mail.Thread, error)
}

// =============================================================================
// 📋 活动 Handler
// =============================================================================

// CampaignHandler serves /api/campaigns.
type CampaignHandler struct {
	store     CampaignReader
	activator Activator
	threads   ThreadSource
	logger    *zap.Logger
}

// NewCampaignHandler creates a CampaignHandler.
func NewCampaignHandler(st CampaignReader, activator Activator, threads ThreadSource, logger *zap.Logger) *CampaignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignHandler{
		store:     st,
		activator: activator,
		threads:   threads,
		logger:    logger.With(zap.String("component", "campaign_handler")),
	}
}

// HandleList 处理 GET /api/campaigns
func (h *CampaignHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if campaigns == nil {
		campaigns = []store.Campaign{}
	}
	WriteJSON(w, http.StatusOK, api.CampaignList{Campaigns: campaigns})
}

// HandleGet 处理 GET /api/campaigns/{id}
func (h *CampaignHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaign, err := h.campaign(ctx, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	candidates, err := h.store.ListCandidates(ctx, campaign.ID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	agents, err := h.store.ListAgents(ctx, campaign.ID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if candidates == nil {
		candidates = []store.Candidate{}
	}
	if agents == nil {
		agents = []store.Agent{}
	}
	WriteJSON(w, http.StatusOK, api.CampaignDetail{Campaign: *campaign, Candidates: candidates, Agents: agents})
}

// HandleActivate 处理 POST /api/campaigns/{id}/activate
func (h *CampaignHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	report, err := h.activator.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// HandlePause 处理 POST /api/campaigns/{id}/pause
func (h *CampaignHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.activator.Pause, types.ActivationPaused)
}

// HandleResume 处理 POST /api/campaigns/{id}/resume
func (h *CampaignHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.activator.Resume, types.ActivationRunning)
}

func (h *CampaignHandler) setStatus(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) error, status types.ActivationStatus) {
	if err := apply(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, api.StatusResponse{Success: true, ActivationStatus: status})
}

// HandleMeetings 处理 GET /api/campaigns/{id}/meetings
func (h *CampaignHandler) HandleMeetings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaign, err := h.campaign(ctx, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	meetings, err := h.store.ListMeetings(ctx, campaign.ID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if meetings == nil {
		meetings = []store.Meeting{}
	}
	WriteJSON(w, http.StatusOK, api.MeetingList{Meetings: meetings})
}

// HandleThreads 处理 GET /api/campaigns/{id}/threads
// Mailbox failures for one agent or thread are logged and skipped.
func (h *CampaignHandler) HandleThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := r.PathValue("id")

	agents, err := h.store.ListAgents(ctx, campaignID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	candidates, err := h.store.ListCandidates(ctx, campaignID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	byID := make(map[string]store.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	views := []api.ThreadView{}
	for _, agent := range agents {
		cand, ok := byID[agent.CandidateID]
		if agent.MailboxID == "" || !ok || cand.Email == "" {
			continue
		}
		log := h.logger.With(zap.String("agent_id", agent.ID))

		threads, err := h.threads.ListThreads(ctx, agent.MailboxID)
		if err != nil {
			log.Warn("failed to list threads", zap.Error(err))
			continue
		}
		for _, th := range threads {
			full, err := h.threads.GetThread(ctx, agent.MailboxID, th.ThreadID)
			if err != nil {
				log.Warn("failed to fetch thread", zap.String("thread_id", th.ThreadID), zap.Error(err))
				continue
			}
			views = append(views, threadView(agent, cand, *full))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastMessageAt.After(views[j].LastMessageAt)
	})
	WriteJSON(w, http.StatusOK, api.ThreadList{Threads: views})
}

// threadView maps a mailbox thread to the recruiter-facing shape.
func threadView(agent store.Agent, cand store.Candidate, th mail.Thread) api.ThreadView {
	msgs := append([]mail.Message(nil), th.Messages...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })

	view := api.ThreadView{
		ThreadID:         th.ThreadID,
		AgentID:          agent.ID,
		Subject:          th.Subject,
		ParticipantName:  cand.Name,
		ParticipantEmail: participant(agent.MailboxEmail, cand.Email, th),
		MessageCount:     len(msgs),
		LastMessageAt:    th.UpdatedAt,
		Status:           api.ThreadWaiting,
		Messages:         make([]api.ThreadMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, api.ThreadMessage{
			MessageID:   m.MessageID,
			From:        m.From,
			To:          m.To,
			Content:     m.Body(),
			SentByAgent: sentBy(m.From, agent.MailboxEmail),
			CreatedAt:   m.CreatedAt,
		})
	}
	if n := len(view.Messages); n > 0 {
		last := view.Messages[n-1]
		view.LastMessageAt = last.CreatedAt
		if !last.SentByAgent {
			view.Status = api.ThreadActive
		}
	}
	return view
}

// participant is the first thread party that is not the agent mailbox.
func participant(mailbox, fallback string, th mail.Thread) string {
	for _, addr := range append(append([]string(nil), th.Senders...), th.Recipients...) {
		if !sentBy(addr, mailbox) {
			return addr
		}
	}
	return fallback
}

// sentBy reports whether a From value such as "Agent <a@x.to>" is the mailbox.
func sentBy(from, mailbox string) bool {
	return mailbox != "" && strings.Contains(strings.ToLower(from), strings.ToLower(mailbox))
}

func (h *CampaignHandler) campaign(ctx context.Context, id string) (*store.Campaign, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.InvalidRequest("Campaign ID is required")
	}
	campaign, err := h.store.GetCampaign(ctx, id)
	if store.IsNotFound(err) {
		return nil, types.NotFound("Campaign not found")
	}
	return campaign, err
}
