package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/activation"
	"github.com/BaSui01/recruitflow/api"
	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/testutil/fixtures"
	"github.com/BaSui01/recruitflow/testutil/mocks"
	"github.com/BaSui01/recruitflow/types"
)

type campaignHarness struct {
	store   *mocks.MemoryStore
	mailer  *mocks.MockMailer
	handler *CampaignHandler
}

func newCampaignHarness(t *testing.T) *campaignHarness {
	st := mocks.NewMemoryStore()
	mailer := mocks.NewMockMailer()
	gen := mocks.NewMockGenerator().WithResponse(`{"subject":"Hello","text":"We would love to talk."}`)
	logger := zaptest.NewLogger(t)
	return &campaignHarness{
		store:   st,
		mailer:  mailer,
		handler: NewCampaignHandler(st, activation.New(st, mailer, gen, logger), mailer, logger),
	}
}

func withID(r *http.Request, id string) *http.Request {
	r.SetPathValue("id", id)
	return r
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestCampaigns_ListAndGet(t *testing.T) {
	h := newCampaignHarness(t)
	first, cands := fixtures.SeedCampaign(t, h.store, "Ada Lovelace", "Grace Hopper")
	second, _ := fixtures.SeedCampaign(t, h.store, "Linus")
	agent := fixtures.SeedAgent(t, h.store, cands[0], "agent-1@agentmail.to")

	w := serve(h.handler.HandleList, httptest.NewRequest(http.MethodGet, "/api/campaigns", nil))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.CampaignList](t, w)
	require.Len(t, list.Campaigns, 2)
	assert.Equal(t, second.ID, list.Campaigns[0].ID)

	w = serve(h.handler.HandleGet, withID(httptest.NewRequest(http.MethodGet, "/api/campaigns/"+first.ID, nil), first.ID))
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[api.CampaignDetail](t, w)
	assert.Equal(t, "Q1-Backend", detail.Campaign.Name)
	assert.Len(t, detail.Candidates, 2)
	require.Len(t, detail.Agents, 1)
	assert.Equal(t, agent.ID, detail.Agents[0].ID)

	w = serve(h.handler.HandleGet, withID(httptest.NewRequest(http.MethodGet, "/api/campaigns/missing", nil), "missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Campaign not found", decodeError(t, w))
}

func TestCampaigns_EmptyListIsArray(t *testing.T) {
	h := newCampaignHarness(t)
	w := serve(h.handler.HandleList, httptest.NewRequest(http.MethodGet, "/api/campaigns", nil))
	assert.JSONEq(t, `{"campaigns":[]}`, w.Body.String())
}

func TestCampaigns_Activate(t *testing.T) {
	h := newCampaignHarness(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada Lovelace", "Grace Hopper")

	r := withID(httptest.NewRequest(http.MethodPost, "/api/campaigns/"+campaign.ID+"/activate", nil), campaign.ID)
	w := serve(h.handler.HandleActivate, r)
	require.Equal(t, http.StatusOK, w.Code)

	report := decode[activation.Report](t, w)
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.AgentsCreated)
	assert.Equal(t, 2, report.EmailsSent)
	assert.Len(t, h.mailer.Sent(), 2)

	got, err := h.store.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActivationRunning, got.ActivationStatus)
}

func TestCampaigns_ActivateErrors(t *testing.T) {
	h := newCampaignHarness(t)
	empty := fixtures.Campaign()
	require.NoError(t, h.store.CreateCampaign(context.Background(), empty, nil))

	w := serve(h.handler.HandleActivate, withID(httptest.NewRequest(http.MethodPost, "/", nil), "missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Campaign not found", decodeError(t, w))

	w = serve(h.handler.HandleActivate, withID(httptest.NewRequest(http.MethodPost, "/", nil), empty.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeError(t, w))
}

func TestCampaigns_PauseResume(t *testing.T) {
	h := newCampaignHarness(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	w := serve(h.handler.HandlePause, withID(httptest.NewRequest(http.MethodPost, "/", nil), campaign.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"activationStatus":"paused"}`, w.Body.String())

	got, _ := h.store.GetCampaign(context.Background(), campaign.ID)
	assert.Equal(t, types.ActivationPaused, got.ActivationStatus)

	w = serve(h.handler.HandleResume, withID(httptest.NewRequest(http.MethodPost, "/", nil), campaign.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"activationStatus":"running"}`, w.Body.String())

	w = serve(h.handler.HandlePause, withID(httptest.NewRequest(http.MethodPost, "/", nil), "missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaigns_Meetings(t *testing.T) {
	h := newCampaignHarness(t)
	campaign, cands := fixtures.SeedCampaign(t, h.store, "Ada")
	agent := fixtures.SeedAgent(t, h.store, cands[0], "agent-1@agentmail.to")
	require.NoError(t, h.store.CreateMeeting(context.Background(), &store.Meeting{
		CampaignID: campaign.ID, CandidateID: cands[0].ID, AgentID: agent.ID,
	}))

	w := serve(h.handler.HandleMeetings, withID(httptest.NewRequest(http.MethodGet, "/", nil), campaign.ID))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.MeetingList](t, w)
	require.Len(t, list.Meetings, 1)
	assert.Equal(t, types.MeetingPending, list.Meetings[0].Status)

	h.store.WithError("ListMeetings", errors.New("db down"))
	w = serve(h.handler.HandleMeetings, withID(httptest.NewRequest(http.MethodGet, "/", nil), campaign.ID))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", decodeError(t, w))
}

func TestCampaigns_Threads(t *testing.T) {
	h := newCampaignHarness(t)
	campaign, cands := fixtures.SeedCampaign(t, h.store, "Ada Lovelace", "Grace Hopper")
	fixtures.SeedAgent(t, h.store, cands[0], "agent-1@agentmail.to")
	fixtures.SeedAgent(t, h.store, cands[1], "agent-2@agentmail.to")

	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	at := func(msg mail.Message, d time.Duration) mail.Message {
		msg.CreatedAt = base.Add(d)
		return msg
	}
	// Ada replied last; Grace has not answered yet.
	h.mailer.
		WithMessage(at(fixtures.Inbound("agent-1@agentmail.to", "t-ada", "m1", "Recruiter <agent-1@agentmail.to>", "Hi Ada"), 0)).
		WithMessage(at(fixtures.Inbound("agent-1@agentmail.to", "t-ada", "m2", "ada-lovelace@example.com", "Tell me more"), 2*time.Hour)).
		WithMessage(at(fixtures.Inbound("agent-2@agentmail.to", "t-grace", "m3", "agent-2@agentmail.to", "Hi Grace"), time.Hour))

	w := serve(h.handler.HandleThreads, withID(httptest.NewRequest(http.MethodGet, "/", nil), campaign.ID))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.ThreadList](t, w)
	require.Len(t, list.Threads, 2)

	ada := list.Threads[0]
	assert.Equal(t, "t-ada", ada.ThreadID)
	assert.Equal(t, "Ada Lovelace", ada.ParticipantName)
	assert.Equal(t, "ada-lovelace@example.com", ada.ParticipantEmail)
	assert.Equal(t, api.ThreadActive, ada.Status)
	assert.Equal(t, 2, ada.MessageCount)
	assert.True(t, ada.Messages[0].SentByAgent)
	assert.False(t, ada.Messages[1].SentByAgent)
	assert.Equal(t, "Tell me more", ada.Messages[1].Content)
	assert.Equal(t, base.Add(2*time.Hour), ada.LastMessageAt)

	grace := list.Threads[1]
	assert.Equal(t, "t-grace", grace.ThreadID)
	assert.Equal(t, api.ThreadWaiting, grace.Status)
}

func TestCampaigns_ThreadsSkipsMailboxFailures(t *testing.T) {
	h := newCampaignHarness(t)
	campaign, cands := fixtures.SeedCampaign(t, h.store, "Ada")
	fixtures.SeedAgent(t, h.store, cands[0], "agent-1@agentmail.to")
	h.mailer.WithThreadError(types.Upstream("agentmail", 503, "unavailable"))

	w := serve(h.handler.HandleThreads, withID(httptest.NewRequest(http.MethodGet, "/", nil), campaign.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"threads":[]}`, w.Body.String())
}
