package activation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/testutil"
	"github.com/BaSui01/recruitflow/testutil/fixtures"
	"github.com/BaSui01/recruitflow/testutil/mocks"
	"github.com/BaSui01/recruitflow/types"
)

const emailJSON = `{"subject":"Ada, a Go role you'll like","text":"Hi Ada, ..."}`

type harness struct {
	store  *mocks.MemoryStore
	mailer *mocks.MockMailer
	gen    *mocks.MockGenerator
	svc    *Service
}

func newHarness(t *testing.T, opts ...Option) *harness {
	h := &harness{
		store:  mocks.NewMemoryStore(),
		mailer: mocks.NewMockMailer(),
		gen:    mocks.NewMockGenerator().WithResponse(emailJSON),
	}
	h.svc = New(h.store, h.mailer, h.gen, zaptest.NewLogger(t), opts...)
	return h
}

func TestActivate_CreatesAgentsAndSendsFirstContact(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada", "Grace")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 2, report.AgentsCreated)
	assert.Equal(t, 2, report.EmailsSent)
	require.Len(t, report.Agents, 2)
	assert.Equal(t, "Ada", report.Agents[0].CandidateName)
	assert.Equal(t, report.Agents[0].Email, report.Agents[0].MailboxID)
	for _, r := range report.EmailResults {
		assert.True(t, r.Success)
		assert.Equal(t, "Email sent successfully", r.Message)
	}

	inboxes := h.mailer.Inboxes()
	require.Len(t, inboxes, 2)
	assert.Equal(t, "Q1-Backend Recruiting", inboxes[0].DisplayName)
	assert.True(t, strings.HasPrefix(inboxes[0].ClientID, "recruitflow-"+campaign.ID+"-"))

	sent := h.mailer.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].Request.To)
	assert.Equal(t, "Ada, a Go role you'll like", sent[0].Request.Subject)
	assert.Equal(t, []string{"outreach"}, sent[0].Request.Labels)

	got, err := h.store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActivationRunning, got.ActivationStatus)
}

func TestActivate_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada", "Grace")

	_, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)

	again, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Zero(t, again.AgentsCreated)
	assert.Empty(t, again.Agents)
	assert.NotNil(t, again.Agents)
	assert.Len(t, h.mailer.Sent(), 2)

	agents, err := h.store.ListAgents(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, agents, 2)
}

func TestActivate_OnlyProvisionsMissingAgents(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, cands := fixtures.SeedCampaign(t, h.store, "Ada", "Grace")
	fixtures.SeedAgent(t, h.store, cands[0], "existing@agentmail.to")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, report.Agents, 1)
	assert.Equal(t, "Grace", report.Agents[0].CandidateName)
}

func TestActivate_CandidateWithoutEmail(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign := fixtures.Campaign()
	cands := fixtures.Candidates("Ada")
	cands[0].Email = ""
	require.NoError(t, h.store.CreateCampaign(ctx, campaign, cands))

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AgentsCreated)
	assert.Zero(t, report.EmailsSent)
	require.Len(t, report.EmailResults, 1)
	assert.False(t, report.EmailResults[0].Success)
	assert.Equal(t, "No email address available", report.EmailResults[0].Message)
	assert.Zero(t, h.gen.Calls())
}

func TestActivate_SendFailureKeepsAgent(t *testing.T) {
	h := newHarness(t)
	h.mailer.WithSendError("grace@example.com", types.Upstream("agentmail", http.StatusBadGateway, "relay down"))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada", "Grace")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.AgentsCreated)
	assert.Equal(t, 1, report.EmailsSent)
	assert.False(t, report.EmailResults[1].Success)
	assert.Equal(t, "relay down", report.EmailResults[1].Message)
}

func TestActivate_GeneratorFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.gen.WithError(errors.New("model overloaded"))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AgentsCreated)
	assert.Equal(t, "model overloaded", report.EmailResults[0].Message)
	assert.Empty(t, h.mailer.Sent())
}

func TestActivate_AllProvisioningFails(t *testing.T) {
	h := newHarness(t)
	h.mailer.WithInboxError(types.Upstream("agentmail", http.StatusServiceUnavailable, "inbox quota exceeded"))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada", "Grace")

	_, err := h.svc.Activate(ctx, campaign.ID)
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrActivationFailed, e.Code)
	assert.Equal(t, "Failed to create any agents: inbox quota exceeded", e.Message)
	assert.Equal(t, http.StatusInternalServerError, e.Status())

	got, err := h.store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActivationNotStarted, got.ActivationStatus)
}

func TestActivate_ConflictIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.store.WithError("CreateAgent", types.NewError(types.ErrConflict, "agent already exists for candidate"))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Zero(t, report.AgentsCreated)
	assert.Empty(t, h.mailer.Sent())
}

func TestActivate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	_, err := h.svc.Activate(ctx, "missing")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
	e, _ := types.AsError(err)
	assert.Equal(t, "Campaign not found", e.Message)

	campaign, _ := fixtures.SeedCampaign(t, h.store)
	_, err = h.svc.Activate(ctx, campaign.ID)
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrInvalidRequest, e.Code)
	assert.Equal(t, "No candidates found for this campaign", e.Message)
}

func TestActivate_StoreErrorsPropagate(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")
	h.store.WithError("ListAgents", types.NewError(types.ErrStorage, "list agents failed"))

	_, err := h.svc.Activate(ctx, campaign.ID)
	assert.True(t, types.IsErrorCode(err, types.ErrStorage))
}

func TestActivate_DistributedLock(t *testing.T) {
	mgr, _ := testutil.NewCache(t)

	h := newHarness(t, WithLocker(mgr, time.Minute))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	// another process holds the lock
	release, err := mgr.Lock(ctx, "activation:"+campaign.ID, time.Minute)
	require.NoError(t, err)

	_, err = h.svc.Activate(ctx, campaign.ID)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConflict))

	release()
	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AgentsCreated)

	// released after the run
	again, err := mgr.Lock(ctx, "activation:"+campaign.ID, time.Minute)
	require.NoError(t, err)
	again()
}

type brokenLocker struct{}

func (brokenLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("redis unreachable")
}

func TestActivate_LockUnavailableContinues(t *testing.T) {
	h := newHarness(t, WithLocker(brokenLocker{}, 0))
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	report, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AgentsCreated)
}

func TestActivate_ConcurrentCallersCreateOneAgentEach(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada", "Grace", "Linus")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Activate(ctx, campaign.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	agents, err := h.store.ListAgents(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, agents, 3)
	assert.Len(t, h.mailer.Sent(), 3)
}

type recorder struct {
	mu     sync.Mutex
	agents []string
	emails []string
}

func (r *recorder) RecordActivationAgent(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = append(r.agents, o)
}

func (r *recorder) RecordActivationEmail(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, o)
}

func TestActivate_RecordsMetrics(t *testing.T) {
	rec := &recorder{}
	h := newHarness(t, WithRecorder(rec))
	ctx := testutil.TestContext(t)
	campaign := fixtures.Campaign()
	cands := fixtures.Candidates("Ada", "Grace")
	cands[1].Email = ""
	require.NoError(t, h.store.CreateCampaign(ctx, campaign, cands))

	_, err := h.svc.Activate(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"created", "created"}, rec.agents)
	assert.Equal(t, []string{"sent", "no_email"}, rec.emails)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	campaign, _ := fixtures.SeedCampaign(t, h.store, "Ada")

	require.NoError(t, h.svc.Pause(ctx, campaign.ID))
	got, _ := h.store.GetCampaign(ctx, campaign.ID)
	assert.Equal(t, types.ActivationPaused, got.ActivationStatus)

	require.NoError(t, h.svc.Resume(ctx, campaign.ID))
	got, _ = h.store.GetCampaign(ctx, campaign.ID)
	assert.Equal(t, types.ActivationRunning, got.ActivationStatus)

	err := h.svc.Pause(ctx, "missing")
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Campaign not found", e.Message)
}

func TestParseEmail(t *testing.T) {
	fallback := "Ada, perfect fit for exclusive Q1-Backend opportunity?"
	tests := []struct {
		name    string
		output  string
		subject string
		text    string
	}{
		{"plain json", `{"subject":"Hello Ada","text":"Body"}`, "Hello Ada", "Body"},
		{"fenced", "```json\n{\"subject\":\"Hi\",\"text\":\"Body\"}\n```", "Hi", "Body"},
		{"missing subject", `{"text":"Body only"}`, fallback, "Body only"},
		{"missing text", `{"subject":"Hi"}`, fallback, `{"subject":"Hi"}`},
		{"prose", "  Hi Ada, I saw your work.  ", fallback, "Hi Ada, I saw your work."},
		{"broken json", `{"subject": "Hi", "text": }`, fallback, `{"subject": "Hi", "text": }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEmail(tt.output, "Ada", "Q1-Backend")
			assert.Equal(t, tt.subject, got.Subject)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}

func TestFirstContactPrompt(t *testing.T) {
	campaign := &store.Campaign{Name: "Q1-Backend", JobDescriptionSummary: "Go role", Keywords: "go, postgres"}
	p := FirstContactPrompt(campaign, store.Candidate{Name: "Ada", Title: "Staff Engineer"})
	assert.Contains(t, p, "for Ada to convince")
	assert.Contains(t, p, "their current role at their company")
	assert.Contains(t, p, "CAMPAIGN: Q1-Backend")
	assert.Contains(t, p, "KEYWORDS: go, postgres")
}
