// =============================================================================
// 🗄️ MemoryStore - store.Store 的内存实现
// =============================================================================
// 语义与 GormStore 一致：查找失败返回 NOT_FOUND，重复 agent 返回 CONFLICT，
// 会议状态只能前进。
//
// 使用方法:
//
//	st := mocks.NewMemoryStore().WithError("CreateAgent", errBoom)
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/types"
)

// MemoryStore implements store.Store in memory.
type MemoryStore struct {
	mu sync.RWMutex

	campaigns  map[string]store.Campaign
	candidates map[string]store.Candidate
	agents     map[string]store.Agent
	meetings   map[string]store.Meeting

	// 插入顺序
	seq   int
	order map[string]int

	errs  map[string]error
	calls map[string]int
	now   func() time.Time
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore 创建空的内存 Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns:  make(map[string]store.Campaign),
		candidates: make(map[string]store.Candidate),
		agents:     make(map[string]store.Agent),
		meetings:   make(map[string]store.Meeting),
		order:      make(map[string]int),
		errs:       make(map[string]error),
		calls:      make(map[string]int),
		now:        time.Now,
	}
}

// WithError 让指定方法返回 err
func (m *MemoryStore) WithError(method string, err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[method] = err
	return m
}

// Calls 返回方法调用次数
func (m *MemoryStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MemoryStore) enter(method string) error {
	m.calls[method]++
	return m.errs[method]
}

func (m *MemoryStore) stamp(id string) time.Time {
	m.seq++
	m.order[id] = m.seq
	return m.now().UTC()
}

// =============================================================================
// Campaigns
// =============================================================================

func (m *MemoryStore) CreateCampaign(_ context.Context, campaign *store.Campaign, candidates []store.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateCampaign"); err != nil {
		return err
	}

	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.ActivationStatus == "" {
		campaign.ActivationStatus = types.ActivationNotStarted
	}
	campaign.CreatedAt = m.stamp(campaign.ID)
	campaign.UpdatedAt = campaign.CreatedAt
	m.campaigns[campaign.ID] = *campaign

	for i := range candidates {
		c := &candidates[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CampaignID = campaign.ID
		c.CreatedAt = m.stamp(c.ID)
		c.UpdatedAt = c.CreatedAt
		m.candidates[c.ID] = *c
	}
	return nil
}

func (m *MemoryStore) GetCampaign(_ context.Context, id string) (*store.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetCampaign"); err != nil {
		return nil, err
	}
	c, ok := m.campaigns[id]
	if !ok {
		return nil, types.NotFound("campaign not found")
	}
	return &c, nil
}

func (m *MemoryStore) ListCampaigns(_ context.Context) ([]store.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListCampaigns"); err != nil {
		return nil, err
	}
	out := make([]store.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	// 最新的在前
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m *MemoryStore) SetActivationStatus(_ context.Context, id string, status types.ActivationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetActivationStatus"); err != nil {
		return err
	}
	if !status.Valid() {
		return types.InvalidRequest("unknown activation status " + string(status))
	}
	c, ok := m.campaigns[id]
	if !ok {
		return types.NotFound("campaign not found")
	}
	c.ActivationStatus = status
	c.UpdatedAt = m.now().UTC()
	m.campaigns[id] = c
	return nil
}

// =============================================================================
// Candidates
// =============================================================================

func (m *MemoryStore) GetCandidate(_ context.Context, id string) (*store.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetCandidate"); err != nil {
		return nil, err
	}
	c, ok := m.candidates[id]
	if !ok {
		return nil, types.NotFound("candidate not found")
	}
	return &c, nil
}

func (m *MemoryStore) ListCandidates(_ context.Context, campaignID string) ([]store.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListCandidates"); err != nil {
		return nil, err
	}
	var out []store.Candidate
	for _, c := range m.candidates {
		if c.CampaignID == campaignID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

func (m *MemoryStore) SetCandidateStatus(_ context.Context, id string, status types.CandidateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetCandidateStatus"); err != nil {
		return err
	}
	c, ok := m.candidates[id]
	if !ok {
		return types.NotFound("candidate not found")
	}
	c.Status = status
	m.candidates[id] = c
	return nil
}

// =============================================================================
// Agents
// =============================================================================

func (m *MemoryStore) CreateAgent(_ context.Context, agent *store.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateAgent"); err != nil {
		return err
	}
	for _, a := range m.agents {
		if a.CandidateID == agent.CandidateID {
			return types.NewError(types.ErrConflict, "agent already exists for candidate")
		}
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.Status == "" {
		agent.Status = types.AgentActive
	}
	agent.CreatedAt = m.stamp(agent.ID)
	agent.UpdatedAt = agent.CreatedAt
	m.agents[agent.ID] = *agent
	return nil
}

func (m *MemoryStore) GetAgent(_ context.Context, id string) (*store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetAgent"); err != nil {
		return nil, err
	}
	a, ok := m.agents[id]
	if !ok {
		return nil, types.NotFound("agent not found")
	}
	return &a, nil
}

func (m *MemoryStore) GetAgentByMailbox(_ context.Context, mailboxID string) (*store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetAgentByMailbox"); err != nil {
		return nil, err
	}
	for _, a := range m.agents {
		if a.MailboxID == mailboxID {
			return &a, nil
		}
	}
	return nil, types.NotFound("agent not found")
}

func (m *MemoryStore) ListAgents(_ context.Context, campaignID string) ([]store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAgents"); err != nil {
		return nil, err
	}
	var out []store.Agent
	for _, a := range m.agents {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

func (m *MemoryStore) SetAgentStatus(_ context.Context, id string, status types.AgentStatus, reason types.StopReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetAgentStatus"); err != nil {
		return err
	}
	if !status.Valid() {
		return types.InvalidRequest("unknown agent status " + string(status))
	}
	a, ok := m.agents[id]
	if !ok {
		return types.NotFound("agent not found")
	}
	if status != types.AgentStopped {
		reason = types.StopNone
	}
	a.Status = status
	a.StopReason = reason
	m.agents[id] = a
	return nil
}

// =============================================================================
// Meetings
// =============================================================================

func (m *MemoryStore) CreateMeeting(_ context.Context, meeting *store.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateMeeting"); err != nil {
		return err
	}
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.Status == "" {
		meeting.Status = types.MeetingPending
	}
	meeting.CreatedAt = m.stamp(meeting.ID)
	meeting.UpdatedAt = meeting.CreatedAt
	m.meetings[meeting.ID] = *meeting
	return nil
}

func (m *MemoryStore) GetMeeting(_ context.Context, id string) (*store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetMeeting"); err != nil {
		return nil, err
	}
	mt, ok := m.meetings[id]
	if !ok {
		return nil, types.NotFound("meeting not found")
	}
	return &mt, nil
}

func (m *MemoryStore) ListMeetings(_ context.Context, campaignID string) ([]store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListMeetings"); err != nil {
		return nil, err
	}
	var out []store.Meeting
	for _, mt := range m.meetings {
		if mt.CampaignID == campaignID {
			out = append(out, mt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m *MemoryStore) OpenMeeting(_ context.Context, agentID string) (*store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("OpenMeeting"); err != nil {
		return nil, err
	}
	var found *store.Meeting
	for _, mt := range m.meetings {
		if mt.AgentID != agentID || mt.Status == types.MeetingCompleted {
			continue
		}
		if found == nil || m.order[mt.ID] > m.order[found.ID] {
			cp := mt
			found = &cp
		}
	}
	if found == nil {
		return nil, types.NotFound("meeting not found")
	}
	return found, nil
}

func (m *MemoryStore) TransitionMeeting(_ context.Context, id string, from, to types.MeetingStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("TransitionMeeting"); err != nil {
		return false, err
	}
	if err := types.ValidateMeetingTransition(from, to); err != nil {
		return false, err
	}
	mt, ok := m.meetings[id]
	if !ok || mt.Status != from {
		return false, nil
	}
	mt.Status = to
	if to == types.MeetingCompleted && mt.CompletedAt == nil {
		done := at.UTC()
		mt.CompletedAt = &done
	}
	m.meetings[id] = mt
	return true, nil
}

func (m *MemoryStore) SetMeetingSummary(_ context.Context, id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetMeetingSummary"); err != nil {
		return err
	}
	mt, ok := m.meetings[id]
	if !ok {
		return types.NotFound("meeting not found")
	}
	mt.Summary = summary
	m.meetings[id] = mt
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Ping")
}
