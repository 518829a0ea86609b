package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/recruitflow/internal/database"
	"github.com/BaSui01/recruitflow/types"
)

// Store is the persistence surface shared by the pipeline, activation,
// the conversation state machine and the meeting service.
type Store interface {
	// CreateCampaign persists the campaign and all of its candidates atomically.
	CreateCampaign(ctx context.Context, campaign *Campaign, candidates []Candidate) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	SetActivationStatus(ctx context.Context, id string, status types.ActivationStatus) error

	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	ListCandidates(ctx context.Context, campaignID string) ([]Candidate, error)
	SetCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error

	// CreateAgent returns a CONFLICT error when the candidate already has an agent.
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetAgentByMailbox(ctx context.Context, mailboxID string) (*Agent, error)
	ListAgents(ctx context.Context, campaignID string) ([]Agent, error)
	SetAgentStatus(ctx context.Context, id string, status types.AgentStatus, reason types.StopReason) error

	CreateMeeting(ctx context.Context, meeting *Meeting) error
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	ListMeetings(ctx context.Context, campaignID string) ([]Meeting, error)
	// OpenMeeting returns the agent's pending or active meeting, if any.
	OpenMeeting(ctx context.Context, agentID string) (*Meeting, error)
	// TransitionMeeting moves a meeting from one status to another only if it
	// is still in from. completedAt is written once, on entry into completed.
	TransitionMeeting(ctx context.Context, id string, from, to types.MeetingStatus, at time.Time) (bool, error)
	SetMeetingSummary(ctx context.Context, id, summary string) error

	Ping(ctx context.Context) error
}

// GormStore implements Store on gorm through the pool manager.
type GormStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

var _ Store = (*GormStore)(nil)

// New creates a GormStore.
func New(pool *database.PoolManager, logger *zap.Logger) *GormStore {
	return &GormStore{
		pool:   pool,
		logger: logger.With(zap.String("component", "store")),
	}
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.pool.DB().WithContext(ctx)
}

// =============================================================================
// Campaigns
// =============================================================================

func (s *GormStore) CreateCampaign(ctx context.Context, campaign *Campaign, candidates []Candidate) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.ActivationStatus == "" {
		campaign.ActivationStatus = types.ActivationNotStarted
	}
	for i := range candidates {
		if candidates[i].ID == "" {
			candidates[i].ID = uuid.NewString()
		}
		candidates[i].CampaignID = campaign.ID
	}

	err := s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		return tx.CreateInBatches(candidates, 100).Error
	})
	if err != nil {
		return storageError("create campaign", err)
	}

	s.logger.Info("campaign stored",
		zap.String("campaign_id", campaign.ID),
		zap.Int("candidates", len(candidates)),
	)
	return nil
}

func (s *GormStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var c Campaign
	if err := s.db(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, lookupError("campaign", err)
	}
	return &c, nil
}

func (s *GormStore) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	if err := s.db(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, storageError("list campaigns", err)
	}
	return out, nil
}

func (s *GormStore) SetActivationStatus(ctx context.Context, id string, status types.ActivationStatus) error {
	if !status.Valid() {
		return types.InvalidRequest("unknown activation status " + string(status))
	}
	return s.update(ctx, &Campaign{}, "campaign", id, map[string]any{"activation_status": status})
}

// =============================================================================
// Candidates
// =============================================================================

func (s *GormStore) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	var c Candidate
	if err := s.db(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, lookupError("candidate", err)
	}
	return &c, nil
}

func (s *GormStore) ListCandidates(ctx context.Context, campaignID string) ([]Candidate, error) {
	var out []Candidate
	if err := s.db(ctx).Where("campaign_id = ?", campaignID).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, storageError("list candidates", err)
	}
	return out, nil
}

func (s *GormStore) SetCandidateStatus(ctx context.Context, id string, status types.CandidateStatus) error {
	return s.update(ctx, &Candidate{}, "candidate", id, map[string]any{"status": status})
}

// =============================================================================
// Agents
// =============================================================================

func (s *GormStore) CreateAgent(ctx context.Context, agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.Status == "" {
		agent.Status = types.AgentActive
	}
	if err := s.db(ctx).Create(agent).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return types.NewError(types.ErrConflict, "agent already exists for candidate").WithCause(err)
		}
		return storageError("create agent", err)
	}
	return nil
}

func (s *GormStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	if err := s.db(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, lookupError("agent", err)
	}
	return &a, nil
}

func (s *GormStore) GetAgentByMailbox(ctx context.Context, mailboxID string) (*Agent, error) {
	var a Agent
	if err := s.db(ctx).First(&a, "mailbox_id = ?", mailboxID).Error; err != nil {
		return nil, lookupError("agent", err)
	}
	return &a, nil
}

func (s *GormStore) ListAgents(ctx context.Context, campaignID string) ([]Agent, error) {
	var out []Agent
	if err := s.db(ctx).Where("campaign_id = ?", campaignID).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, storageError("list agents", err)
	}
	return out, nil
}

func (s *GormStore) SetAgentStatus(ctx context.Context, id string, status types.AgentStatus, reason types.StopReason) error {
	if !status.Valid() {
		return types.InvalidRequest("unknown agent status " + string(status))
	}
	if status != types.AgentStopped {
		reason = types.StopNone
	}
	return s.update(ctx, &Agent{}, "agent", id, map[string]any{
		"status":      status,
		"stop_reason": reason,
	})
}

// =============================================================================
// Meetings
// =============================================================================

func (s *GormStore) CreateMeeting(ctx context.Context, meeting *Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.Status == "" {
		meeting.Status = types.MeetingPending
	}
	if err := s.db(ctx).Create(meeting).Error; err != nil {
		return storageError("create meeting", err)
	}
	return nil
}

func (s *GormStore) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	if err := s.db(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, lookupError("meeting", err)
	}
	return &m, nil
}

func (s *GormStore) ListMeetings(ctx context.Context, campaignID string) ([]Meeting, error) {
	var out []Meeting
	if err := s.db(ctx).Where("campaign_id = ?", campaignID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, storageError("list meetings", err)
	}
	return out, nil
}

func (s *GormStore) OpenMeeting(ctx context.Context, agentID string) (*Meeting, error) {
	var m Meeting
	err := s.db(ctx).
		Where("agent_id = ? AND status IN ?", agentID, []string{string(types.MeetingPending), string(types.MeetingActive)}).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		return nil, lookupError("meeting", err)
	}
	return &m, nil
}

func (s *GormStore) TransitionMeeting(ctx context.Context, id string, from, to types.MeetingStatus, at time.Time) (bool, error) {
	if err := types.ValidateMeetingTransition(from, to); err != nil {
		return false, err
	}

	updates := map[string]any{"status": to}
	q := s.db(ctx).Model(&Meeting{}).Where("id = ? AND status = ?", id, from)
	if to == types.MeetingCompleted {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", at.UTC())
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, storageError("transition meeting", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) SetMeetingSummary(ctx context.Context, id, summary string) error {
	return s.update(ctx, &Meeting{}, "meeting", id, map[string]any{"summary": summary})
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// =============================================================================
// helpers
// =============================================================================

func (s *GormStore) update(ctx context.Context, model any, entity, id string, updates map[string]any) error {
	res := s.db(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return storageError("update "+entity, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// mysql reports zero affected rows when values are unchanged
	var n int64
	if err := s.db(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return storageError("update "+entity, err)
	}
	if n == 0 {
		return types.NotFound(entity + " not found")
	}
	return nil
}

func lookupError(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFound(entity + " not found")
	}
	return storageError("get "+entity, err)
}

func storageError(op string, err error) error {
	return types.NewError(types.ErrStorage, op+" failed").WithCause(err)
}

// IsNotFound reports whether err is a NOT_FOUND lookup miss.
func IsNotFound(err error) bool {
	return types.IsErrorCode(err, types.ErrNotFound)
}

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool {
	return types.IsErrorCode(err, types.ErrConflict)
}
