package search

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// ☁️ browser-use 云端搜索
// =============================================================================

const defaultPollInterval = 3 * time.Second

type createSessionRequest struct {
	ProfileID *string `json:"profileId"`
}

type sessionView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createTaskRequest struct {
	Task      string `json:"task"`
	SessionID string `json:"sessionId"`
}

type taskView struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Output    string `json:"output"`
	IsSuccess *bool  `json:"isSuccess"`
}

type actionRequest struct {
	Action string `json:"action"`
}

// BrowserUse runs LinkedIn searches as browser-use agent tasks.
type BrowserUse struct {
	client *httpjson.Client
	poll   time.Duration
	logger *zap.Logger
}

// NewBrowserUse creates the cloud searcher.
func NewBrowserUse(cfg config.ProviderConfig, logger *zap.Logger) *BrowserUse {
	return newBrowserUse(httpjson.Config{
		Provider:   "browser-use",
		BaseURL:    cfg.BaseURL,
		Timeout:    30 * time.Second,
		MaxRetries: cfg.MaxRetries,
		Headers:    map[string]string{"X-Browser-Use-API-Key": cfg.APIKey},
	}, defaultPollInterval, logger)
}

func newBrowserUse(cfg httpjson.Config, poll time.Duration, logger *zap.Logger) *BrowserUse {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserUse{
		client: httpjson.New(cfg, logger),
		poll:   poll,
		logger: logger.With(zap.String("component", "search"), zap.String("backend", "browser-use")),
	}
}

// StartSession opens one remote browser session for a whole pipeline run.
func (b *BrowserUse) StartSession(ctx context.Context) (types.SearchSession, error) {
	var s sessionView
	if err := b.client.Post(ctx, "/sessions", createSessionRequest{}, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, types.NewError(types.ErrInvalidResponse, "session id missing").WithProvider("browser-use")
	}
	b.logger.Info("search session started", zap.String("session_id", s.ID))
	return &browserUseSession{owner: b, id: s.ID}, nil
}

type browserUseSession struct {
	owner *BrowserUse
	id    string
	once  sync.Once
}

func (s *browserUseSession) Search(ctx context.Context, query string) ([]types.Profile, error) {
	b := s.owner

	var task taskView
	if err := b.client.Post(ctx, "/tasks", createTaskRequest{Task: TaskPrompt(query), SessionID: s.id}, &task); err != nil {
		return nil, err
	}

	final, err := b.waitForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if final.Status == "failed" || (final.IsSuccess != nil && !*final.IsSuccess && final.Output == "") {
		return nil, types.NewError(types.ErrUpstreamError, fmt.Sprintf("search task %s failed", task.ID)).WithProvider("browser-use")
	}

	profiles := ParseProfiles(final.Output)
	b.logger.Info("search task finished",
		zap.String("task_id", task.ID),
		zap.Int("profiles", len(profiles)),
	)
	return profiles, nil
}

func (b *BrowserUse) waitForTask(ctx context.Context, id string) (*taskView, error) {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		var t taskView
		if err := b.client.Get(ctx, "/tasks/"+id, nil, &t); err != nil {
			return nil, err
		}
		switch t.Status {
		case "finished", "stopped", "failed":
			return &t, nil
		}

		select {
		case <-ctx.Done():
			// stop the remote task so it does not keep the session busy
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			_ = b.client.Do(stopCtx, http.MethodPatch, "/tasks/"+id, actionRequest{Action: "stop"}, nil)
			cancel()
			return nil, httpjson.TransportError("browser-use", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *browserUseSession) Stop(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.owner.client.Do(ctx, http.MethodPatch, "/sessions/"+s.id, actionRequest{Action: "stop"}, nil)
		s.owner.logger.Info("search session stopped", zap.String("session_id", s.id), zap.Error(err))
	})
	return err
}

// TaskPrompt is the agent instruction for one LinkedIn search.
func TaskPrompt(query string) string {
	return fmt.Sprintf(`Search LinkedIn for candidates matching this search query: "%s".

For each candidate found, you must extract and return the following information in a JSON format:
{
  "candidates": [
    {
      "name": "Full name of the candidate",
      "linkedinUrl": "Complete LinkedIn profile URL",
      "title": "Current job title (if available)",
      "company": "Current company name (if available)",
      "location": "Location of the candidate (if available)"
    }
  ]
}

Instructions:
1. Go to LinkedIn (linkedin.com)
2. Search for the query: "%s"
3. Visit each profile page (up to 20 candidates)
4. Extract the name, LinkedIn URL, title, company, and location
5. Return the results as a JSON object with the structure above`, query, query)
}
