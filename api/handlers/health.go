package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// readyTimeout bounds the whole readiness check.
const readyTimeout = 5 * time.Second

// Overall states reported by /ready.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck checks one dependency. Optional checks (redis) only degrade
// readiness; a failing required check (database) makes the service unready.
type HealthCheck interface {
	Name() string
	Optional() bool
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status   string `json:"status"` // "pass", "fail"
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// HealthHandler serves liveness, readiness and version endpoints.
type HealthHandler struct {
	logger *zap.Logger
	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger.With(zap.String("component", "health"))}
}

// RegisterCheck 注册健康检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth serves /health and /healthz. The process answering is enough.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// HandleReady serves /ready and /readyz. Checks run concurrently under one
// deadline; only required failures answer 503.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = h.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{Status: StatusHealthy, Timestamp: time.Now().UTC(), Checks: make(map[string]CheckResult, len(checks))}
	for i, check := range checks {
		res := results[i]
		status.Checks[check.Name()] = res
		if res.Status == "pass" {
			continue
		}
		switch {
		case !res.Optional:
			status.Status = StatusUnhealthy
		case status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

func (h *HealthHandler) run(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	res := CheckResult{Status: "pass", Optional: check.Optional(), Latency: latency.String()}
	if err != nil {
		res.Status = "fail"
		res.Message = err.Error()
		h.logger.Warn("health check failed",
			zap.String("check", check.Name()),
			zap.Bool("optional", res.Optional),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	}
	return res
}

// HandleVersion 处理 /version 请求
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// CheckFunc adapts a ping function to HealthCheck.
type CheckFunc struct {
	name     string
	optional bool
	ping     func(ctx context.Context) error
}

// NewCheck creates a required check.
func NewCheck(name string, ping func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, ping: ping}
}

// NewOptionalCheck creates a check whose failure only degrades readiness.
func NewOptionalCheck(name string, ping func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, optional: true, ping: ping}
}

func (c *CheckFunc) Name() string                    { return c.name }
func (c *CheckFunc) Optional() bool                  { return c.optional }
func (c *CheckFunc) Check(ctx context.Context) error { return c.ping(ctx) }
