// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record 方法对 nil 接收者安全，
// 便于在测试中直接传 nil。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 流水线指标
	pipelineRunsTotal     *prometheus.CounterVec
	pipelineStageDuration *prometheus.HistogramVec
	searchQueriesTotal    *prometheus.CounterVec
	candidatesTotal       *prometheus.CounterVec
	enrichmentTotal       *prometheus.CounterVec

	// 外联与会话指标
	activationAgentsTotal *prometheus.CounterVec
	activationEmailsTotal *prometheus.CounterVec
	webhookEventsTotal    *prometheus.CounterVec
	meetingTransitions    *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg（nil 时使用默认注册表）
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.pipelineRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Recruitment pipeline runs by outcome",
		},
		[]string{"outcome"},
	)
	c.pipelineStageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"step", "status"},
	)
	c.searchQueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Candidate search queries by outcome",
		},
		[]string{"outcome"},
	)
	c.candidatesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_candidates_total",
			Help:      "Candidates seen per pipeline phase (found, deduplicated, stored)",
		},
		[]string{"phase"},
	)
	c.enrichmentTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_enrichment_total",
			Help:      "Email enrichment lookups by outcome",
		},
		[]string{"outcome"},
	)

	c.activationAgentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_agents_total",
			Help:      "Agents provisioned by campaign activation",
		},
		[]string{"outcome"},
	)
	c.activationEmailsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_emails_total",
			Help:      "First-contact emails by outcome",
		},
		[]string{"outcome"},
	)
	c.webhookEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound message events by state machine decision",
		},
		[]string{"decision"},
	)
	c.meetingTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_transitions_total",
			Help:      "Meeting lifecycle transitions",
		},
		[]string{"to"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)
	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPipelineRun 记录一次流水线运行结果（success / failure）
func (c *Collector) RecordPipelineRun(outcome string) {
	if c == nil {
		return
	}
	c.pipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordStage 记录阶段耗时
func (c *Collector) RecordStage(step, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.pipelineStageDuration.WithLabelValues(step, status).Observe(duration.Seconds())
}

// RecordSearchQuery 记录单个搜索查询结果（ok / error）
func (c *Collector) RecordSearchQuery(outcome string) {
	if c == nil {
		return
	}
	c.searchQueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordCandidates 记录某阶段的候选人数量
func (c *Collector) RecordCandidates(phase string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.candidatesTotal.WithLabelValues(phase).Add(float64(n))
}

// RecordEnrichment 记录邮箱补全结果（found / not_found / skipped / error）
func (c *Collector) RecordEnrichment(outcome string) {
	if c == nil {
		return
	}
	c.enrichmentTotal.WithLabelValues(outcome).Inc()
}

// RecordActivationAgent 记录代理创建结果（created / exists / error）
func (c *Collector) RecordActivationAgent(outcome string) {
	if c == nil {
		return
	}
	c.activationAgentsTotal.WithLabelValues(outcome).Inc()
}

// RecordActivationEmail 记录首封邮件结果（sent / no_email / error）
func (c *Collector) RecordActivationEmail(outcome string) {
	if c == nil {
		return
	}
	c.activationEmailsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookDecision 记录状态机决策
func (c *Collector) RecordWebhookDecision(decision string) {
	if c == nil {
		return
	}
	c.webhookEventsTotal.WithLabelValues(decision).Inc()
}

// RecordMeetingTransition 记录会议状态迁移
func (c *Collector) RecordMeetingTransition(to string) {
	if c == nil {
		return
	}
	c.meetingTransitions.WithLabelValues(to).Inc()
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return strconv.Itoa(code)
	}
}
