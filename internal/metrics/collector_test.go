package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector() *Collector {
	return NewCollector("recruitflow_test", prometheus.NewRegistry(), zap.NewNop())
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := newTestCollector()

	c.RecordHTTPRequest("GET", "/api/campaigns", 200, 100*time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/campaigns", 204, 50*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/webhooks/agentmail", 404, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/campaigns", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/webhooks/agentmail", "4xx")))
}

func TestCollector_PipelineMetrics(t *testing.T) {
	c := newTestCollector()

	c.RecordPipelineRun("success")
	c.RecordStage("searching-linkedin", "completed", 12*time.Second)
	c.RecordSearchQuery("ok")
	c.RecordSearchQuery("error")
	c.RecordCandidates("found", 7)
	c.RecordCandidates("stored", 0)
	c.RecordEnrichment("found")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.pipelineRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchQueriesTotal.WithLabelValues("error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.candidatesTotal.WithLabelValues("found")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.candidatesTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(c.pipelineStageDuration))
}

func TestCollector_OutreachMetrics(t *testing.T) {
	c := newTestCollector()

	c.RecordActivationAgent("created")
	c.RecordActivationEmail("sent")
	c.RecordWebhookDecision("rejected")
	c.RecordMeetingTransition("completed")
	c.RecordCacheHit("research")
	c.RecordCacheMiss("research")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.webhookEventsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.meetingTransitions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("research")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		c.RecordPipelineRun("failure")
		c.RecordStage("complete", "completed", time.Second)
		c.RecordWebhookDecision("replied")
		c.RecordCacheHit("research")
	})
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(200))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "101", statusCode(101))
}
