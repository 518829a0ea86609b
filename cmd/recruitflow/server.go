package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/activation"
	"github.com/BaSui01/recruitflow/api/handlers"
	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/conversation"
	"github.com/BaSui01/recruitflow/integrations/calendar"
	"github.com/BaSui01/recruitflow/integrations/docextract"
	"github.com/BaSui01/recruitflow/integrations/enrich"
	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/integrations/research"
	"github.com/BaSui01/recruitflow/integrations/search"
	"github.com/BaSui01/recruitflow/internal/cache"
	"github.com/BaSui01/recruitflow/internal/database"
	"github.com/BaSui01/recruitflow/internal/metrics"
	"github.com/BaSui01/recruitflow/internal/migration"
	"github.com/BaSui01/recruitflow/internal/server"
	"github.com/BaSui01/recruitflow/internal/store"
	llmfactory "github.com/BaSui01/recruitflow/llm/factory"
	"github.com/BaSui01/recruitflow/llm/tokenizer"
	"github.com/BaSui01/recruitflow/meeting"
	"github.com/BaSui01/recruitflow/pipeline"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server owns every long-lived resource of a serve process.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	pool     *database.PoolManager
	cache    *cache.Manager
	registry *prometheus.Registry
	metrics  *metrics.Collector

	handler http.Handler

	httpManager    *server.Manager
	metricsManager *server.Manager

	// stops the rate limiter's cleanup goroutine
	cancel context.CancelFunc
}

// NewServer opens the database and cache and wires the services and routes.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	if err := s.openDatabase(ctx); err != nil {
		return nil, err
	}
	s.openCache()

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(s.pool.SQLDB(), cfg.Database.Driver),
	)
	s.metrics = metrics.NewCollector("recruitflow", s.registry, logger)

	mux, err := s.routes(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	limiterCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.handler = Chain(mux,
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(logger),
		Metrics(s.metrics),
		OTelTracing(),
		CORS(cfg.Server.CORSOrigins),
		RateLimiter(limiterCtx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger),
	)
	return s, nil
}

func (s *Server) openDatabase(ctx context.Context) error {
	// production schemas are managed by `recruitflow migrate`
	if s.cfg.Database.AutoMigrate && s.cfg.Database.Driver == "sqlite" {
		m, err := migration.NewMigratorFromDatabaseConfig(s.cfg.Database)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		err = m.Up(ctx)
		_ = m.Close()
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		s.logger.Info("database schema up to date")
	}

	pool, err := database.Open(s.cfg.Database, s.logger)
	if err != nil {
		return err
	}
	s.pool = pool
	return nil
}

// openCache is best effort: without Redis, activation and webhook dedupe
// fall back to in-process guards and research is not cached.
func (s *Server) openCache() {
	if s.cfg.Redis.Addr == "" {
		s.logger.Info("redis not configured, cache disabled")
		return
	}
	ccfg := cache.DefaultConfig()
	ccfg.Addr = s.cfg.Redis.Addr
	ccfg.Password = s.cfg.Redis.Password
	ccfg.DB = s.cfg.Redis.DB
	if s.cfg.Redis.PoolSize > 0 {
		ccfg.PoolSize = s.cfg.Redis.PoolSize
	}
	if s.cfg.Redis.MinIdleConns > 0 {
		ccfg.MinIdleConns = s.cfg.Redis.MinIdleConns
	}
	m, err := cache.NewManager(ccfg, s.logger)
	if err != nil {
		s.logger.Warn("redis unavailable, cache disabled", zap.Error(err))
		return
	}
	s.cache = m
}

// =============================================================================
// 🔧 Wiring
// =============================================================================

func (s *Server) routes(ctx context.Context) (*http.ServeMux, error) {
	cfg, logger := s.cfg, s.logger
	st := store.New(s.pool, logger)

	gen, err := llmfactory.NewGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm generator: %w", err)
	}

	mailer := mail.New(cfg.Integrations.AgentMail, logger)

	researchOpts := []research.Option{research.WithObserver(s.metrics)}
	activationOpts := []activation.Option{activation.WithRecorder(s.metrics)}
	conversationOpts := []conversation.Option{
		conversation.WithRecorder(s.metrics),
		conversation.WithTokenizer(tokenizer.ForModel(cfg.LLM.Model, logger), cfg.LLM.ContextTokens),
	}
	if s.cache != nil {
		researchOpts = append(researchOpts, research.WithCache(s.cache))
		activationOpts = append(activationOpts, activation.WithLocker(s.cache, cfg.Conversation.ActivationLockTTL))
		conversationOpts = append(conversationOpts, conversation.WithDeduper(s.cache))
	}

	var searcher pipeline.CandidateSearcher
	switch cfg.Pipeline.Searcher {
	case "rod":
		searcher = search.NewRod(cfg.Integrations.Rod, logger)
	default:
		searcher = search.NewBrowserUse(cfg.Integrations.BrowserUse, logger)
	}

	orchestrator := pipeline.New(pipeline.Deps{
		Extractor: docextract.New(logger),
		Research:  research.NewPerplexity(cfg.Integrations.Perplexity, logger, researchOpts...),
		Generator: gen,
		Searcher:  searcher,
		Enricher:  enrich.NewSixtyFour(cfg.Integrations.SixtyFour, logger),
		Store:     st,
	}, cfg.Pipeline, logger, pipeline.WithRecorder(s.metrics))

	activator := activation.New(st, mailer, gen, logger, activationOpts...)
	machine := conversation.New(st, mailer, gen, cfg.Conversation, logger, conversationOpts...)
	meetings := meeting.New(st, calendar.NewComposio(cfg.Integrations.Composio, logger), logger,
		meeting.WithRecorder(s.metrics))

	pipelineHandler := handlers.NewPipelineHandler(orchestrator, cfg.Server.MaxUploadBytes, cfg.Server.CORSOrigins, logger)
	campaignHandler := handlers.NewCampaignHandler(st, activator, mailer, logger)
	webhookHandler := handlers.NewWebhookHandler(machine, logger)
	meetingHandler := handlers.NewMeetingHandler(meetings, logger)
	knowledgeHandler := handlers.NewKnowledgeHandler(st, gen, logger)

	health := handlers.NewHealthHandler(logger)
	health.RegisterCheck(handlers.NewCheck("database", s.pool.Ping))
	if s.cache != nil {
		health.RegisterCheck(handlers.NewOptionalCheck("redis", s.cache.Ping))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /api/recruitment-pipeline", pipelineHandler.HandleSSE)
	mux.HandleFunc("GET /api/recruitment-pipeline/ws", pipelineHandler.HandleWebSocket)

	mux.HandleFunc("GET /api/campaigns", campaignHandler.HandleList)
	mux.HandleFunc("GET /api/campaigns/{id}", campaignHandler.HandleGet)
	mux.HandleFunc("POST /api/campaigns/{id}/activate", campaignHandler.HandleActivate)
	mux.HandleFunc("POST /api/campaigns/{id}/pause", campaignHandler.HandlePause)
	mux.HandleFunc("POST /api/campaigns/{id}/resume", campaignHandler.HandleResume)
	mux.HandleFunc("GET /api/campaigns/{id}/threads", campaignHandler.HandleThreads)
	mux.HandleFunc("GET /api/campaigns/{id}/meetings", campaignHandler.HandleMeetings)

	mux.HandleFunc("POST /api/webhooks/agentmail", webhookHandler.HandleWebhook)
	mux.HandleFunc("GET /api/webhooks/agentmail", webhookHandler.HandleInfo)

	mux.HandleFunc("POST /api/candidates/accepted", meetingHandler.HandleAccept)
	mux.HandleFunc("POST /api/meetings/start", meetingHandler.HandleStart)
	mux.HandleFunc("POST /api/meetings/end", meetingHandler.HandleEnd)
	mux.HandleFunc("POST /api/meetings/summary", meetingHandler.HandleSummary)

	mux.HandleFunc("POST /api/knowledge", knowledgeHandler.HandleQuery)
	mux.HandleFunc("GET /api/knowledge", knowledgeHandler.HandleQueryParams)

	logger.Info("routes registered",
		zap.String("searcher", cfg.Pipeline.Searcher),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("cache", s.cache != nil),
	)
	return mux, nil
}

// =============================================================================
// 🚀 Lifecycle
// =============================================================================

// Start launches the API listener and, when a port is configured, the
// metrics listener.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.httpManager = server.NewManager("api", s.handler, server.Config{
		Addr:            fmt.Sprintf(":%d", sc.HTTPPort),
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		IdleTimeout:     2 * sc.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: sc.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	if sc.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
		cfg := server.DefaultConfig()
		cfg.Addr = fmt.Sprintf(":%d", sc.MetricsPort)
		cfg.ShutdownTimeout = sc.ShutdownTimeout
		s.metricsManager = server.NewManager("metrics", mux, cfg, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	s.logger.Info("servers started",
		zap.Int("http_port", sc.HTTPPort),
		zap.Int("metrics_port", sc.MetricsPort),
	)
	return nil
}

// Managers returns the running listeners.
func (s *Server) Managers() []*server.Manager {
	var out []*server.Manager
	for _, m := range []*server.Manager{s.httpManager, s.metricsManager} {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Shutdown stops the listeners and then releases the database and cache.
// In-flight pipeline runs are detached from requests and are not awaited.
func (s *Server) Shutdown() {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, m := range s.Managers() {
		if err := m.Shutdown(ctx); err != nil {
			s.logger.Error("server shutdown failed", zap.Error(err))
		}
	}
	s.Close()
}

// Close releases the database, cache and background goroutines.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("cache close failed", zap.Error(err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Warn("database close failed", zap.Error(err))
		}
	}
}
