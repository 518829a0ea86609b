// Package pipeline runs the seven-stage campaign creation pipeline and reports
// progress as an ordered stream of frames.
//
// Stages run strictly in order on a single goroutine. Only the storing stage
// writes durable state; any stage failure ends the run with an error frame
// followed by one terminal frame.
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/internal/telemetry"
	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/pipeline/queries"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🔌 依赖接口
// =============================================================================

// DocumentExtractor turns an uploaded document into text.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte) (types.Document, error)
}

// Researcher produces market research for a job summary.
type Researcher interface {
	Research(ctx context.Context, summary string) (string, error)
}

// CandidateSearcher opens one search session per run.
type CandidateSearcher interface {
	StartSession(ctx context.Context) (types.SearchSession, error)
}

// EmailEnricher resolves a contact email; "" means none was found.
type EmailEnricher interface {
	FindEmail(ctx context.Context, p types.Profile) (string, error)
}

// CampaignWriter persists a campaign with its candidates in one transaction.
type CampaignWriter interface {
	CreateCampaign(ctx context.Context, campaign *store.Campaign, candidates []store.Candidate) error
}

// Recorder receives run metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordPipelineRun(outcome string)
	RecordStage(step, status string, duration time.Duration)
	RecordSearchQuery(outcome string)
	RecordCandidates(phase string, n int)
	RecordEnrichment(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordPipelineRun(string)                  {}
func (nopRecorder) RecordStage(string, string, time.Duration) {}
func (nopRecorder) RecordSearchQuery(string)                  {}
func (nopRecorder) RecordCandidates(string, int)              {}
func (nopRecorder) RecordEnrichment(string)                   {}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Extractor DocumentExtractor
	Research  Researcher
	Generator llm.Generator
	Searcher  CandidateSearcher
	Enricher  EmailEnricher
	Store     CampaignWriter
}

// Input is one pipeline request.
type Input struct {
	Document     []byte
	CampaignName string
}

// Result summarizes a finished run.
type Result struct {
	Final    Final
	Err      error
	Searches []Outcome[[]types.Profile]
	Emails   []Outcome[string]
}

// =============================================================================
// 🎼 编排器
// =============================================================================

// Orchestrator runs pipelines.
type Orchestrator struct {
	deps    Deps
	cfg     config.PipelineConfig
	metrics Recorder
	logger  *zap.Logger

	sleep   func(ctx context.Context, d time.Duration) error
	shuffle func(n int, swap func(i, j int))
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder reports run metrics to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

// New creates an Orchestrator.
func New(deps Deps, cfg config.PipelineConfig, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		metrics: nopRecorder{},
		logger:  logger.With(zap.String("component", "pipeline")),
		sleep:   sleepCtx,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runState is the accumulator handed from stage to stage.
type runState struct {
	input      Input
	doc        types.Document
	summary    string
	research   string
	queries    []string
	searches   []Outcome[[]types.Profile]
	found      int
	candidates []types.Profile
	emails     []Outcome[string]
	campaignID string
}

type stage struct {
	step string
	run  func(ctx context.Context, st runState, em Emitter) (runState, error)
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{StepProcessingPDF, o.extract},
		{StepResearching, o.researchStage},
		{StepExtractingQueries, o.generateQueries},
		{StepSearching, o.search},
		{StepEnriching, o.enrich},
		{StepStoring, o.storeStage},
		{StepComplete, o.complete},
	}
}

// Run executes the pipeline and always finishes em with exactly one terminal frame.
// Cancelling ctx does not stop the run; it is bounded by the configured run timeout.
func (o *Orchestrator) Run(ctx context.Context, in Input, em Emitter) Result {
	runID := uuid.NewString()
	log := o.logger.With(zap.String("run_id", runID), zap.String("campaign", in.CampaignName))

	if len(in.Document) == 0 {
		return o.reject(em, "No file provided")
	}
	if strings.TrimSpace(in.CampaignName) == "" {
		return o.reject(em, "Campaign name is required")
	}

	ctx = context.WithoutCancel(ctx)
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}
	ctx, span := telemetry.StartSpan(ctx, "pipeline.run", telemetry.AttrRunID.String(runID))

	log.Info("pipeline started", zap.Int("document_bytes", len(in.Document)))
	start := time.Now()

	st := runState{input: in}
	var runErr error
	for _, s := range o.stages() {
		stageCtx, stageSpan := telemetry.StartStage(ctx, runID, s.step)
		began := time.Now()

		next, err := s.run(stageCtx, st, em)
		telemetry.EndSpan(stageSpan, err)
		if err != nil {
			o.metrics.RecordStage(s.step, string(StatusError), time.Since(began))
			log.Error("pipeline stage failed", zap.String("step", s.step), zap.Error(err))
			runErr = err
			break
		}
		o.metrics.RecordStage(s.step, string(StatusCompleted), time.Since(began))
		st = next
	}
	telemetry.EndSpan(span, runErr)

	res := Result{Err: runErr, Searches: st.searches, Emails: st.emails}
	if runErr != nil {
		msg := errorMessage(runErr)
		em.Emit(Frame{Step: StepError, Status: StatusError, Message: "Pipeline error: " + msg})
		res.Final = Final{Success: false, Error: msg}
		em.Finish(res.Final)
		o.metrics.RecordPipelineRun("failure")
		return res
	}

	res.Final = Final{Success: true, CampaignID: st.campaignID, Candidates: st.candidates}
	em.Finish(res.Final)
	o.metrics.RecordPipelineRun("success")
	log.Info("pipeline finished",
		zap.String("campaign_id", st.campaignID),
		zap.Int("candidates", len(st.candidates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

func (o *Orchestrator) reject(em Emitter, msg string) Result {
	final := Final{Success: false, Error: msg}
	em.Finish(final)
	o.metrics.RecordPipelineRun("rejected")
	return Result{Final: final, Err: types.InvalidRequest(msg)}
}

// errorMessage is the user-facing text of err.
func errorMessage(err error) string {
	if e, ok := types.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}

// =============================================================================
// 🧱 阶段实现
// =============================================================================

func (o *Orchestrator) extract(ctx context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{Step: StepProcessingPDF, Status: StatusProcessing, Message: "Processing PDF and extracting recruitment information..."})

	doc, err := o.deps.Extractor.Extract(ctx, st.input.Document)
	if err != nil {
		return st, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return st, types.NewError(types.ErrExtractionEmpty, "No text could be extracted from the PDF")
	}

	st.doc = doc
	st.summary = doc.Text
	em.Emit(Frame{
		Step:    StepProcessingPDF,
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Extracted %d pages and %d characters", doc.Pages, doc.Chars()),
		Data:    map[string]any{"pages": doc.Pages, "characters": doc.Chars()},
	})
	return st, nil
}

func (o *Orchestrator) researchStage(ctx context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{Step: StepResearching, Status: StatusProcessing, Message: "Researching market trends and skills..."})

	research, err := o.deps.Research.Research(ctx, st.summary)
	if err != nil {
		return st, err
	}
	st.research = research
	em.Emit(Frame{
		Step:    StepResearching,
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Completed market research (%dK characters)", (len(research)+500)/1000),
		Data:    map[string]any{"researchLength": len(research)},
	})
	return st, nil
}

func (o *Orchestrator) generateQueries(ctx context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{Step: StepExtractingQueries, Status: StatusProcessing, Message: "Generating search queries from enriched context..."})

	text, err := o.deps.Generator.Generate(ctx, QueryPrompt(st.summary, st.research))
	if err != nil {
		return st, err
	}

	all := queries.Extract(text)
	st.queries = all
	if o.cfg.QueryCap > 0 && len(all) > o.cfg.QueryCap {
		st.queries = all[:o.cfg.QueryCap]
	}
	em.Emit(Frame{
		Step:    StepExtractingQueries,
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Generated %d search queries (using top %d)", len(all), len(st.queries)),
		Data:    map[string]any{"queryCount": len(st.queries), "queries": st.queries},
	})
	return st, nil
}

func (o *Orchestrator) search(ctx context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{
		Step:    StepSearching,
		Status:  StatusProcessing,
		Message: fmt.Sprintf("Searching for candidates using %d search queries...", len(st.queries)),
	})

	st.searches = nil
	if len(st.queries) > 0 {
		session, err := o.deps.Searcher.StartSession(ctx)
		if err != nil {
			return st, err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := session.Stop(stopCtx); err != nil {
				o.logger.Warn("search session stop failed", zap.Error(err))
			}
		}()

		for i, q := range st.queries {
			if i > 0 {
				if err := o.sleep(ctx, o.cfg.SearchDelay); err != nil {
					return st, err
				}
			}
			profiles, err := session.Search(ctx, q)
			st.searches = append(st.searches, Outcome[[]types.Profile]{Item: q, Value: profiles, Err: err})

			data := map[string]any{"query": q, "index": i + 1, "total": len(st.queries), "found": len(profiles)}
			if err != nil {
				o.metrics.RecordSearchQuery("error")
				o.logger.Warn("search query failed", zap.String("query", q), zap.Error(err))
				data["error"] = errorMessage(err)
			} else {
				o.metrics.RecordSearchQuery("ok")
			}
			em.Emit(Frame{Step: StepSearching, Status: StatusProcessing, Message: fmt.Sprintf("Query %d/%d finished", i+1, len(st.queries)), Data: data})
		}
	}

	unique := dedupe(st.searches)
	st.found = len(unique)
	o.shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })
	if o.cfg.CandidateCap > 0 && len(unique) > o.cfg.CandidateCap {
		unique = unique[:o.cfg.CandidateCap]
	}
	st.candidates = unique
	o.metrics.RecordCandidates("found", st.found)
	o.metrics.RecordCandidates("selected", len(unique))

	names := make([]string, 0, len(unique))
	for _, c := range unique {
		if strings.TrimSpace(c.Name) != "" {
			names = append(names, c.Name)
		}
	}
	namesText := "No candidates found"
	if len(names) > 0 {
		namesText = strings.Join(names, ", ")
	}
	em.Emit(Frame{
		Step:    StepSearching,
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Found %d candidates, selected %d: %s", st.found, len(unique), namesText),
		Data: map[string]any{
			"candidateCount": len(unique),
			"totalCount":     st.found,
			"candidateNames": names,
			"failedQueries":  len(Failed(st.searches)),
		},
	})
	return st, nil
}

// dedupe merges successful results in order, keeping the first profile per URL.
// Profiles without a URL cannot collide and are all kept.
func dedupe(searches []Outcome[[]types.Profile]) []types.Profile {
	seen := make(map[string]struct{})
	out := make([]types.Profile, 0)
	for _, s := range searches {
		if !s.OK() {
			continue
		}
		for _, p := range s.Value {
			key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(p.ProfileURL)), "/")
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			out = append(out, p)
		}
	}
	return out
}

func (o *Orchestrator) enrich(ctx context.Context, st runState, em Emitter) (runState, error) {
	total := len(st.candidates)
	em.Emit(Frame{Step: StepEnriching, Status: StatusProcessing, Message: fmt.Sprintf("Enriching emails for %d candidates...", total)})

	enriched := make([]types.Profile, total)
	copy(enriched, st.candidates)
	st.emails = make([]Outcome[string], 0, total)

	for i := range enriched {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.EnrichDelay); err != nil {
				return st, err
			}
		}
		c := &enriched[i]

		outcome := Outcome[string]{Item: c.Name}
		switch {
		case strings.TrimSpace(c.ProfileURL) == "":
			o.metrics.RecordEnrichment("skipped")
		default:
			email, err := o.deps.Enricher.FindEmail(ctx, *c)
			outcome.Value, outcome.Err = email, err
			switch {
			case err != nil:
				o.metrics.RecordEnrichment("error")
				o.logger.Warn("email lookup failed", zap.String("candidate", c.Name), zap.Error(err))
			case email != "":
				c.Email = email
				o.metrics.RecordEnrichment("found")
			default:
				o.metrics.RecordEnrichment("not_found")
			}
		}
		st.emails = append(st.emails, outcome)

		found := c.Email != ""
		status := "no email found"
		if found {
			status = "email found"
		}
		em.Emit(Frame{
			Step:    StepEnriching,
			Status:  StatusProcessing,
			Message: fmt.Sprintf("%s - %s (%d/%d)", c.Name, status, i+1, total),
			Data: map[string]any{
				"progress":      i + 1,
				"total":         total,
				"candidateName": c.Name,
				"emailFound":    found,
			},
		})
	}
	st.candidates = enriched

	var withEmail, without []string
	for _, c := range enriched {
		if c.Email != "" {
			withEmail = append(withEmail, c.Name)
		} else {
			without = append(without, c.Name)
		}
	}
	msg := fmt.Sprintf("Enriched %d out of %d candidate emails", len(withEmail), total)
	if len(withEmail) > 0 {
		msg += "\nEmail found: " + strings.Join(withEmail, ", ")
	}
	if len(without) > 0 {
		msg += "\nNo email: " + strings.Join(without, ", ")
	}
	em.Emit(Frame{
		Step:    StepEnriching,
		Status:  StatusCompleted,
		Message: msg,
		Data: map[string]any{
			"enrichedCount": len(withEmail),
			"totalCount":    total,
			"enrichedNames": withEmail,
			"noEmailNames":  without,
		},
	})
	return st, nil
}

func (o *Orchestrator) storeStage(ctx context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{
		Step:    StepStoring,
		Status:  StatusProcessing,
		Message: fmt.Sprintf("Storing campaign and %d candidates in database...", len(st.candidates)),
	})

	campaign := &store.Campaign{
		Name:                  st.input.CampaignName,
		JobDescriptionSummary: st.summary,
		MarketResearch:        st.research,
		Keywords:              strings.Join(st.queries, ", "),
		ActivationStatus:      types.ActivationNotStarted,
	}
	rows := make([]store.Candidate, 0, len(st.candidates))
	for _, c := range st.candidates {
		rows = append(rows, store.Candidate{
			Name:       c.Name,
			Email:      c.Email,
			ProfileURL: c.ProfileURL,
			Title:      c.Title,
			Company:    c.Company,
		})
	}
	if err := o.deps.Store.CreateCampaign(ctx, campaign, rows); err != nil {
		return st, err
	}
	st.campaignID = campaign.ID

	em.Emit(Frame{
		Step:    StepStoring,
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Data stored successfully in campaign %s", campaign.ID),
		Data:    map[string]any{"campaignId": campaign.ID},
	})
	return st, nil
}

func (o *Orchestrator) complete(_ context.Context, st runState, em Emitter) (runState, error) {
	em.Emit(Frame{
		Step:    StepComplete,
		Status:  StatusCompleted,
		Message: "Pipeline completed successfully",
		Data:    map[string]any{"campaignId": st.campaignID, "candidateCount": len(st.candidates)},
	})
	return st, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
