package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/api"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/types"
)

// NoAnswer is returned when the model produced nothing.
const NoAnswer = "I apologize, but I could not generate a response at this time."

// KnowledgeHandler answers questions about a campaign from its stored context.
type KnowledgeHandler struct {
	store     CampaignReader
	generator llm.Generator
	logger    *zap.Logger
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(st CampaignReader, gen llm.Generator, logger *zap.Logger) *KnowledgeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeHandler{store: st, generator: gen, logger: logger.With(zap.String("component", "knowledge_handler"))}
}

// HandleQuery 处理 POST /api/knowledge
func (h *KnowledgeHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req api.KnowledgeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	h.answer(w, r, req)
}

// HandleQueryParams 处理 GET /api/knowledge?query=...&campaignId=...
func (h *KnowledgeHandler) HandleQueryParams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := api.KnowledgeRequest{Query: q.Get("query"), CampaignID: q.Get("campaignId")}
	if req.Query == "" || req.CampaignID == "" {
		WriteError(w, types.InvalidRequest("Query and campaignId are required as query parameters"), h.logger)
		return
	}
	h.answer(w, r, req)
}

func (h *KnowledgeHandler) answer(w http.ResponseWriter, r *http.Request, req api.KnowledgeRequest) {
	ctx := r.Context()
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, types.InvalidRequest("Query is required"), h.logger)
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		WriteError(w, types.InvalidRequest("Campaign ID is required"), h.logger)
		return
	}

	campaign, err := h.store.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		if store.IsNotFound(err) {
			err = types.NotFound("Campaign not found")
		}
		WriteServiceError(w, err, h.logger)
		return
	}
	candidates, err := h.store.ListCandidates(ctx, campaign.ID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	agents, err := h.store.ListAgents(ctx, campaign.ID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	out, err := h.generator.Generate(ctx, KnowledgePrompt(campaign, candidates, agents, req.Query))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	answer := strings.TrimSpace(out)
	if answer == "" {
		answer = NoAnswer
	}
	h.logger.Info("knowledge query answered",
		zap.String("campaign_id", campaign.ID),
		zap.Int("answer_chars", len(answer)),
	)

	WriteJSON(w, http.StatusOK, api.KnowledgeResponse{
		Success: true,
		Query:   req.Query,
		Answer:  answer,
		Context: api.KnowledgeContext{
			CampaignName:   campaign.Name,
			CandidateCount: len(candidates),
			AgentCount:     len(agents),
		},
	})
}

// KnowledgePrompt grounds a question in everything stored for the campaign.
func KnowledgePrompt(campaign *store.Campaign, candidates []store.Candidate, agents []store.Agent, query string) string {
	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}
	orNot := func(v, missing string) string {
		if v == "" {
			return missing
		}
		return v
	}

	var b strings.Builder
	b.WriteString("You are a knowledgeable recruitment assistant with access to comprehensive campaign and candidate information.\n\n")
	b.WriteString("CAMPAIGN CONTEXT:\n")
	fmt.Fprintf(&b, "- Campaign Name: %s\n", campaign.Name)
	fmt.Fprintf(&b, "- Job Description: %s\n", campaign.JobDescriptionSummary)
	fmt.Fprintf(&b, "- Market Research: %s\n", campaign.MarketResearch)
	fmt.Fprintf(&b, "- Keywords: %s\n\n", strings.Join(splitKeywords(campaign.Keywords), ", "))

	fmt.Fprintf(&b, "CANDIDATES (%d total):\n", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name)
		fmt.Fprintf(&b, "   - Email: %s\n", orNot(c.Email, "Not provided"))
		fmt.Fprintf(&b, "   - Title: %s\n", orNot(c.Title, "Not specified"))
		fmt.Fprintf(&b, "   - Company: %s\n", orNot(c.Company, "Not specified"))
		fmt.Fprintf(&b, "   - Profile: %s\n", orNot(c.ProfileURL, "Not provided"))
	}

	fmt.Fprintf(&b, "\nAGENTS (%d total):\n", len(agents))
	for i, a := range agents {
		fmt.Fprintf(&b, "%d. Agent Email: %s\n", i+1, a.MailboxEmail)
		fmt.Fprintf(&b, "   - Status: %s\n", a.Status)
		fmt.Fprintf(&b, "   - Target: %s\n", orNot(names[a.CandidateID], "Not assigned"))
	}

	fmt.Fprintf(&b, "\nUSER QUERY: %s\n\n", query)
	b.WriteString(`Answer the query using the campaign and candidate context above.
Reference actual data when relevant and draw on the market research and job description.
Be concise but informative. If the information is not available, say so clearly.`)
	return b.String()
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
