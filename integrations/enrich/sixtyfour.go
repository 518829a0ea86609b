// Package enrich resolves contact emails for search results.
package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

type lead struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type findEmailRequest struct {
	Lead              lead `json:"lead"`
	Bruteforce        bool `json:"bruteforce"`
	OnlyCompanyEmails bool `json:"only_company_emails"`
}

// email is a list of [address, status, type] tuples; entries may be strings or nulls.
type findEmailResponse struct {
	Name  string              `json:"name"`
	Email [][]json.RawMessage `json:"email"`
}

// SixtyFour looks up emails with the find-email endpoint.
type SixtyFour struct {
	client *httpjson.Client
	logger *zap.Logger
}

// NewSixtyFour creates the enricher.
func NewSixtyFour(cfg config.ProviderConfig, logger *zap.Logger) *SixtyFour {
	return newSixtyFour(httpjson.Config{
		Provider:   "sixtyfour",
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Headers:    map[string]string{"x-api-key": cfg.APIKey},
	}, logger)
}

func newSixtyFour(cfg httpjson.Config, logger *zap.Logger) *SixtyFour {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SixtyFour{
		client: httpjson.New(cfg, logger),
		logger: logger.With(zap.String("component", "enrich")),
	}
}

// FindEmail returns the best email for p, or "" when none is known.
func (s *SixtyFour) FindEmail(ctx context.Context, p types.Profile) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", types.InvalidRequest("lead name is required")
	}

	req := findEmailRequest{
		Lead: lead{
			Name:     p.Name,
			Company:  p.Company,
			Title:    p.Title,
			LinkedIn: p.ProfileURL,
		},
		Bruteforce: true,
	}

	var resp findEmailResponse
	if err := s.client.Post(ctx, "/find-email", req, &resp); err != nil {
		return "", err
	}

	email := firstEmail(resp.Email)
	s.logger.Debug("email lookup", zap.String("name", p.Name), zap.Bool("found", email != ""))
	return email, nil
}

// firstEmail takes the address of the first tuple.
func firstEmail(tuples [][]json.RawMessage) string {
	if len(tuples) == 0 || len(tuples[0]) == 0 {
		return ""
	}
	var addr string
	if err := json.Unmarshal(tuples[0][0], &addr); err != nil {
		return ""
	}
	return strings.TrimSpace(addr)
}
