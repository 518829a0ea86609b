// Package search finds candidate profiles for a search query.
//
// Two backends share one session-per-run contract (types.SearchSession):
// the browser-use cloud agent and a local headless browser driven by go-rod.
package search

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/recruitflow/llm"
	"github.com/BaSui01/recruitflow/types"
)

// rawProfile accepts the field spellings agents tend to produce.
type rawProfile struct {
	Name           string `json:"name"`
	FullName       string `json:"fullName"`
	LinkedinURL    string `json:"linkedinUrl"`
	LinkedInURL    string `json:"linkedInUrl"`
	URL            string `json:"url"`
	ProfileURL     string `json:"profileUrl"`
	Title          string `json:"title"`
	Headline       string `json:"headline"`
	CurrentTitle   string `json:"currentTitle"`
	Company        string `json:"company"`
	CurrentCompany string `json:"currentCompany"`
	Location       string `json:"location"`
}

func (r rawProfile) profile() types.Profile {
	return types.Profile{
		Name:       strings.TrimSpace(firstNonEmpty(r.Name, r.FullName)),
		ProfileURL: strings.TrimSpace(firstNonEmpty(r.LinkedinURL, r.URL, r.ProfileURL, r.LinkedInURL)),
		Title:      strings.TrimSpace(firstNonEmpty(r.Title, r.Headline, r.CurrentTitle)),
		Company:    strings.TrimSpace(firstNonEmpty(r.Company, r.CurrentCompany)),
		Location:   strings.TrimSpace(r.Location),
	}
}

// ParseProfiles reads agent output: either {"candidates":[...]}, a bare array,
// or either of those embedded in prose. Entries without a name or URL are dropped.
func ParseProfiles(output string) []types.Profile {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}

	if ps, ok := decodeProfiles([]byte(output)); ok {
		return ps
	}
	if obj := llm.ExtractJSONObject(output); obj != "" {
		if ps, ok := decodeProfiles([]byte(obj)); ok {
			return ps
		}
	}
	if start, end := strings.IndexByte(output, '['), strings.LastIndexByte(output, ']'); start >= 0 && end > start {
		if ps, ok := decodeProfiles([]byte(output[start : end+1])); ok {
			return ps
		}
	}
	return nil
}

func decodeProfiles(data []byte) ([]types.Profile, bool) {
	var wrapped struct {
		Candidates []json.RawMessage `json:"candidates"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Candidates != nil {
		return collect(wrapped.Candidates), true
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return collect(list), true
	}
	return nil, false
}

func collect(items []json.RawMessage) []types.Profile {
	out := make([]types.Profile, 0, len(items))
	for _, item := range items {
		var r rawProfile
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		p := r.profile()
		if p.Name == "" || p.ProfileURL == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
