package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🧪 ParseProfiles
// =============================================================================

func TestParseProfiles(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "wrapped object",
			output: `{"candidates":[{"name":"Ada","linkedinUrl":"https://linkedin.com/in/ada","title":"CTO"}]}`,
			want:   []string{"Ada"},
		},
		{
			name:   "bare array with alternate fields",
			output: `[{"fullName":"Grace","profileUrl":"https://linkedin.com/in/grace","headline":"Admiral"}]`,
			want:   []string{"Grace"},
		},
		{
			name:   "embedded in prose",
			output: "Here you go:\n```json\n{\"candidates\":[{\"name\":\"Linus\",\"url\":\"https://linkedin.com/in/linus\"}]}\n```",
			want:   []string{"Linus"},
		},
		{
			name:   "drops entries missing url",
			output: `{"candidates":[{"name":"NoURL"},{"name":"Ken","linkedinUrl":"https://linkedin.com/in/ken"}]}`,
			want:   []string{"Ken"},
		},
		{
			name:   "free text",
			output: "I could not find anyone.",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProfiles(tt.output)
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestParseProfiles_FieldMapping(t *testing.T) {
	got := ParseProfiles(`[{"name":" Ada ","linkedInUrl":"https://linkedin.com/in/ada","currentTitle":"CTO","currentCompany":"Engines","location":"London"}]`)
	require.Len(t, got, 1)
	assert.Equal(t, types.Profile{
		Name:       "Ada",
		ProfileURL: "https://linkedin.com/in/ada",
		Title:      "CTO",
		Company:    "Engines",
		Location:   "London",
	}, got[0])
}

// =============================================================================
// 🧪 BrowserUse
// =============================================================================

type fakeBrowserUse struct {
	mu           sync.Mutex
	polls        int
	stoppedSess  []string
	tasksCreated []createTaskRequest
	failQuery    string
}

func (f *fakeBrowserUse) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bu-key", r.Header.Get("X-Browser-Use-API-Key"))
		_, _ = w.Write([]byte(`{"id":"sess-1","status":"active"}`))
	})
	mux.HandleFunc("PATCH /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.stoppedSess = append(f.stoppedSess, r.PathValue("id"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /tasks", func(w http.ResponseWriter, r *http.Request) {
		var req createTaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.tasksCreated = append(f.tasksCreated, req)
		id := "task-ok"
		if f.failQuery != "" && strings.Contains(req.Task, f.failQuery) {
			id = "task-fail"
		}
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"` + id + `","sessionId":"` + req.SessionID + `"}`))
	})
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.polls++
		first := f.polls%2 == 1
		f.mu.Unlock()
		if r.PathValue("id") == "task-fail" {
			_, _ = w.Write([]byte(`{"id":"task-fail","status":"failed","output":""}`))
			return
		}
		if first {
			_, _ = w.Write([]byte(`{"id":"task-ok","status":"started"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"task-ok","status":"finished","isSuccess":true,"output":"{\"candidates\":[{\"name\":\"Ada\",\"linkedinUrl\":\"https://linkedin.com/in/ada\"}]}"}`))
	})
	return mux
}

func newFakeBrowserUse(t *testing.T, f *fakeBrowserUse) *BrowserUse {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return newBrowserUse(httpjson.Config{
		Provider: "browser-use",
		BaseURL:  srv.URL,
		Headers:  map[string]string{"X-Browser-Use-API-Key": "bu-key"},
	}, time.Millisecond, zaptest.NewLogger(t))
}

func TestBrowserUse_SessionLifecycle(t *testing.T) {
	f := &fakeBrowserUse{}
	b := newFakeBrowserUse(t, f)
	ctx := context.Background()

	sess, err := b.StartSession(ctx)
	require.NoError(t, err)

	profiles, err := sess.Search(ctx, "golang engineer berlin")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "https://linkedin.com/in/ada", profiles[0].ProfileURL)

	require.NoError(t, sess.Stop(ctx))
	require.NoError(t, sess.Stop(ctx))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"sess-1"}, f.stoppedSess)
	require.Len(t, f.tasksCreated, 1)
	assert.Equal(t, "sess-1", f.tasksCreated[0].SessionID)
	assert.Contains(t, f.tasksCreated[0].Task, `"golang engineer berlin"`)
}

func TestBrowserUse_FailedTask(t *testing.T) {
	f := &fakeBrowserUse{failQuery: "broken"}
	b := newFakeBrowserUse(t, f)

	sess, err := b.StartSession(context.Background())
	require.NoError(t, err)
	defer sess.Stop(context.Background())

	_, err = sess.Search(context.Background(), "broken query")
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
}

// =============================================================================
// 🧪 Rod result parsing
// =============================================================================

func TestProfileFromResult(t *testing.T) {
	p, ok := ProfileFromResult(
		"Ada Lovelace - Principal Engineer - Analytical Engines | LinkedIn",
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fuk.linkedin.com%2Fin%2Fada%3Ftrk%3Dx&rut=abc",
	)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "Principal Engineer", p.Title)
	assert.Equal(t, "Analytical Engines", p.Company)
	assert.Equal(t, "https://uk.linkedin.com/in/ada", p.ProfileURL)

	p, ok = ProfileFromResult("Grace Hopper | LinkedIn", "https://www.linkedin.com/in/grace")
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", p.Name)
	assert.Empty(t, p.Title)

	_, ok = ProfileFromResult("Some company page", "https://www.linkedin.com/company/acme")
	assert.False(t, ok)
	_, ok = ProfileFromResult("Elsewhere", "https://example.com/in/ada")
	assert.False(t, ok)
}

func TestNewRod_Defaults(t *testing.T) {
	r := NewRod(config.RodConfig{Headless: true}, nil)
	assert.Equal(t, 20, r.cfg.MaxProfiles)
}
