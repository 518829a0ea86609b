package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

func TestSixtyFour_FindEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/find-email", r.URL.Path)
		assert.Equal(t, "sf-key", r.Header.Get("x-api-key"))

		var req findEmailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada Lovelace", req.Lead.Name)
		assert.Equal(t, "https://linkedin.com/in/ada", req.Lead.LinkedIn)
		assert.True(t, req.Bruteforce)
		assert.False(t, req.OnlyCompanyEmails)

		_, _ = w.Write([]byte(`{"name":"Ada Lovelace","email":[["ada@engine.io","OK","COMPANY"],["a@x.io","UNKNOWN",null]]}`))
	}))
	defer srv.Close()

	s := NewSixtyFour(config.ProviderConfig{APIKey: "sf-key", BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	email, err := s.FindEmail(context.Background(), types.Profile{
		Name:       "Ada Lovelace",
		ProfileURL: "https://linkedin.com/in/ada",
		Company:    "Analytical Engines",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@engine.io", email)
}

func TestSixtyFour_NoEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Nobody","email":[]}`))
	}))
	defer srv.Close()

	s := newSixtyFour(httpjson.Config{Provider: "sixtyfour", BaseURL: srv.URL}, nil)
	email, err := s.FindEmail(context.Background(), types.Profile{Name: "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestSixtyFour_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer srv.Close()

	s := newSixtyFour(httpjson.Config{Provider: "sixtyfour", BaseURL: srv.URL}, nil)
	_, err := s.FindEmail(context.Background(), types.Profile{Name: "Ada"})
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
}

func TestSixtyFour_RequiresName(t *testing.T) {
	s := newSixtyFour(httpjson.Config{Provider: "sixtyfour", BaseURL: "http://unused"}, nil)
	_, err := s.FindEmail(context.Background(), types.Profile{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestFirstEmail(t *testing.T) {
	raw := func(s string) json.RawMessage { return json.RawMessage(s) }
	assert.Empty(t, firstEmail(nil))
	assert.Empty(t, firstEmail([][]json.RawMessage{{}}))
	assert.Empty(t, firstEmail([][]json.RawMessage{{raw("null")}}))
	assert.Equal(t, "x@y.z", firstEmail([][]json.RawMessage{{raw(`" x@y.z "`), raw(`"OK"`)}}))
}
