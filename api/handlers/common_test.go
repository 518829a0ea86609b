package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            *types.Error
		expectedStatus int
	}{
		{"invalid request", types.InvalidRequest("Campaign ID is required"), http.StatusBadRequest},
		{"not found", types.NotFound("Campaign not found"), http.StatusNotFound},
		{"conflict", types.NewError(types.ErrConflict, "activation already running"), http.StatusConflict},
		{"transition", types.NewError(types.ErrInvalidTransition, "bad move"), http.StatusConflict},
		{"upstream", types.Upstream("agentmail", 503, "mailbox down"), http.StatusBadGateway},
		{"explicit status", types.NewError(types.ErrActivationFailed, "no agents").WithHTTPStatus(500), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.err.Message, decodeError(t, w))
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteServiceError(w, errors.New("db down"), zap.NewNop())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", decodeError(t, w))

	w = httptest.NewRecorder()
	WriteServiceError(w, types.NotFound("Meeting not found"), zap.NewNop())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Meeting not found", decodeError(t, w))
}

func TestDecodeJSONBody(t *testing.T) {
	logger := zap.NewNop()

	type TestStruct struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid JSON", `{"name":"test","value":123}`, false},
		{"unknown field tolerated", `{"name":"test","value":123,"extra":true}`, false},
		{"invalid JSON", `{"name":"test",}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tt.body))

			var result TestStruct
			err := DecodeJSONBody(w, r, &result, logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", result.Name)
			assert.Equal(t, 123, result.Value)
		})
	}
}

func TestDecodeJSONBody_MaxBodySize(t *testing.T) {
	oversized := `{"name":"` + strings.Repeat("x", 2<<20) + `"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(oversized))

	var result struct{ Name string }
	err := DecodeJSONBody(w, r, &result, zap.NewNop())

	require.Error(t, err)
	assert.Equal(t, "Request body too large", decodeError(t, w))
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/json; charset=UTF-8", true},
		{"application/json;  charset=utf-8", true},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/test", nil)
			r.Header.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, ValidateContentType(w, r, zap.NewNop()))
		})
	}
}
