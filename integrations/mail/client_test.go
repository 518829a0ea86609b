package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newClient(httpjson.Config{Provider: "agentmail", BaseURL: srv.URL, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
}

func TestClient_CreateInbox(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /inboxes", func(w http.ResponseWriter, r *http.Request) {
		var req CreateInboxRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "recruitflow-c1-k1", req.ClientID)
		assert.Equal(t, "Jordan from Acme", req.DisplayName)
		_, _ = w.Write([]byte(`{"inbox_id":"jordan-1@agentmail.to","display_name":"Jordan from Acme","client_id":"recruitflow-c1-k1","created_at":"2026-01-02T03:04:05Z"}`))
	})
	c := newTestClient(t, mux)

	inbox, err := c.CreateInbox(context.Background(), CreateInboxRequest{DisplayName: "Jordan from Acme", ClientID: "recruitflow-c1-k1"})
	require.NoError(t, err)
	assert.Equal(t, "jordan-1@agentmail.to", inbox.InboxID)
	assert.Equal(t, 2026, inbox.CreatedAt.Year())
}

func TestClient_CreateInboxMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	_, err := c.CreateInbox(context.Background(), CreateInboxRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidResponse))
}

func TestClient_New_SetsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer am-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"count":0,"threads":[]}`))
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{APIKey: "am-key", BaseURL: srv.URL, Timeout: time.Second}, nil)
	threads, err := c.ListThreads(context.Background(), "box@agentmail.to")
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestClient_SendAndReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /inboxes/{inbox}/messages/send", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "box@agentmail.to", r.PathValue("inbox"))
		var req SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"ada@engine.io"}, req.To)
		assert.Equal(t, "Hello", req.Subject)
		_, _ = w.Write([]byte(`{"message_id":"m1","thread_id":"t1"}`))
	})
	mux.HandleFunc("POST /inboxes/{inbox}/messages/{mid}/reply", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "m2", r.PathValue("mid"))
		var req replyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Thanks!", req.Text)
		_, _ = w.Write([]byte(`{"message_id":"m3","thread_id":"t1"}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	sent, err := c.Send(ctx, "box@agentmail.to", SendRequest{To: []string{"ada@engine.io"}, Subject: "Hello", Text: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, Sent{MessageID: "m1", ThreadID: "t1"}, *sent)

	reply, err := c.Reply(ctx, "box@agentmail.to", "m2", "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, "m3", reply.MessageID)
}

func TestClient_SendRequiresRecipient(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.Send(context.Background(), "box", SendRequest{Subject: "x"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestClient_ReadThreadsAndMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inboxes/{inbox}/threads/{tid}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"thread_id":"t1","inbox_id":"box","message_count":2,"messages":[
			{"message_id":"m1","thread_id":"t1","from":"box","text":"Hi","created_at":"2026-01-01T10:00:00Z"},
			{"message_id":"m2","thread_id":"t1","from":"ada@engine.io","html":"<p>Sounds <b>great</b></p>","created_at":"2026-01-01T11:00:00Z"}]}`))
	})
	mux.HandleFunc("GET /inboxes/{inbox}/messages/{mid}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message_id":"m2","thread_id":"t1","from":"ada@engine.io","text":"Sounds great"}`))
	})
	mux.HandleFunc("GET /inboxes/{inbox}/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"messages":[{"message_id":"m2","thread_id":"t1"}]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	thread, err := c.GetThread(ctx, "box", "t1")
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "Sounds great", thread.Messages[1].Body())

	msg, err := c.GetMessage(ctx, "box", "m2")
	require.NoError(t, err)
	assert.Equal(t, "Sounds great", msg.Body())

	msgs, err := c.ListMessages(ctx, "box")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestClient_UpstreamError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	}))
	_, err := c.GetThread(context.Background(), "box", "t1")
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstreamError, e.Code)
	assert.False(t, e.Retryable)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>Hello</p><p>World</p>", "Hello\nWorld"},
		{"drops script", "<div>Hi<script>alert(1)</script></div>", "Hi"},
		{"collapses whitespace", "<p>  a \n  b  </p>", "a b"},
		{"line breaks", "one<br>two", "one\ntwo"},
		{"source wrapping", "<div>I am not\r\ninterested <b>at\nall</b></div>", "I am not interested at all"},
		{"plain text", "just text", "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}

func TestMessageBody_Fallbacks(t *testing.T) {
	assert.Equal(t, "text wins", Message{Text: " text wins ", HTML: "<p>no</p>"}.Body())
	assert.Equal(t, "preview", Message{Preview: "preview"}.Body())
	assert.Empty(t, Message{}.Body())
}
