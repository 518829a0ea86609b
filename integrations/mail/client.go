// Package mail is the AgentMail client: per-candidate inboxes, outbound mail,
// replies and thread reads, plus the inbound webhook payload.
package mail

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 📬 数据结构
// =============================================================================

// Inbox is a provisioned mailbox. InboxID is also its email address.
type Inbox struct {
	InboxID     string    `json:"inbox_id"`
	DisplayName string    `json:"display_name,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one email in an inbox.
type Message struct {
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id"`
	InboxID   string    `json:"inbox_id"`
	From      string    `json:"from"`
	To        []string  `json:"to,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Text      string    `json:"text,omitempty"`
	HTML      string    `json:"html,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread groups the messages of one conversation.
type Thread struct {
	ThreadID     string    `json:"thread_id"`
	InboxID      string    `json:"inbox_id"`
	Subject      string    `json:"subject,omitempty"`
	Preview      string    `json:"preview,omitempty"`
	Senders      []string  `json:"senders,omitempty"`
	Recipients   []string  `json:"recipients,omitempty"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages,omitempty"`
}

// Sent identifies a message accepted for delivery.
type Sent struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// CreateInboxRequest provisions an inbox. ClientID makes the call idempotent:
// repeating it returns the inbox created the first time.
type CreateInboxRequest struct {
	Username    string `json:"username,omitempty"`
	Domain      string `json:"domain,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
}

// SendRequest is an outbound email.
type SendRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

type replyRequest struct {
	Text string `json:"text"`
}

type listThreadsResponse struct {
	Count   int      `json:"count"`
	Threads []Thread `json:"threads"`
}

type listMessagesResponse struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

// =============================================================================
// 🔌 客户端
// =============================================================================

// Client talks to the AgentMail v0 REST API.
type Client struct {
	client *httpjson.Client
	logger *zap.Logger
}

// New creates the client.
func New(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	return newClient(httpjson.Config{
		Provider:   "agentmail",
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
	}, logger)
}

func newClient(cfg httpjson.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: httpjson.New(cfg, logger),
		logger: logger.With(zap.String("component", "mail")),
	}
}

func inboxPath(inboxID string, rest ...string) string {
	p := "/inboxes/" + url.PathEscape(inboxID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// CreateInbox provisions a mailbox.
func (c *Client) CreateInbox(ctx context.Context, req CreateInboxRequest) (*Inbox, error) {
	var inbox Inbox
	if err := c.client.Post(ctx, "/inboxes", req, &inbox); err != nil {
		return nil, err
	}
	if inbox.InboxID == "" {
		return nil, types.NewError(types.ErrInvalidResponse, "inbox id missing").WithProvider("agentmail")
	}
	c.logger.Info("inbox created", zap.String("inbox_id", inbox.InboxID), zap.String("client_id", req.ClientID))
	return &inbox, nil
}

// Send starts a new thread from inboxID.
func (c *Client) Send(ctx context.Context, inboxID string, req SendRequest) (*Sent, error) {
	if len(req.To) == 0 {
		return nil, types.InvalidRequest("recipient is required")
	}
	var sent Sent
	if err := c.client.Post(ctx, inboxPath(inboxID, "messages", "send"), req, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// Reply answers messageID in its thread.
func (c *Client) Reply(ctx context.Context, inboxID, messageID, text string) (*Sent, error) {
	var sent Sent
	if err := c.client.Post(ctx, inboxPath(inboxID, "messages", messageID, "reply"), replyRequest{Text: text}, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// GetMessage fetches one message.
func (c *Client) GetMessage(ctx context.Context, inboxID, messageID string) (*Message, error) {
	var m Message
	if err := c.client.Get(ctx, inboxPath(inboxID, "messages", messageID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages lists the messages of an inbox, newest first.
func (c *Client) ListMessages(ctx context.Context, inboxID string) ([]Message, error) {
	var resp listMessagesResponse
	if err := c.client.Get(ctx, inboxPath(inboxID, "messages"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ListThreads lists thread summaries of an inbox.
func (c *Client) ListThreads(ctx context.Context, inboxID string) ([]Thread, error) {
	var resp listThreadsResponse
	if err := c.client.Get(ctx, inboxPath(inboxID, "threads"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// GetThread fetches a thread with its messages.
func (c *Client) GetThread(ctx context.Context, inboxID, threadID string) (*Thread, error) {
	var t Thread
	if err := c.client.Get(ctx, inboxPath(inboxID, "threads", threadID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
