// =============================================================================
// ✉️ MockMailer - AgentMail 客户端模拟实现
// =============================================================================
// 记录所有发出的邮件与回复，支持按收件人注入发送失败。
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/types"
)

// SentMail is one recorded Send call.
type SentMail struct {
	InboxID string
	Request mail.SendRequest
}

// SentReply is one recorded Reply call.
type SentReply struct {
	InboxID   string
	MessageID string
	Text      string
}

// MockMailer records mailbox traffic in memory.
type MockMailer struct {
	mu sync.Mutex

	inboxes  []mail.CreateInboxRequest
	sent     []SentMail
	replies  []SentReply
	threads  map[string]*mail.Thread
	messages map[string]mail.Message

	inboxErr  error
	replyErr  error
	threadErr error
	sendErrs  map[string]error
	seq       int
}

// NewMockMailer 创建 MockMailer
func NewMockMailer() *MockMailer {
	return &MockMailer{
		threads:  make(map[string]*mail.Thread),
		messages: make(map[string]mail.Message),
		sendErrs: make(map[string]error),
	}
}

// WithInboxError 让 CreateInbox 失败
func (m *MockMailer) WithInboxError(err error) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inboxErr = err
	return m
}

// WithSendError 让发往 to 的邮件失败
func (m *MockMailer) WithSendError(to string, err error) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErrs[to] = err
	return m
}

// WithReplyError 让 Reply 失败
func (m *MockMailer) WithReplyError(err error) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyErr = err
	return m
}

// WithThreadError 让 GetThread 失败
func (m *MockMailer) WithThreadError(err error) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadErr = err
	return m
}

// WithMessage 预设邮件，并追加到所属会话
func (m *MockMailer) WithMessage(msg mail.Message) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.MessageID] = msg
	th, ok := m.threads[msg.ThreadID]
	if !ok {
		th = &mail.Thread{ThreadID: msg.ThreadID, InboxID: msg.InboxID, Subject: msg.Subject}
		m.threads[msg.ThreadID] = th
	}
	th.Messages = append(th.Messages, msg)
	th.MessageCount = len(th.Messages)
	return m
}

// WithThread 预设会话
func (m *MockMailer) WithThread(th mail.Thread) *MockMailer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[th.ThreadID] = &th
	return m
}

func (m *MockMailer) CreateInbox(_ context.Context, req mail.CreateInboxRequest) (*mail.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inboxErr != nil {
		return nil, m.inboxErr
	}
	m.inboxes = append(m.inboxes, req)
	return &mail.Inbox{
		InboxID:     fmt.Sprintf("agent-%d@agentmail.to", len(m.inboxes)),
		DisplayName: req.DisplayName,
		ClientID:    req.ClientID,
	}, nil
}

func (m *MockMailer) Send(_ context.Context, inboxID string, req mail.SendRequest) (*mail.Sent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range req.To {
		if err := m.sendErrs[to]; err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, SentMail{InboxID: inboxID, Request: req})
	m.seq++
	return &mail.Sent{MessageID: fmt.Sprintf("msg-%d", m.seq), ThreadID: fmt.Sprintf("thread-%d", m.seq)}, nil
}

func (m *MockMailer) Reply(_ context.Context, inboxID, messageID, text string) (*mail.Sent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyErr != nil {
		return nil, m.replyErr
	}
	m.replies = append(m.replies, SentReply{InboxID: inboxID, MessageID: messageID, Text: text})
	m.seq++
	return &mail.Sent{MessageID: fmt.Sprintf("reply-%d", m.seq)}, nil
}

func (m *MockMailer) GetMessage(_ context.Context, _, messageID string) (*mail.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, types.NotFound("message not found")
	}
	return &msg, nil
}

func (m *MockMailer) GetThread(_ context.Context, _, threadID string) (*mail.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.threadErr != nil {
		return nil, m.threadErr
	}
	th, ok := m.threads[threadID]
	if !ok {
		return nil, types.NotFound("thread not found")
	}
	cp := *th
	cp.Messages = append([]mail.Message(nil), th.Messages...)
	return &cp, nil
}

func (m *MockMailer) ListThreads(_ context.Context, inboxID string) ([]mail.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.threadErr != nil {
		return nil, m.threadErr
	}
	var out []mail.Thread
	for _, th := range m.threads {
		if th.InboxID == inboxID {
			out = append(out, *th)
		}
	}
	return out, nil
}

// Inboxes 返回已创建的收件箱请求
func (m *MockMailer) Inboxes() []mail.CreateInboxRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.CreateInboxRequest(nil), m.inboxes...)
}

// Sent 返回成功发送的邮件
func (m *MockMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Replies 返回成功发送的回复
func (m *MockMailer) Replies() []SentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentReply(nil), m.replies...)
}
