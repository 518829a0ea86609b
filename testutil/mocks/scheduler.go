package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/recruitflow/integrations/calendar"
)

// MockScheduler records calendar events.
type MockScheduler struct {
	mu sync.Mutex

	events []calendar.Event
	result calendar.Scheduled
	err    error
}

// NewMockScheduler 创建 MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{result: calendar.Scheduled{EventID: "evt-1", MeetingLink: "https://meet.google.com/abc-defg-hij"}}
}

// WithResult 设置返回的日程
func (s *MockScheduler) WithResult(res calendar.Scheduled) *MockScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	return s
}

// WithError 让 Schedule 失败
func (s *MockScheduler) WithError(err error) *MockScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *MockScheduler) Schedule(_ context.Context, ev calendar.Event) (*calendar.Scheduled, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if s.err != nil {
		return nil, s.err
	}
	res := s.result
	return &res, nil
}

// Events 返回收到的日程请求
func (s *MockScheduler) Events() []calendar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calendar.Event(nil), s.events...)
}
