// =============================================================================
// 🤖 MockGenerator - llm.Generator 模拟实现
// =============================================================================
// 使用方法:
//
//	gen := mocks.NewMockGenerator().WithResponse(`{"subject":"Hi","text":"..."}`)
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/recruitflow/llm"
)

// MockGenerator returns scripted completions and records prompts.
type MockGenerator struct {
	mu sync.Mutex

	responses []string
	response  string
	err       error
	prompts   []string
}

var _ llm.Generator = (*MockGenerator)(nil)

// NewMockGenerator 创建 MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithResponse 设置默认返回
func (g *MockGenerator) WithResponse(text string) *MockGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.response = text
	return g
}

// WithResponses 按调用顺序依次返回，用完后回落到默认返回
func (g *MockGenerator) WithResponses(texts ...string) *MockGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, texts...)
	return g
}

// WithError 让 Generate 失败
func (g *MockGenerator) WithError(err error) *MockGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	return g
}

func (g *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) > 0 {
		out := g.responses[0]
		g.responses = g.responses[1:]
		return out, nil
	}
	return g.response, nil
}

// Prompts 返回收到的全部提示词
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Calls 返回调用次数
func (g *MockGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
