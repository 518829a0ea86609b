package circuitbreaker

import (
	"context"

	"github.com/BaSui01/recruitflow/llm"
)

// Generator wraps an llm.Generator with a Breaker.
type Generator struct {
	next    llm.Generator
	breaker *Breaker
}

// Guard returns gen behind b.
func Guard(gen llm.Generator, b *Breaker) *Generator {
	return &Generator{next: gen, breaker: b}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Generate(ctx, prompt)
		return err
	})
	return out, err
}

// Unwrap returns the guarded generator.
func (g *Generator) Unwrap() llm.Generator { return g.next }

var _ llm.Generator = (*Generator)(nil)
