package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})
	out, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"subject":"a","text":"b"}`, `{"subject":"a","text":"b"}`},
		{"fenced", "```json\n{\"subject\":\"a\"}\n```", `{"subject":"a"}`},
		{"prose around", `Sure! {"a":{"b":1}} hope that helps {"c":2}`, `{"a":{"b":1}}`},
		{"brace in string", `{"text":"use } carefully"}`, `{"text":"use } carefully"}`},
		{"escaped quote", `{"text":"say \"}\" now"}`, `{"text":"say \"}\" now"}`},
		{"none", "no json here", ""},
		{"unbalanced", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.in))
		})
	}
}
