package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenTokenizer struct{}

func (brokenTokenizer) CountTokens(string) (int, error)          { return 0, errors.New("no bpe") }
func (brokenTokenizer) TruncateTail(string, int) (string, error) { return "", errors.New("no bpe") }
func (brokenTokenizer) Name() string                             { return "broken" }

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer()

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.CountTokens(strings.Repeat("a", 400))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = e.CountTokens("招聘工程师")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEstimator_TruncateTailKeepsEnd(t *testing.T) {
	e := NewEstimatorTokenizer()
	text := strings.Repeat("x", 400) + "LATEST"

	out, err := e.TruncateTail(text, 10)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "LATEST"))
	n, _ := e.CountTokens(out)
	assert.LessOrEqual(t, n, 10)
}

func TestFallback_UsesEstimatorOnError(t *testing.T) {
	f := &fallback{primary: brokenTokenizer{}, secondary: NewEstimatorTokenizer(), logger: zap.NewNop()}

	n, err := f.CountTokens(strings.Repeat("a", 40))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	out, err := f.TruncateTail("short", 100)
	require.NoError(t, err)
	assert.Equal(t, "short", out)
}

func TestTrimToBudget_DropsOldestLines(t *testing.T) {
	e := NewEstimatorTokenizer()
	lines := []string{
		"Candidate: " + strings.Repeat("old ", 20),
		"Agent: " + strings.Repeat("mid ", 20),
		"Candidate: sounds great",
	}
	text := strings.Join(lines, "\n")

	out, err := TrimToBudget(e, text, 30)
	require.NoError(t, err)
	assert.NotContains(t, out, "old")
	assert.True(t, strings.HasSuffix(out, "Candidate: sounds great"))

	same, err := TrimToBudget(e, text, 0)
	require.NoError(t, err)
	assert.Equal(t, text, same)
}

func TestEncodingForModel(t *testing.T) {
	assert.Equal(t, "o200k_base", encodingForModel("gpt-4o-mini"))
	assert.Equal(t, "cl100k_base", encodingForModel("gpt-4-turbo"))
	assert.Equal(t, "cl100k_base", encodingForModel("sonar-pro"))
}

func TestTiktoken_TruncateTail(t *testing.T) {
	tk := NewTiktokenTokenizer("gpt-4o-mini")
	if _, err := tk.CountTokens("warmup"); err != nil {
		t.Skipf("tiktoken tables unavailable: %v", err)
	}

	out, err := tk.TruncateTail("one two three four five six seven eight", 3)
	require.NoError(t, err)
	n, err := tk.CountTokens(out)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 3)
	assert.Contains(t, out, "eight")
}
