package tokenizer

import (
	"strings"

	"go.uber.org/zap"
)

// Tokenizer counts tokens and trims text to a token budget.
type Tokenizer interface {
	CountTokens(text string) (int, error)
	// TruncateTail keeps the last max tokens of text.
	TruncateTail(text string, max int) (string, error)
	Name() string
}

// ForModel returns a tiktoken tokenizer for model that falls back to the
// character estimator when the BPE tables cannot be loaded.
func ForModel(model string, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallback{
		primary:   NewTiktokenTokenizer(model),
		secondary: NewEstimatorTokenizer(),
		logger:    logger.With(zap.String("component", "tokenizer")),
	}
}

type fallback struct {
	primary   Tokenizer
	secondary Tokenizer
	logger    *zap.Logger
}

func (f *fallback) CountTokens(text string) (int, error) {
	n, err := f.primary.CountTokens(text)
	if err != nil {
		f.logger.Debug("tiktoken unavailable, estimating", zap.Error(err))
		return f.secondary.CountTokens(text)
	}
	return n, nil
}

func (f *fallback) TruncateTail(text string, max int) (string, error) {
	out, err := f.primary.TruncateTail(text, max)
	if err != nil {
		f.logger.Debug("tiktoken unavailable, estimating", zap.Error(err))
		return f.secondary.TruncateTail(text, max)
	}
	return out, nil
}

func (f *fallback) Name() string { return f.primary.Name() }

// TrimToBudget drops whole leading lines until text fits max tokens, then
// hard-truncates if a single line is still too long. Transcripts keep their
// most recent messages this way.
func TrimToBudget(t Tokenizer, text string, max int) (string, error) {
	if max <= 0 {
		return text, nil
	}
	n, err := t.CountTokens(text)
	if err != nil {
		return "", err
	}
	for n > max {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return t.TruncateTail(text, max)
		}
		text = text[idx+1:]
		if n, err = t.CountTokens(text); err != nil {
			return "", err
		}
	}
	return text, nil
}
