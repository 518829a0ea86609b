package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer uses the OpenAI BPE tables. The tables are loaded lazily
// on first use, which may hit the network.
type TiktokenTokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// o200k for the gpt-4o family, cl100k for everything else.
func encodingForModel(model string) string {
	for _, prefix := range []string{"gpt-4o", "o1", "o3", "o4"} {
		if strings.HasPrefix(model, prefix) {
			return "o200k_base"
		}
	}
	return "cl100k_base"
}

// NewTiktokenTokenizer creates a tokenizer for model.
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	return &TiktokenTokenizer{encoding: encodingForModel(model)}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) TruncateTail(text string, max int) (string, error) {
	if err := t.init(); err != nil {
		return "", err
	}
	tokens := t.enc.Encode(text, nil, nil)
	if max <= 0 || len(tokens) <= max {
		return text, nil
	}
	return t.enc.Decode(tokens[len(tokens)-max:]), nil
}

func (t *TiktokenTokenizer) Name() string {
	return "tiktoken/" + t.encoding
}
