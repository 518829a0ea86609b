package tokenizer

import "unicode/utf8"

// EstimatorTokenizer approximates token counts from character classes:
// CJK runs ~1.5 chars per token, everything else ~4.
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer creates a generic estimator.
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	n := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if n == 0 {
		n = 1
	}
	return n, nil
}

// TruncateTail keeps roughly the last max tokens worth of runes.
func (e *EstimatorTokenizer) TruncateTail(text string, max int) (string, error) {
	n, _ := e.CountTokens(text)
	if max <= 0 || n <= max {
		return text, nil
	}
	runes := []rune(text)
	keep := len(runes) * max / n
	return string(runes[len(runes)-keep:]), nil
}

func (e *EstimatorTokenizer) Name() string {
	return "estimator"
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}
