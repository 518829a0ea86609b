// Package queries turns free-form generator output into a short list of
// people-search queries.
//
// Extract never fails: it tries a cascade of formats, keeps the first one that
// yields anything, cleans the result and falls back to a prefix of the input.
package queries

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxQueries is the most entries Extract returns.
	MaxQueries = 5

	fallbackRunes = 200
	minRunes      = 5
	maxRunes      = 500
)

var (
	primaryHeader  = regexp.MustCompile(`(?i)(?:\*\*)?primary\s+search\s+query\s+\d+:\s*(?:\*\*?)?`)
	queryHeader    = regexp.MustCompile(`(?im)^[ \t]*(?:search\s+)?query\s+#?\d+:[ \t]*`)
	numberedItem   = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	bulletItem     = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+(.+)$`)
	bareBullet     = regexp.MustCompile(`^[-*•]\s*$`)
	titleHeader    = regexp.MustCompile(`^[A-Z][A-Za-z\s]+:$`)
	sectionHeader  = regexp.MustCompile(`^[A-Z][a-z\s]+:$`)
	afterSeparator = regexp.MustCompile(`[:\-]\s*(.+)`)
	quoted         = regexp.MustCompile(`["']([^"']{10,150})["']`)
	leadingStars   = regexp.MustCompile(`^\*\*?`)
	trailingStars  = regexp.MustCompile(`\*\*?$`)
	leadingBullet  = regexp.MustCompile(`^[-*•]\s*`)
)

// metadata tokens that never belong in a query
var metadataTokens = []string{"keywords:", "skills:", "location:", "title:"}

// fallback keeps location: since it can be part of a plain job description.
var fallbackTokens = []string{"keywords:", "skills:", "title:"}

// Extract returns up to MaxQueries queries found in text.
func Extract(text string) []string {
	strategies := []func(string) []string{
		primaryQueries,
		labelledQueries,
		numberedQueries,
		sectionQueries,
		quotedQueries,
	}

	var raw []string
	for _, s := range strategies {
		if raw = s(text); len(raw) > 0 {
			break
		}
	}

	out := clean(raw)
	if len(out) == 0 {
		if fb, ok := fallback(text); ok {
			out = []string{fb}
		}
	}
	return out
}

// headerBlocks returns the text after each header match up to the next header.
// A blank line also ends a block.
func headerBlocks(text string, header *regexp.Regexp, singleLine bool) []string {
	locs := header.FindAllStringIndex(text, -1)
	var out []string
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimLeft(text[loc[1]:end], " \t\r\n")
		if singleLine {
			if j := strings.IndexByte(block, '\n'); j >= 0 {
				block = block[:j]
			}
		} else if j := strings.Index(block, "\n\n"); j >= 0 {
			block = block[:j]
		}
		block = strings.TrimSpace(block)
		if utf8.RuneCountInString(block) > minRunes {
			out = append(out, block)
		}
	}
	return out
}

func primaryQueries(text string) []string {
	return headerBlocks(text, primaryHeader, false)
}

func labelledQueries(text string) []string {
	var out []string
	for _, q := range headerBlocks(text, queryHeader, true) {
		if !strings.Contains(strings.ToLower(q), "query") {
			out = append(out, q)
		}
	}
	return out
}

func numberedQueries(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := numberedItem.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		q := strings.TrimSpace(m[1])
		n := utf8.RuneCountInString(q)
		if n > minRunes && n < 200 && !hasToken(q, fallbackTokens) {
			out = append(out, q)
		}
	}
	return out
}

func sectionQueries(text string) []string {
	var out []string
	inSection := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if strings.Contains(lower, "search query") || strings.Contains(lower, "primary query") ||
			strings.Contains(lower, "query:") || strings.Contains(lower, "queries:") {
			inSection = true
			if m := afterSeparator.FindStringSubmatch(trimmed); m != nil {
				if q := strings.TrimSpace(m[1]); utf8.RuneCountInString(q) > minRunes {
					out = append(out, q)
				}
			}
			continue
		}
		if !inSection || trimmed == "" {
			continue
		}

		if bareBullet.MatchString(trimmed) || hasToken(trimmed, []string{"keywords:", "skills:", "location:"}) ||
			titleHeader.MatchString(trimmed) {
			inSection = false
			continue
		}

		if m := bulletItem.FindStringSubmatch(trimmed); m != nil {
			q := strings.TrimSpace(m[1])
			if n := utf8.RuneCountInString(q); n > minRunes && n < 200 {
				out = append(out, q)
			}
			continue
		}
		if len(out) > 0 && utf8.RuneCountInString(trimmed) < 200 {
			last := out[len(out)-1]
			if utf8.RuneCountInString(last) < 100 {
				out[len(out)-1] = last + " " + trimmed
			}
		}
	}
	return out
}

func quotedQueries(text string) []string {
	var out []string
	for _, m := range quoted.FindAllStringSubmatch(text, -1) {
		if q := strings.TrimSpace(m[1]); utf8.RuneCountInString(q) > minRunes {
			out = append(out, q)
		}
	}
	return out
}

func clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, MaxQueries)
	for _, q := range raw {
		q = leadingStars.ReplaceAllString(q, "")
		q = trailingStars.ReplaceAllString(q, "")
		q = leadingBullet.ReplaceAllString(q, "")
		q = strings.TrimSpace(q)

		n := utf8.RuneCountInString(q)
		if n <= minRunes || n >= maxRunes || hasToken(q, metadataTokens) || sectionHeader.MatchString(q) {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == MaxQueries {
			break
		}
	}
	return out
}

// fallback uses the first characters of the input once metadata tokens are blanked.
func fallback(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= 10 {
		return "", false
	}

	runes := blankTokens([]rune(text), fallbackTokens)
	if len(runes) > fallbackRunes {
		runes = runes[:fallbackRunes]
	}
	fb := strings.TrimSpace(string(runes))
	if utf8.RuneCountInString(fb) < minRunes {
		return "", false
	}
	return fb, true
}

// blankTokens replaces every case-insensitive occurrence of tokens with spaces.
func blankTokens(runes []rune, tokens []string) []rune {
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	for _, tok := range tokens {
		t := []rune(tok)
		for i := 0; i+len(t) <= len(lower); i++ {
			if string(lower[i:i+len(t)]) != tok {
				continue
			}
			for j := i; j < i+len(t); j++ {
				runes[j] = ' '
				lower[j] = ' '
			}
		}
	}
	return runes
}

func hasToken(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
