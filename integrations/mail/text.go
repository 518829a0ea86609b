package mail

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// EventMessageReceived is the only webhook event the service acts on.
const EventMessageReceived = "message.received"

// WebhookEvent is the body AgentMail posts for inbox events.
type WebhookEvent struct {
	EventType string  `json:"event_type"`
	EventID   string  `json:"event_id,omitempty"`
	Message   Message `json:"message"`
}

// Body returns the readable content of m, converting HTML when there is no text part.
func (m Message) Body() string {
	if t := strings.TrimSpace(m.Text); t != "" {
		return t
	}
	if m.HTML != "" {
		return HTMLToText(m.HTML)
	}
	return strings.TrimSpace(m.Preview)
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true,
}

func spaceOnly(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// HTMLToText flattens an HTML body to plain text. Script and style content is
// dropped and block elements become line breaks.
func HTMLToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			// source line wrapping is not a line break; only block tags are
			b.WriteString(strings.Map(spaceOnly, n.Data))
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
			if blockTags[n.Data] {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] && n.Data != "br" {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
