package conversation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/store"
	"github.com/BaSui01/recruitflow/llm"
)

// DefaultReply is sent when the generator returns nothing usable.
const DefaultReply = "Thank you for your interest! Let me know if you have any questions."

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?```$")

// Sanitize turns generator output into a plain reply body. Code fences,
// surrounding quotes and a {"text": ...} envelope are removed.
func Sanitize(output string) string {
	s := strings.TrimSpace(output)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if strings.HasPrefix(s, "{") {
		var env struct {
			Text string `json:"text"`
		}
		if obj := llm.ExtractJSONObject(s); obj != "" && json.Unmarshal([]byte(obj), &env) == nil && env.Text != "" {
			s = strings.TrimSpace(env.Text)
		}
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if s == "" {
		return DefaultReply
	}
	return s
}

// Transcript renders thread messages oldest first, one block per message.
func Transcript(messages []mail.Message) string {
	sorted := append([]mail.Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	var b strings.Builder
	for _, m := range sorted {
		body := m.Body()
		if body == "" {
			continue
		}
		fmt.Fprintf(&b, "From: %s\n%s\n\n", m.From, body)
	}
	return strings.TrimSpace(b.String())
}

// ReplyPrompt asks for the body of a short persuasive reply.
func ReplyPrompt(campaign *store.Campaign, cand *store.Candidate, transcript, latest string) string {
	return fmt.Sprintf(`You are a persuasive recruitment agent. Write a SHORT, engaging email response to %[1]s about the %[2]s opportunity.

CANDIDATE: %[1]s, %[3]s at %[4]s
OPPORTUNITY: %[2]s
JOB: %[5]s

CONVERSATION SO FAR:
%[6]s

RECENT MESSAGE FROM CANDIDATE:
"%[7]s"

IMPORTANT:
- Keep it SHORT (100-200 words max)
- Be conversational and persuasive, not pushy
- Address their specific message with emotional intelligence
- End with a clear call to action

Write ONLY the email body text, nothing else. No subject, no JSON, no explanations.`,
		cand.Name, campaign.Name, cand.Title, cand.Company, campaign.JobDescriptionSummary, transcript, latest)
}
