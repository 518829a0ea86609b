package conversation

import "strings"

// Intent is what an inbound message asks of the agent.
type Intent string

const (
	IntentContinue Intent = "continue"
	IntentSafeWord Intent = "safe_word"
	IntentReject   Intent = "reject"
	IntentAgree    Intent = "agree"
	IntentSchedule Intent = "schedule"
)

// Classifier maps message text to a single intent.
type Classifier interface {
	Classify(text string) Intent
}

var (
	DefaultAgreement  = []string{"yes", "interested", "sounds great", "let's do it", "i'm in", "i accept", "i agree"}
	DefaultScheduling = []string{"schedule", "meeting", "call", "discuss", "talk", "interview"}
	DefaultRejection  = []string{"not interested", "no thanks", "no thank you", "decline", "pass", "not a fit", "don't contact me"}
)

// KeywordClassifier matches case-insensitive substrings. Priority is
// safe word, rejection, agreement, scheduling.
type KeywordClassifier struct {
	SafeWord   string
	Agreement  []string
	Scheduling []string
	Rejection  []string
}

// NewKeywordClassifier returns a classifier with the default keyword sets.
func NewKeywordClassifier(safeWord string) *KeywordClassifier {
	return &KeywordClassifier{
		SafeWord:   safeWord,
		Agreement:  DefaultAgreement,
		Scheduling: DefaultScheduling,
		Rejection:  DefaultRejection,
	}
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(text string) Intent {
	// hard-wrapped bodies split multi-word terms across lines
	lower := strings.ToLower(strings.Join(strings.Fields(normalizeQuotes(text)), " "))
	switch {
	case k.SafeWord != "" && strings.Contains(lower, strings.ToLower(k.SafeWord)):
		return IntentSafeWord
	case containsAny(lower, k.Rejection):
		return IntentReject
	case containsAny(lower, k.Agreement):
		return IntentAgree
	case containsAny(lower, k.Scheduling):
		return IntentSchedule
	default:
		return IntentContinue
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// mail clients often send typographic apostrophes
var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'")

func normalizeQuotes(s string) string { return quoteReplacer.Replace(s) }
