package extractor

import "strings"

var questionLeadIns = []string{
	"when is my",
	"what is my",
	"what's my",
	"when's my",
	"what time is",
	"what day is",
	"tell me about",
	"what are the details",
	"remind me about",
	"do you know when",
	"do you remember when",
	"can you tell me",
	"what is the name of",
	"what's the name of",
	"who is my",
	"who's my",
	"where is my",
	"where's my",
	"how old is",
	"what date is",
}

var questionWords = []string{"when", "what", "where", "who", "how", "which", "why"}

// IsQuestion reports whether input asks about existing information rather
// than stating a new fact
func IsQuestion(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return false
	}
	// Curly apostrophes come from mobile keyboards
	lower = strings.ReplaceAll(lower, "’", "'")

	if strings.Contains(lower, "?") {
		return true
	}
	for _, p := range questionLeadIns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	first := strings.Fields(lower)[0]
	first = strings.TrimRight(first, ",.!:;")
	if i := strings.Index(first, "'"); i > 0 {
		first = first[:i]
	}
	for _, w := range questionWords {
		if first == w {
			return true
		}
	}
	return false
}
