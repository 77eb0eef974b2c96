package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/textclean"
)

// MinTitleLength is the minimum number of letters and digits in a title
const MinTitleLength = 2

var stopWords = map[string]bool{
	"with": true, "from": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "the": true, "a": true, "an": true, "and": true,
	"or": true, "but": true, "is": true, "are": true, "was": true, "were": true,
	"my": true, "your": true, "his": true, "her": true, "their": true, "our": true,
	"when": true, "what": true, "where": true, "who": true, "how": true, "why": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"me": true, "him": true, "them": true, "us": true, "of": true,
}

var reservedLabels = map[string]bool{
	"calendar":   true,
	"plan":       true,
	"none":       true,
	"part":       true,
	"categories": true,
	"response":   true,
	"step":       true,
	"memory":     true,
}

var (
	suppressedPlanTail = regexp.MustCompile(`(?i)Plan\s+X!@:.*$`)
	sectionHeader      = regexp.MustCompile(`(?i)\bpart\s+\d+\s*:`)
	tagFragment        = regexp.MustCompile(`(?i)\bcalendar\s*:?|\b\d+\s+days?\s+from\s+today\b|\bdays?\s+from\s+today\b`)
	digitWord          = regexp.MustCompile(`^\d+\b|\b\d+$`)
	multiSpace         = regexp.MustCompile(`\s+`)

	errTitleTooShort   = errors.New("title too short")
	errTitleReserved   = errors.New("title is a reserved label")
	errTitleStopwords  = errors.New("title dominated by stop words")
	errTitleNoLetters  = errors.New("title has no letters")
	errTitleSingleChar = errors.New("title made of single letters")
	errTitleSection    = errors.New("title contains a section header")
)

// NormalizeTitle strips residual markers, quotes and trailing punctuation
func NormalizeTitle(raw string) string {
	t := suppressedPlanTail.ReplaceAllString(raw, "")
	t = textclean.StripMarkers(t)
	t = strings.Trim(t, " \t\"'`[]()*")
	t = textclean.TrimTrailingPunct(t)
	t = multiSpace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// CleanupTitle removes leftover tag fragments such as "Calendar" or bare
// numbers that some responses repeat inside the title
func CleanupTitle(title string) string {
	t := strings.TrimSpace(tagFragment.ReplaceAllString(title, " "))
	t = digitWord.ReplaceAllString(t, " ")
	t = multiSpace.ReplaceAllString(t, " ")
	return textclean.TrimTrailingPunct(strings.TrimSpace(t))
}

// ValidateTitle rejects titles that cannot name an event
func ValidateTitle(title string) error {
	sig := textclean.Signature(title)
	if len(sig) < MinTitleLength {
		return errTitleTooShort
	}
	if strings.IndexFunc(sig, isLetter) < 0 {
		return errTitleNoLetters
	}
	if reservedLabels[sig] {
		return errTitleReserved
	}
	if sectionHeader.MatchString(title) || strings.Contains(title, "!@") {
		return errTitleSection
	}

	words := strings.Fields(strings.ToLower(title))
	stop, single := 0, 0
	for _, w := range words {
		w = textclean.Signature(w)
		switch {
		case w == "" || stopWords[w] || reservedLabels[w]:
			stop++
		case isDigits(w):
			stop++
		case len(w) == 1:
			single++
		}
	}
	if stop*2 > len(words) {
		return errTitleStopwords
	}
	if single+stop == len(words) {
		return errTitleSingleChar
	}
	return nil
}

// ValidateCandidate checks both title and day offset
func ValidateCandidate(c Candidate) error {
	if !dates.ValidOffset(c.DayOffset) {
		return fmt.Errorf("day offset %d outside [%d, %d]", c.DayOffset, dates.MinOffset, dates.MaxOffset)
	}
	return ValidateTitle(c.Title)
}

// Dedupe keeps the first candidate of every signature, preserving order
func Dedupe(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		sig := c.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, c)
	}
	return out
}

func signature(title string, offset int) string {
	return textclean.Signature(title) + "_" + strconv.Itoa(offset)
}

func isDigits(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}
