package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/textclean"
)

// EventKeywords are the words a fallback title must contain
var EventKeywords = []string{
	"wedding", "meeting", "meet", "appointment", "birthday", "party", "conference",
	"interview", "exam", "test", "vacation", "trip", "date", "call", "dinner",
	"lunch", "breakfast", "game", "match", "concert", "show", "graduation",
	"ceremony", "funeral", "reunion", "visit", "checkup",
}

// MaxFallbackTitleWords bounds how far back a title extends from its keyword
const MaxFallbackTitleWords = 3

var fillerWords = map[string]bool{
	"have": true, "has": true, "had": true, "got": true, "get": true,
	"attend": true, "attending": true, "going": true, "there": true,
	"theres": true, "ive": true, "im": true, "its": true, "this": true,
	"that": true, "some": true, "next": true, "also": true, "be": true,
	"will": true, "ill": true, "need": true, "about": true,
}

const (
	unitPattern    = `(days?|weeks?|months?)`
	weekdayPattern = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`
	numberWords    = `(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)`
	monthPattern   = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)`
)

type template struct {
	re     *regexp.Regexp
	offset func(m []string, today time.Time) (int, bool)
}

var templates = []template{
	{
		re: regexp.MustCompile(`\bin\s+(\d+)\s+` + unitPattern + `\b`),
		offset: func(m []string, _ time.Time) (int, bool) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false
			}
			return scaled(n, m[2])
		},
	},
	{
		re: regexp.MustCompile(`\bin\s+` + numberWords + `\s+` + unitPattern + `\b`),
		offset: func(m []string, _ time.Time) (int, bool) {
			n, ok := dates.WrittenNumber(m[1])
			if !ok {
				return 0, false
			}
			return scaled(n, m[2])
		},
	},
	{
		re: regexp.MustCompile(`\bin\s+an?\s+(day|week|month)\b`),
		offset: func(m []string, _ time.Time) (int, bool) {
			return scaled(1, m[1])
		},
	},
	{
		re: regexp.MustCompile(`\b(today|tomorrow|next\s+week|next\s+month)\b`),
		offset: func(m []string, _ time.Time) (int, bool) {
			return dates.RelativeOffset(m[1])
		},
	},
	{
		re: regexp.MustCompile(`\bnext\s+` + weekdayPattern + `\b`),
		offset: func(m []string, today time.Time) (int, bool) {
			wd, ok := dates.ParseWeekday(m[1])
			if !ok {
				return 0, false
			}
			n, err := dates.DaysUntilNextWeekday(today, wd)
			return n, err == nil
		},
	},
	{
		re: regexp.MustCompile(`\bon\s+` + weekdayPattern + `\b`),
		offset: func(m []string, today time.Time) (int, bool) {
			wd, ok := dates.ParseWeekday(m[1])
			if !ok {
				return 0, false
			}
			n, err := dates.DaysUntilWeekday(today, wd)
			return n, err == nil
		},
	},
	{
		re: regexp.MustCompile(`\bon\s+` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`),
		offset: func(m []string, today time.Time) (int, bool) {
			month, ok := dates.ParseMonth(m[1])
			if !ok {
				return 0, false
			}
			day, err := strconv.Atoi(m[2])
			if err != nil {
				return 0, false
			}
			return dates.DaysUntilDate(today, month, day)
		},
	},
}

var sentenceBreak = regexp.MustCompile(`[.!?;:\n]`)

// Fallback extracts events from natural-language phrases such as
// "a wedding in 2 weeks" or "dentist appointment on friday". Titles must
// contain an event keyword and are returned Title Cased.
func Fallback(text string, today time.Time) []Candidate {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	type hit struct {
		pos int
		c   Candidate
	}
	var hits []hit
	for _, tpl := range templates {
		for _, idx := range tpl.re.FindAllStringSubmatchIndex(lower, -1) {
			m := submatches(lower, idx)
			offset, ok := tpl.offset(m, today)
			if !ok {
				continue
			}
			title := titleBefore(lower[:idx[0]])
			if title == "" {
				continue
			}
			c := Candidate{Title: title, DayOffset: offset}
			if ValidateCandidate(c) != nil {
				continue
			}
			hits = append(hits, hit{pos: idx[0], c: c})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.c)
	}
	return Dedupe(out)
}

// titleBefore finds the last event keyword in the clause ending at the time
// expression and returns it with up to two qualifying words before it
func titleBefore(prefix string) string {
	if locs := sentenceBreak.FindAllStringIndex(prefix, -1); len(locs) > 0 {
		prefix = prefix[locs[len(locs)-1][1]:]
	}
	words := strings.Fields(prefix)
	if len(words) > 6 {
		words = words[len(words)-6:]
	}

	end := -1
	for i := len(words) - 1; i >= 0; i-- {
		if isEventKeyword(words[i]) {
			end = i
			break
		}
	}
	if end < 0 {
		return ""
	}

	start := end
	for start > 0 && end-start+1 < MaxFallbackTitleWords {
		w := textclean.Signature(words[start-1])
		if w == "" || stopWords[w] || fillerWords[w] || reservedLabels[w] || isDigits(w) {
			break
		}
		start--
	}

	parts := make([]string, 0, end-start+1)
	for _, w := range words[start : end+1] {
		parts = append(parts, strings.Trim(w, `"'()[],`))
	}
	return textclean.TitleCase(strings.Join(parts, " "))
}

func isEventKeyword(word string) bool {
	w := textclean.Signature(word)
	for _, kw := range EventKeywords {
		if w == kw || w == kw+"s" {
			return true
		}
	}
	return false
}

func scaled(n int, unit string) (int, bool) {
	days, ok := dates.UnitDays(unit)
	if !ok {
		return 0, false
	}
	return n * days, true
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}
