package extractor

import (
	"regexp"
	"strconv"
)

var (
	categoriesSection = regexp.MustCompile(`(?is)\*\*\s*Part\s*3\s*:\s*Categories\s*\*\*(.*?)(?:\*\*|\z)`)
	calendarTagHead   = regexp.MustCompile(`(?i)Calendar:\s*-?\d+\s+days?\s+from\s+today\s`)
	calendarTag       = regexp.MustCompile(`(?im)\ACalendar:\s*(-?\d+)\s+days?\s+from\s+today\s+(.+?)(?:\.!\.|\)\*!|$)`)
)

// Candidate is a title and day offset before derived fields are attached
type Candidate struct {
	Title     string
	DayOffset int
}

// Signature is the de-duplication key of a candidate
func (c Candidate) Signature() string {
	return signature(c.Title, c.DayOffset)
}

// CategoriesSection returns the body of the categories section, or the whole
// text when there is none
func CategoriesSection(text string) string {
	if m := categoriesSection.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// StructuredCandidates finds every "Calendar: N days from today <title>" tag
// in order. A title ends at a marker, the end of its line or the next tag.
// Titles are returned raw; offsets that do not parse are skipped.
func StructuredCandidates(text string) []Candidate {
	section := CategoriesSection(text)
	heads := calendarTagHead.FindAllStringIndex(section, -1)
	out := make([]Candidate, 0, len(heads))
	for i, h := range heads {
		end := len(section)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		m := calendarTag.FindStringSubmatch(section[h[0]:end])
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Candidate{Title: m[2], DayOffset: n})
	}
	return out
}
