package extractor

import (
	"fmt"
	"strings"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/textclean"
)

// UrgentWithinDays is the largest offset that forces the urgent color
const UrgentWithinDays = 1

type colorRule struct {
	keywords []string
	tag      models.ColorTag
}

// Evaluated in order; the first rule with a matching word wins
var colorRules = []colorRule{
	{keywords: []string{"birthday", "bday"}, tag: models.ColorBirthday},
	{keywords: []string{"meeting", "meet", "work", "conference", "interview", "call"}, tag: models.ColorMeeting},
	{keywords: []string{"appointment", "doctor", "dentist", "checkup"}, tag: models.ColorAppointment},
	{keywords: []string{"wedding", "party", "celebration", "graduation", "reunion", "ceremony"}, tag: models.ColorCelebration},
	{keywords: []string{"exam", "test", "quiz", "midterm", "final"}, tag: models.ColorExam},
	{keywords: []string{"book", "reading", "read"}, tag: models.ColorReading},
}

// ColorFor picks the palette entry for a title. Events today or tomorrow are
// always urgent.
func ColorFor(title string, offset int) models.ColorTag {
	if offset <= UrgentWithinDays {
		return models.ColorUrgent
	}
	words := titleWords(title)
	for _, rule := range colorRules {
		for _, kw := range rule.keywords {
			if words[kw] {
				return rule.tag
			}
		}
	}
	return models.ColorDefault
}

// Describe builds the canned description for a title and offset
func Describe(title string, offset int) string {
	words := titleWords(title)
	urgency := urgencyLabel(offset)

	switch {
	case words["wedding"]:
		if offset <= 7 {
			return "Wedding celebration (soon!)"
		}
		return "Wedding celebration"
	case words["birthday"]:
		return "Birthday celebration"
	case words["meeting"] || words["meet"]:
		return urgency + " meeting"
	case words["appointment"]:
		return urgency + " appointment"
	}
	for _, kw := range []string{"party", "conference", "vacation", "trip", "exam", "interview", "date"} {
		if words[kw] {
			return urgency + " " + kw
		}
	}

	if offset <= 3 {
		return fmt.Sprintf("Upcoming: %s (%s)", title, dates.Describe(offset))
	}
	return "Scheduled event: " + title
}

func urgencyLabel(offset int) string {
	switch {
	case offset <= 3:
		return "Urgent"
	case offset <= 7:
		return "Upcoming"
	default:
		return "Scheduled"
	}
}

// titleWords indexes the alphanumeric words of a title, with trailing
// plural s removed as an extra entry
func titleWords(title string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(title) {
		w = textclean.Signature(w)
		if w == "" {
			continue
		}
		out[w] = true
		if strings.HasSuffix(w, "s") {
			out[strings.TrimSuffix(w, "s")] = true
		}
	}
	return out
}
