package extractor

import (
	"regexp"
	"strings"

	"github.com/benvon/smart-calendar/internal/textclean"
)

var (
	responseSection = regexp.MustCompile(`(?is)\*\*\s*Part\s*1\s*:\s*Response\s*\*\*(.*?)(?:\*\*\s*Part\s*\d|\z)`)
	sectionLine     = regexp.MustCompile(`(?i)^\*\*\s*Part\s*\d+\s*:[^*]*\*\*$`)
	tagLine         = regexp.MustCompile(`(?i)^(?:Calendar:|Plan(?:\s+X!@)?:|Step\s*\d+\s*:)`)
)

// ExtractResponse returns the human-readable answer: the response section
// when present, otherwise the whole text, with markers, section headers, tag
// lines and bare list bullets removed
func ExtractResponse(prepared string) string {
	text := prepared
	if m := responseSection.FindStringSubmatch(prepared); m != nil {
		text = m[1]
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if sectionLine.MatchString(trimmed) {
			continue
		}
		if tagLine.MatchString(textclean.TrimEnumeration(trimmed)) {
			continue
		}
		cleaned := strings.TrimSpace(textclean.StripMarkers(trimmed))
		if textclean.IsEnumerationLine(cleaned) {
			continue
		}
		if cleaned == "" && trimmed != "" {
			continue
		}
		kept = append(kept, cleaned)
	}
	return textclean.NormalizeWhitespace(strings.Join(kept, "\n"))
}
