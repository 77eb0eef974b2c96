// Package textclean strips the structural noise assistant output carries
// around its answer and tags.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	escapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\r`, "")

	// Longest markers first so ".!..!." is not left half-removed
	markers = strings.NewReplacer(
		")*!", "",
		".!..!.", "",
		"..!.", "",
		".!..", "",
		".!.", "",
	)

	suppressedTag = regexp.MustCompile(`\S*!@:?`)
	spaceRun      = regexp.MustCompile(`[ \t\f\v]+`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
	enumeration   = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*$`)
	enumPrefix    = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Unescape turns literal escape sequences left by JSON double-encoding into
// the characters they name
func Unescape(s string) string {
	return escapes.Replace(s)
}

// StripMarkers removes delimiter artifacts and suppressed-tag markers
func StripMarkers(s string) string {
	s = markers.Replace(s)
	return suppressedTag.ReplaceAllString(s, "")
}

// NormalizeWhitespace collapses horizontal whitespace, trims every line and
// keeps at most one blank line between paragraphs
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Prepare unescapes and normalizes whitespace but keeps markers, which act
// as terminators for tag matching
func Prepare(s string) string {
	return NormalizeWhitespace(Unescape(s))
}

// Clean is Prepare followed by marker removal
func Clean(s string) string {
	return NormalizeWhitespace(StripMarkers(Unescape(s)))
}

// IsEnumerationLine reports whether a line is only a list bullet or number
func IsEnumerationLine(line string) bool {
	return enumeration.MatchString(line)
}

// TrimEnumeration removes a leading list bullet or number
func TrimEnumeration(line string) string {
	return enumPrefix.ReplaceAllString(line, "")
}

// Signature returns the lower-cased alphanumeric form of s
func Signature(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// TrimTrailingPunct drops trailing dots, bangs, commas and similar
func TrimTrailingPunct(s string) string {
	return strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '.' || r == '!' || r == ',' || r == ';' || r == ':' || r == '*' || r == ')'
	})
}
