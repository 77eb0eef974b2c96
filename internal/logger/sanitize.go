package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxTitleLength bounds event titles in logs
	MaxTitleLength = 200
	// MaxErrorMessageLength bounds error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is used when no explicit bound is given
	MaxGeneralStringLength = 2000
	// MaxPreviewLength bounds prompt and response previews at info level
	MaxPreviewLength = 120
	// MaxDebugContentLength bounds full prompts/responses at debug level
	MaxDebugContentLength = 10000
)

// SanitizeString removes control characters, repairs UTF-8 and truncates to maxLength
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if len(s) > maxLength {
		s = truncateRunes(s, maxLength) + "..."
	}
	return s
}

// SanitizeError renders err for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeTitle renders an event title for logging
func SanitizeTitle(title string) string {
	return SanitizeString(title, MaxTitleLength)
}

// Preview collapses whitespace and keeps the first MaxPreviewLength bytes.
// Used for prompts and model output at info level.
func Preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return SanitizeString(s, MaxPreviewLength)
}

// SanitizeDebugContent bounds full prompts/responses logged in debug mode
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}

// truncateRunes cuts s to at most n bytes without splitting a rune
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
