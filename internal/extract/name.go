package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackName is returned when no usable name survives cleaning.
const FallbackName = "Technical Opportunity"

// MaxNameLength caps the stored name, in runes.
const MaxNameLength = 80

const (
	titleSeparators  = "|-–:"
	minTitleLength   = 8
	minCleanedLength = 3
)

var (
	headingPattern = regexp.MustCompile(`(?m)^#[ \t]+(\S.*)$`)
	noisePattern   = regexp.MustCompile(
		`(?i)\b(?:apply now|registration|2026|2025|official website|home|login|details|form|portal|welcome to)\b`,
	)
	whitespaceRun = regexp.MustCompile(`\s+`)

	nonOpportunityWords = []string{"circular", "notice", "advertisement", "office order", "notification"}
)

// Name derives the opportunity name from the page title, falling back to the
// first level-1 heading of the rendered text when the title looks like a
// generic notice or is too short.
func Name(text, title string) string {
	candidate := truncateAtSeparator(title)
	if needsFallback(candidate) {
		if heading := firstHeading(text); heading != "" {
			candidate = heading
		}
	}

	cleaned := noisePattern.ReplaceAllString(candidate, " ")
	cleaned = strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
	cleaned = strings.TrimSpace(truncateRunes(cleaned, MaxNameLength))
	if utf8.RuneCountInString(cleaned) <= minCleanedLength {
		return FallbackName
	}
	return cleaned
}

func truncateAtSeparator(title string) string {
	if idx := strings.IndexAny(title, titleSeparators); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

func needsFallback(candidate string) bool {
	if utf8.RuneCountInString(candidate) < minTitleLength {
		return true
	}
	lower := strings.ToLower(candidate)
	for _, w := range nonOpportunityWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func firstHeading(text string) string {
	m := headingPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), "#"))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
