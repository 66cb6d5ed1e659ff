package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Deadline sentinels.
const (
	CheckWebsite  = "Check Website"
	LikelyExpired = "Likely Expired (Old Date Found)"
)

// staleAfter is how far in the past an undated day-month may fall before it
// is reported as expired.
const staleAfter = 180 * 24 * time.Hour

var (
	yearPattern     = regexp.MustCompile(`\b(202[4-7])\b`)
	dayMonthPattern = regexp.MustCompile(
		`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`,
	)
	numericDatePattern = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)
)

// Deadline finds the most plausible application deadline in text.
//
// A day-month match ("28th Feb") is combined with the first 2024-2027 year in
// the text, or now's year when there is none, and returned as YYYY-MM-DD.
// Undated matches more than 180 days before now are reported as expired.
// Otherwise the first D/M/Y style date is returned verbatim, and
// CheckWebsite when nothing matches.
func Deadline(text string, now time.Time) string {
	year, explicitYear := findYear(text)
	if !explicitYear {
		year = now.Year()
	}

	if date, ok := parseDayMonth(text, year); ok {
		if !explicitYear && now.Sub(date) > staleAfter {
			return LikelyExpired
		}
		return date.Format(time.DateOnly)
	}

	if m := numericDatePattern.FindString(text); m != "" {
		return m
	}
	return CheckWebsite
}

func findYear(text string) (int, bool) {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	var year int
	if _, err := fmt.Sscanf(m[1], "%d", &year); err != nil {
		return 0, false
	}
	return year, true
}

func parseDayMonth(text string, year int) (time.Time, bool) {
	m := dayMonthPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:])
	date, err := time.Parse("2 Jan 2006", fmt.Sprintf("%s %s %d", m[1], month, year))
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
