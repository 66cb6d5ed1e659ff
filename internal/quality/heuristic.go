// Package quality decides whether fetched page text is worth extracting.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

// Default thresholds.
const (
	DefaultMinTextChars           = 300
	DefaultAggregatorLinks        = 80
	DefaultAggregatorTrustCeiling = 80
)

// linkMarker is the token the markdown converter emits for every hyperlink.
const linkMarker = "]("

// Heuristic implements the rule-based low-quality gate.
type Heuristic struct {
	MinTextChars           int
	AggregatorLinks        int
	AggregatorTrustCeiling int
}

// NewHeuristic creates a gate, substituting defaults for zero thresholds.
func NewHeuristic(minText, aggregatorLinks, trustCeiling int) *Heuristic {
	if minText == 0 {
		minText = DefaultMinTextChars
	}
	if aggregatorLinks == 0 {
		aggregatorLinks = DefaultAggregatorLinks
	}
	if trustCeiling == 0 {
		trustCeiling = DefaultAggregatorTrustCeiling
	}
	return &Heuristic{
		MinTextChars:           minText,
		AggregatorLinks:        aggregatorLinks,
		AggregatorTrustCeiling: trustCeiling,
	}
}

// Assess reports whether text passes the gate. When it does not, the returned
// reason names the rule that rejected it.
func (h *Heuristic) Assess(text string, trustScore int) (crawler.SkipReason, bool) {
	if utf8.RuneCountInString(text) < h.MinTextChars {
		return crawler.SkipTooShort, false
	}
	// Both conditions must hold; a dense page from a trusted host is kept.
	if trustScore < h.AggregatorTrustCeiling && LinkMarkers(text) > h.AggregatorLinks {
		return crawler.SkipAggregator, false
	}
	return crawler.SkipNone, true
}

// LinkMarkers counts markdown-style link markers in text.
func LinkMarkers(text string) int {
	return strings.Count(text, linkMarker)
}
