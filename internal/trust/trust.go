// Package trust ranks URLs by how likely they are to host a canonical
// opportunity listing.
package trust

import "strings"

// Trust levels returned by Score.
const (
	Government = 100
	Academic   = 95
	Employer   = 85
	Neutral    = 50
	Social     = 0
)

var (
	governmentMarkers = []string{".gov.in", ".nic.in", ".res.in"}
	academicMarkers   = []string{".ac.in", ".edu.in"}
	employerMarkers   = []string{
		"google", "microsoft", "qualcomm", "amazon", "intel", "nvidia",
		"adobe", "ibm", "samsung", "isro", "drdo", "meity",
	}
	socialMarkers = []string{"instagram.com", "facebook.com", "linkedin.com", "youtube.com"}
)

// Scorer implements crawler.TrustScorer with the fixed policy.
type Scorer struct{}

// New returns a Scorer.
func New() Scorer {
	return Scorer{}
}

// Score implements crawler.TrustScorer.
func (Scorer) Score(url string) int {
	return Score(url)
}

// Score maps a URL to its trust level. Rules are checked in precedence
// order and the first match wins.
func Score(url string) int {
	lower := strings.ToLower(url)
	switch {
	case containsAny(lower, governmentMarkers):
		return Government
	case containsAny(lower, academicMarkers):
		return Academic
	case containsAny(lower, employerMarkers):
		return Employer
	case containsAny(lower, socialMarkers):
		return Social
	default:
		return Neutral
	}
}

// IsInstitutional reports whether the URL belongs to a government, research,
// or academic domain. Those sites often render notice boards client-side.
func IsInstitutional(url string) bool {
	lower := strings.ToLower(url)
	return containsAny(lower, governmentMarkers) || containsAny(lower, academicMarkers)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
