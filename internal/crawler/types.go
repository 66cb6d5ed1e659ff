package crawler

import (
	"net/http"
	"time"
)

// SearchQuery identifies one request to the search capability.
type SearchQuery struct {
	Template string
	Page     int
}

// SearchRequest is the payload sent to a Searcher.
type SearchRequest struct {
	Query          string
	Region         string
	ResultsPerPage int
	Page           int
}

// SearchResult is one organic hit returned by a Searcher.
type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// CandidateLink is a discovered URL awaiting crawl.
type CandidateLink struct {
	URL        string `json:"url"`
	TrustScore int    `json:"trust_score"`
}

// FellowshipRecord is the structured result persisted for one apply link.
type FellowshipRecord struct {
	ApplyLink   string    `json:"apply_link"`
	Name        string    `json:"name"`
	Deadline    string    `json:"deadline"`
	TrustScore  int       `json:"trust_score"`
	LastUpdated time.Time `json:"last_updated"`
}

// StoredFellowship is a FellowshipRecord as read back from a Store, carrying
// the stable external identifier.
type StoredFellowship struct {
	ID string `json:"id"`
	FellowshipRecord
}

// RenderRequest is built fresh for each link and never mutated after
// construction.
type RenderRequest struct {
	URL           string
	WaitSelector  string
	SettleDelay   time.Duration
	Headers       http.Header
	ExcludeImages bool
	BypassCache   bool
	Timeout       time.Duration
}

// RenderResponse is what a Renderer returns for a page.
type RenderResponse struct {
	Success    bool
	Text       string
	Title      string
	StatusCode int
	FinalURL   string
	Duration   time.Duration
}

// SkipReason explains why a link produced no record.
type SkipReason string

// Skip reasons reported per link.
const (
	SkipNone          SkipReason = ""
	SkipFetchFailed   SkipReason = "fetch_failed"
	SkipTimeout       SkipReason = "timeout"
	SkipTooShort      SkipReason = "too_short"
	SkipAggregator    SkipReason = "aggregator"
	SkipPersistFailed SkipReason = "persist_failed"
)

// Outcome is the terminal state of one link's pipeline.
type Outcome struct {
	URL    string
	Synced bool
	Reason SkipReason
	Record FellowshipRecord
	Err    error
}

// Label returns the metric/log label for the outcome.
func (o Outcome) Label() string {
	if o.Synced {
		return "synced"
	}
	if o.Reason == SkipNone {
		return "unknown"
	}
	return string(o.Reason)
}
