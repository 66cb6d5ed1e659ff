package crawler

import (
	"context"
	"time"
)

// Searcher runs one query page against the search capability.
type Searcher interface {
	Search(ctx context.Context, request SearchRequest) ([]SearchResult, error)
}

// Renderer fetches and renders a page into plain text plus metadata.
type Renderer interface {
	Render(ctx context.Context, request RenderRequest) (RenderResponse, error)
}

// Store persists fellowship records keyed by apply link.
type Store interface {
	Upsert(ctx context.Context, record FellowshipRecord) error
	List(ctx context.Context, limit int) ([]StoredFellowship, error)
}

// Syncer writes one extracted record into the Store.
type Syncer interface {
	Sync(ctx context.Context, record FellowshipRecord) error
}

// TrustScorer ranks a URL as a likely authoritative source.
type TrustScorer interface {
	Score(url string) int
}

// Pacer blocks until the next search request may be issued. Done marks the
// end of a request; the next Wait is measured from that point.
type Pacer interface {
	Wait(ctx context.Context) error
	Done()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
