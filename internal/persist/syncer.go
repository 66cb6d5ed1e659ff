// Package persist stamps extracted records and writes them to the store.
package persist

import (
	"context"
	"fmt"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

// Syncer implements crawler.Syncer.
type Syncer struct {
	store crawler.Store
	clock crawler.Clock
}

// New creates a Syncer.
func New(store crawler.Store, clock crawler.Clock) *Syncer {
	return &Syncer{store: store, clock: clock}
}

// Sync sets LastUpdated to now and upserts the record by apply link. Errors
// wrap crawler.ErrPersistFailed.
func (s *Syncer) Sync(ctx context.Context, record crawler.FellowshipRecord) error {
	record.LastUpdated = s.clock.Now()
	if err := s.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("%w: %s: %w", crawler.ErrPersistFailed, record.ApplyLink, err)
	}
	return nil
}
