// Package memory provides an in-process fellowship store for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

// Store keeps one record per apply link in a map.
type Store struct {
	mu      sync.RWMutex
	ids     crawler.IDGenerator
	records map[string]crawler.StoredFellowship
}

// New constructs a Store.
func New(ids crawler.IDGenerator) *Store {
	return &Store{
		ids:     ids,
		records: make(map[string]crawler.StoredFellowship),
	}
}

// Upsert inserts the record or overwrites the existing one, keeping its id.
func (s *Store) Upsert(_ context.Context, record crawler.FellowshipRecord) error {
	if record.ApplyLink == "" {
		return errors.New("apply link is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.ApplyLink]
	if !ok {
		id, err := s.ids.NewID()
		if err != nil {
			return err
		}
		existing.ID = id
	}
	existing.FellowshipRecord = record
	s.records[record.ApplyLink] = existing
	return nil
}

// List returns up to limit records, most recently updated first.
func (s *Store) List(_ context.Context, limit int) ([]crawler.StoredFellowship, error) {
	s.mu.RLock()
	out := make([]crawler.StoredFellowship, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return strings.Compare(out[i].ApplyLink, out[j].ApplyLink) < 0
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many distinct apply links are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *Store) Close() {}
