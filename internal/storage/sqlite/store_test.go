package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "fellowships.db")
	store, err := Open(context.Background(), path, "", &seqIDs{})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

var t0 = time.Date(2026, time.October, 14, 9, 30, 0, 123000, time.UTC)

func TestUpsertTwiceKeepsOneRowAndID(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	rec := crawler.FellowshipRecord{
		ApplyLink:   "https://www.iisc.ac.in/srf",
		Name:        "Summer Research Fellowship",
		Deadline:    "Check Website",
		TrustScore:  95,
		LastUpdated: t0,
	}
	require.NoError(t, store.Upsert(ctx, rec))

	rec.Deadline = "2026-11-15"
	rec.LastUpdated = t0.Add(time.Hour)
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.List(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, []crawler.StoredFellowship{{ID: "id-1", FellowshipRecord: rec}}, got)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	for i, link := range []string{"https://a", "https://b", "https://c"} {
		require.NoError(t, store.Upsert(ctx, crawler.FellowshipRecord{
			ApplyLink: link, Name: link, Deadline: "Check Website", LastUpdated: t0.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "https://c", got[0].ApplyLink)
	require.Equal(t, "https://b", got[1].ApplyLink)
	require.Equal(t, t0.Add(2*time.Minute), got[0].LastUpdated)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fellowships.db")
	ctx := context.Background()
	first, err := Open(ctx, path, "fellowships", &seqIDs{})
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, crawler.FellowshipRecord{ApplyLink: "https://a", LastUpdated: t0}))
	first.Close()

	second, err := Open(ctx, path, "fellowships", &seqIDs{})
	require.NoError(t, err)
	t.Cleanup(second.Close)
	require.NoError(t, second.Ping(ctx))
	got, err := second.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestOpenValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := Open(ctx, "", "", &seqIDs{})
	require.Error(t, err)
	_, err = Open(ctx, filepath.Join(t.TempDir(), "x.db"), "bad name", &seqIDs{})
	require.Error(t, err)
	_, err = Open(ctx, filepath.Join(t.TempDir(), "x.db"), "", nil)
	require.Error(t, err)
}

func TestUpsertRejectsEmptyLink(t *testing.T) {
	t.Parallel()

	require.Error(t, openTestStore(t).Upsert(context.Background(), crawler.FellowshipRecord{}))
}
