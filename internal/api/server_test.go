package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/storage/memory"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

type brokenStore struct {
	pingErr error
}

func (brokenStore) Upsert(context.Context, crawler.FellowshipRecord) error { return nil }

func (brokenStore) List(context.Context, int) ([]crawler.StoredFellowship, error) {
	return nil, errors.New("connection refused")
}

func (b brokenStore) Ping(context.Context) error { return b.pingErr }

type panicStore struct{ brokenStore }

func (panicStore) List(context.Context, int) ([]crawler.StoredFellowship, error) {
	panic("boom")
}

var t0 = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)

func seededStore(t *testing.T, n int) *memory.Store {
	t.Helper()
	store := memory.New(&seqIDs{})
	for i := range n {
		require.NoError(t, store.Upsert(context.Background(), crawler.FellowshipRecord{
			ApplyLink:   fmt.Sprintf("https://site%d.example/intern", i),
			Name:        fmt.Sprintf("Fellowship %d", i),
			Deadline:    "Check Website",
			TrustScore:  50,
			LastUpdated: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	return store
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestListFellowshipsNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewServer(seededStore(t, 3), Config{}, zap.NewNop())
	rec := get(t, s, "/api/fellowships")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 3)
	require.Equal(t, "https://site2.example/intern", body[0]["apply_link"])
	require.Equal(t, "id-3", body[0]["id"])
	require.Equal(t, "Fellowship 2", body[0]["name"])
	require.Equal(t, "Check Website", body[0]["deadline"])
	require.EqualValues(t, 50, body[0]["trust_score"])
	require.Equal(t, "2026-10-14T09:02:00Z", body[0]["last_updated"])
}

func TestListFellowshipsLimit(t *testing.T) {
	t.Parallel()

	s := NewServer(seededStore(t, 5), Config{ListLimit: 3}, nil)

	var body []crawler.StoredFellowship
	require.NoError(t, json.Unmarshal(get(t, s, "/api/fellowships").Body.Bytes(), &body))
	require.Len(t, body, 3)

	require.NoError(t, json.Unmarshal(get(t, s, "/api/fellowships?limit=2").Body.Bytes(), &body))
	require.Len(t, body, 2)

	// Requests above the configured ceiling are clamped.
	require.NoError(t, json.Unmarshal(get(t, s, "/api/fellowships?limit=50").Body.Bytes(), &body))
	require.Len(t, body, 3)

	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/fellowships?limit=zero").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/fellowships?limit=-1").Code)
}

func TestListFellowshipsEmptyIsArray(t *testing.T) {
	t.Parallel()

	rec := get(t, NewServer(memory.New(&seqIDs{}), Config{}, nil), "/api/fellowships")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestListFellowshipsStoreError(t *testing.T) {
	t.Parallel()

	rec := get(t, NewServer(brokenStore{}, Config{}, nil), "/api/fellowships")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "failed to list fellowships")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusOK, get(t, NewServer(memory.New(&seqIDs{}), Config{}, nil), "/healthz").Code)
	require.Equal(t, http.StatusOK, get(t, NewServer(brokenStore{}, Config{}, nil), "/healthz").Code)

	rec := get(t, NewServer(brokenStore{pingErr: errors.New("down")}, Config{}, nil), "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "degraded")
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	rec := get(t, NewServer(panicStore{}, Config{}, zap.NewNop()), "/api/fellowships")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s := NewServer(memory.New(&seqIDs{}), Config{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/fellowships", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.MethodGet, rec.Header().Get("Access-Control-Allow-Methods"))
	require.Empty(t, rec.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	t.Parallel()

	s := NewServer(memory.New(&seqIDs{}), Config{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := NewServer(memory.New(&seqIDs{}), Config{}, nil)
	get(t, s, "/healthz")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
