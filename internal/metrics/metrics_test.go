package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.gov.in/path", "example.gov.in"},
		{"standard https", "https://Example.ac.in/path", "example.ac.in"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if searchRoundsTotal == nil || crawlOutcomesTotal == nil || inflightRenders == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveOutcome(t *testing.T) {
	Init()
	counter := crawlOutcomesTotal.WithLabelValues("www.iitb.ac.in", "synced")
	before := testutil.ToFloat64(counter)
	ObserveOutcome("https://www.iitb.ac.in/internship", "synced")
	ObserveOutcome("https://WWW.IITB.AC.IN/other", "synced")
	after := testutil.ToFloat64(counter)
	if after-before != 2 {
		t.Errorf("expected outcome counter to grow by 2, got %f", after-before)
	}
}

func TestInflightGauge(t *testing.T) {
	Init()
	before := testutil.ToFloat64(inflightRenders)
	IncInflightRenders()
	IncInflightRenders()
	DecInflightRenders()
	if got := testutil.ToFloat64(inflightRenders) - before; got != 1 {
		t.Errorf("expected in-flight gauge delta 1, got %f", got)
	}
	DecInflightRenders()
}

func TestObserveSearchAndPacing(t *testing.T) {
	Init()
	before := testutil.ToFloat64(searchRoundsTotal.WithLabelValues("failed"))
	ObserveSearchRound("failed")
	if got := testutil.ToFloat64(searchRoundsTotal.WithLabelValues("failed")) - before; got != 1 {
		t.Errorf("expected failed rounds delta 1, got %f", got)
	}
	ObservePacingDelay(100 * time.Millisecond)
	ObserveRender(true, time.Second)
	ObserveDiscovered("accepted")
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://isro.gov.in", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
