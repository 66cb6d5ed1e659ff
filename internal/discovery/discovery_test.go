package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

type fakeSearcher struct {
	mu       sync.Mutex
	pages    map[string]map[int][]crawler.SearchResult
	failures map[string]map[int]error
	requests []crawler.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req crawler.SearchRequest) ([]crawler.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.failures[req.Query][req.Page]; err != nil {
		return nil, err
	}
	return f.pages[req.Query][req.Page], nil
}

type countingPacer struct {
	calls int
	done  int
	err   error
}

func (p *countingPacer) Done() { p.done++ }

func (p *countingPacer) Wait(context.Context) error {
	p.calls++
	return p.err
}

func result(link, title string) crawler.SearchResult {
	return crawler.SearchResult{Link: link, Title: title}
}

func baseConfig(queries ...string) Config {
	return Config{
		Queries:        queries,
		Pages:          3,
		Region:         "in",
		ResultsPerPage: 50,
		Keywords:       []string{"intern", "fellow", "scholar", "trainee", "opportunity"},
		BlockedHosts:   []string{"instagram.com", "linkedin.com"},
	}
}

func TestDiscoverRanksAndFilters(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{pages: map[string]map[int][]crawler.SearchResult{
		"q1": {
			1: {
				result("https://careers.example.com/jobs", "Summer Internship 2026"),
				result("https://www.iitb.ac.in/research", "Research Fellowship"),
				result("https://www.instagram.com/p/abc", "Internship reel"),
				result("https://isro.gov.in/notice.PDF", "Trainee notice"),
				result("https://news.example.com/story", "Budget highlights"),
			},
			2: {
				result("https://WWW.IITB.AC.IN/research#apply", "Research Fellowship again"),
				result("https://dst.gov.in/scheme", "Scholarship scheme"),
			},
		},
		"q2": {
			1: {
				result("https://google.com/step", "STEP intern"),
				result("ftp://bad.example", "intern"),
				{Link: "https://blog.example.com", Title: "Blog", Snippet: "A great OPPORTUNITY for students"},
			},
		},
	}}
	pacer := &countingPacer{}
	d := New(searcher, pacer, nil, baseConfig("q1", "q2"), nil)

	links, stats, err := d.Discover(context.Background())
	require.NoError(t, err)

	require.Equal(t, []crawler.CandidateLink{
		{URL: "https://dst.gov.in/scheme", TrustScore: 100},
		{URL: "https://www.iitb.ac.in/research", TrustScore: 95},
		{URL: "https://google.com/step", TrustScore: 85},
		{URL: "https://careers.example.com/jobs", TrustScore: 50},
		{URL: "https://blog.example.com", TrustScore: 50},
	}, links)

	require.Equal(t, 6, stats.Rounds)
	require.Equal(t, 6, pacer.calls)
	require.Equal(t, 6, pacer.done)
	require.Equal(t, 0, stats.FailedRounds)
	require.Equal(t, 10, stats.Results)
	require.Equal(t, 5, stats.Accepted)
	require.Equal(t, 1, stats.Duplicates)
	require.Equal(t, 1, stats.Blocked)
	require.Equal(t, 1, stats.PDFs)
	require.Equal(t, 1, stats.Irrelevant)
	require.Equal(t, 1, stats.Invalid)

	require.Len(t, searcher.requests, 6)
	require.Equal(t, crawler.SearchRequest{Query: "q1", Region: "in", ResultsPerPage: 50, Page: 1}, searcher.requests[0])
	require.Equal(t, 3, searcher.requests[2].Page)
	require.Equal(t, "q2", searcher.requests[3].Query)
}

func TestDiscoverDedupesAcrossQueries(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{pages: map[string]map[int][]crawler.SearchResult{
		"a": {1: {result("https://x.example/intern?b=2&a=1", "intern x")}},
		"b": {1: {result("https://X.example:443/intern?a=1&b=2#f", "intern x again")}},
	}}
	cfg := baseConfig("a", "b")
	cfg.Pages = 1
	d := New(searcher, nil, nil, cfg, nil)

	links, stats, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []crawler.CandidateLink{{URL: "https://x.example/intern?a=1&b=2", TrustScore: 50}}, links)
	require.Equal(t, 1, stats.Accepted)
	require.Equal(t, 1, stats.Duplicates)
}

func TestDiscoverSkipsFailedRounds(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		pages: map[string]map[int][]crawler.SearchResult{
			"q": {
				1: {result("https://a.example/intern", "intern A")},
				3: {result("https://c.example/intern", "intern C")},
			},
		},
		failures: map[string]map[int]error{"q": {2: errors.New("429 too many requests")}},
	}
	d := New(searcher, nil, nil, baseConfig("q"), nil)

	links, stats, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Rounds)
	require.Equal(t, 1, stats.FailedRounds)
	require.Equal(t, []string{"https://a.example/intern", "https://c.example/intern"}, urls(links))
}

func TestDiscoverStableTies(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{pages: map[string]map[int][]crawler.SearchResult{
		"q": {1: {
			result("https://z.example/1", "intern"),
			result("https://a.example/2", "intern"),
			result("https://m.example/3", "intern"),
		}},
	}}
	cfg := baseConfig("q")
	cfg.Pages = 1
	links, _, err := New(searcher, nil, nil, cfg, nil).Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"https://z.example/1", "https://a.example/2", "https://m.example/3"}, urls(links))
}

func TestDiscoverEmpty(t *testing.T) {
	t.Parallel()

	links, stats, err := New(&fakeSearcher{}, nil, nil, baseConfig("q"), nil).Discover(context.Background())
	require.NoError(t, err)
	require.Empty(t, links)
	require.Equal(t, 3, stats.Rounds)
}

func TestDiscoverStopsWhenPacerCanceled(t *testing.T) {
	t.Parallel()

	pacer := &countingPacer{err: context.Canceled}
	searcher := &fakeSearcher{}
	_, stats, err := New(searcher, pacer, nil, baseConfig("q"), nil).Discover(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, stats.Rounds)
	require.Empty(t, searcher.requests)
}

type fixedScorer int

func (s fixedScorer) Score(string) int { return int(s) }

func TestDiscoverUsesInjectedScorer(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{pages: map[string]map[int][]crawler.SearchResult{
		"q": {1: {result("https://dst.gov.in/x", "fellowship")}},
	}}
	links, _, err := New(searcher, nil, fixedScorer(7), baseConfig("q"), nil).Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, links[0].TrustScore)
}

func urls(links []crawler.CandidateLink) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.URL)
	}
	return out
}
