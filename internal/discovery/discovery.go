// Package discovery turns search queries into a trust-ranked, deduplicated
// list of candidate links.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/metrics"
	"github.com/JakeFAU/fellowship-crawler/internal/trust"
)

// Config controls which rounds are issued and which results are kept.
type Config struct {
	Queries        []string
	Pages          int
	Region         string
	ResultsPerPage int
	Keywords       []string
	BlockedHosts   []string
}

// Stats summarizes one discovery pass.
type Stats struct {
	Rounds       int
	FailedRounds int
	Results      int
	Accepted     int
	Duplicates   int
	Blocked      int
	PDFs         int
	Irrelevant   int
	Invalid      int
}

// Fields renders the stats as zap fields.
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("rounds", s.Rounds),
		zap.Int("failed_rounds", s.FailedRounds),
		zap.Int("results", s.Results),
		zap.Int("accepted", s.Accepted),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("blocked", s.Blocked),
		zap.Int("pdfs", s.PDFs),
		zap.Int("irrelevant", s.Irrelevant),
		zap.Int("invalid", s.Invalid),
	}
}

type verdict string

const (
	verdictAccepted   verdict = "accepted"
	verdictDuplicate  verdict = "duplicate"
	verdictBlocked    verdict = "blocked"
	verdictPDF        verdict = "pdf"
	verdictIrrelevant verdict = "irrelevant"
	verdictInvalid    verdict = "invalid"
)

// Discoverer runs the sequential, paced search rounds.
type Discoverer struct {
	searcher  crawler.Searcher
	pacer     crawler.Pacer
	scorer    crawler.TrustScorer
	blocklist *crawler.HostBlocklist
	keywords  []string
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Discoverer. A nil pacer disables pacing and a nil scorer
// uses the default trust policy.
func New(
	searcher crawler.Searcher,
	pacer crawler.Pacer,
	scorer crawler.TrustScorer,
	cfg Config,
	logger *zap.Logger,
) *Discoverer {
	if scorer == nil {
		scorer = trust.New()
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 1
	}
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Discoverer{
		searcher:  searcher,
		pacer:     pacer,
		scorer:    scorer,
		blocklist: crawler.NewHostBlocklist(cfg.BlockedHosts),
		keywords:  keywords,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
	}
}

// Discover issues every (query, page) round in order and returns the
// accepted links sorted by trust score, highest first. Ties keep discovery
// order. Failed rounds are logged and skipped; only context cancellation
// ends the pass early, in which case the links gathered so far are returned
// along with the context error.
func (d *Discoverer) Discover(ctx context.Context) ([]crawler.CandidateLink, Stats, error) {
	var (
		stats Stats
		links []crawler.CandidateLink
		seen  = make(map[string]struct{})
	)

	for _, query := range d.cfg.Queries {
		for page := 1; page <= d.cfg.Pages; page++ {
			if err := d.pace(ctx); err != nil {
				return finish(links), stats, err
			}
			stats.Rounds++
			round := crawler.SearchQuery{Template: query, Page: page}
			results, err := d.searcher.Search(ctx, crawler.SearchRequest{
				Query:          query,
				Region:         d.cfg.Region,
				ResultsPerPage: d.cfg.ResultsPerPage,
				Page:           page,
			})
			if d.pacer != nil {
				d.pacer.Done()
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return finish(links), stats, fmt.Errorf("discovery canceled: %w", ctxErr)
				}
				stats.FailedRounds++
				metrics.ObserveSearchRound("failed")
				d.logger.Warn("search round failed",
					zap.String("query", round.Template),
					zap.Int("page", round.Page),
					zap.Error(errors.Join(crawler.ErrDiscoveryRound, err)),
				)
				continue
			}
			metrics.ObserveSearchRound("ok")

			accepted := 0
			for _, result := range results {
				stats.Results++
				link, v := d.classify(result, seen)
				metrics.ObserveDiscovered(string(v))
				switch v {
				case verdictAccepted:
					seen[link.URL] = struct{}{}
					links = append(links, link)
					stats.Accepted++
					accepted++
				case verdictDuplicate:
					stats.Duplicates++
				case verdictBlocked:
					stats.Blocked++
				case verdictPDF:
					stats.PDFs++
				case verdictIrrelevant:
					stats.Irrelevant++
				case verdictInvalid:
					stats.Invalid++
				}
			}
			d.logger.Debug("search round complete",
				zap.String("query", round.Template),
				zap.Int("page", round.Page),
				zap.Int("results", len(results)),
				zap.Int("accepted", accepted),
			)
		}
	}

	return finish(links), stats, nil
}

func (d *Discoverer) pace(ctx context.Context) error {
	if d.pacer == nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("discovery canceled: %w", err)
		}
		return nil
	}
	if err := d.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("discovery canceled: %w", err)
	}
	return nil
}

func (d *Discoverer) classify(result crawler.SearchResult, seen map[string]struct{}) (crawler.CandidateLink, verdict) {
	normalized, err := crawler.NormalizeURL(result.Link)
	if err != nil {
		return crawler.CandidateLink{}, verdictInvalid
	}
	if _, dup := seen[normalized]; dup {
		return crawler.CandidateLink{}, verdictDuplicate
	}
	if d.blocklist.IsBlockedURL(normalized) {
		return crawler.CandidateLink{}, verdictBlocked
	}
	if crawler.IsPDF(normalized) {
		return crawler.CandidateLink{}, verdictPDF
	}
	if !d.relevant(result) {
		return crawler.CandidateLink{}, verdictIrrelevant
	}
	return crawler.CandidateLink{URL: normalized, TrustScore: d.scorer.Score(normalized)}, verdictAccepted
}

func (d *Discoverer) relevant(result crawler.SearchResult) bool {
	text := strings.ToLower(result.Title + " " + result.Snippet)
	for _, kw := range d.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func finish(links []crawler.CandidateLink) []crawler.CandidateLink {
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].TrustScore > links[j].TrustScore
	})
	return links
}
