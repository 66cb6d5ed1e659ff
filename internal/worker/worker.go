// Package worker implements the per-link crawl pipeline: render, gate,
// extract, and sync.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/extract"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/quality"
	"github.com/JakeFAU/fellowship-crawler/internal/trust"
)

const (
	defaultLinkTimeout = 60 * time.Second
	baseWaitSelector   = "body"
	acceptLanguage     = "en-IN,en;q=0.9"
)

// Config controls Worker behavior.
type Config struct {
	LinkTimeout            time.Duration
	MinTextChars           int
	AggregatorLinks        int
	AggregatorTrustCeiling int
	SettleDelay            time.Duration
	InstitutionalSelectors string
	UserAgents             []string
}

// Worker runs the pipeline for one link at a time. It is safe for
// concurrent use; each call builds its own request.
type Worker struct {
	renderer crawler.Renderer
	syncer   crawler.Syncer
	scorer   crawler.TrustScorer
	clock    crawler.Clock
	gate     *quality.Heuristic
	agents   *userAgentPool
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	renderer crawler.Renderer,
	syncer crawler.Syncer,
	scorer crawler.TrustScorer,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.LinkTimeout <= 0 {
		cfg.LinkTimeout = defaultLinkTimeout
	}
	if scorer == nil {
		scorer = trust.New()
	}
	return &Worker{
		renderer: renderer,
		syncer:   syncer,
		scorer:   scorer,
		clock:    clock,
		gate:     quality.NewHeuristic(cfg.MinTextChars, cfg.AggregatorLinks, cfg.AggregatorTrustCeiling),
		agents:   newUserAgentPool(cfg.UserAgents),
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}
}

// Process makes exactly one attempt at link and reports its terminal state.
// Failures are returned in the Outcome, never as a panic or error.
func (w *Worker) Process(ctx context.Context, link crawler.CandidateLink) crawler.Outcome {
	logger := w.logger.With(zap.String("url", link.URL))
	request := w.buildRequest(link)

	linkCtx, cancel := context.WithTimeout(ctx, w.cfg.LinkTimeout)
	resp, err := w.renderer.Render(linkCtx, request)
	timedOut := errors.Is(linkCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		reason := crawler.SkipFetchFailed
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			reason = crawler.SkipTimeout
		}
		logger.Info("skipping link", zap.String("reason", string(reason)), zap.Error(err))
		return skip(link, reason, fmt.Errorf("%w: %w", crawler.ErrFetchFailed, err))
	}
	if !resp.Success {
		logger.Info("skipping link", zap.String("reason", string(crawler.SkipFetchFailed)), zap.Int("status", resp.StatusCode))
		return skip(link, crawler.SkipFetchFailed, fmt.Errorf("%w: status %d", crawler.ErrFetchFailed, resp.StatusCode))
	}

	score := w.scorer.Score(link.URL)
	if reason, ok := w.gate.Assess(resp.Text, score); !ok {
		logger.Info("skipping link",
			zap.String("reason", string(reason)),
			zap.Int("text_len", len(resp.Text)),
			zap.Int("link_markers", quality.LinkMarkers(resp.Text)),
			zap.Int("trust_score", score),
		)
		return skip(link, reason, fmt.Errorf("%w: %s", crawler.ErrLowQuality, reason))
	}

	record := crawler.FellowshipRecord{
		ApplyLink:  link.URL,
		Name:       extract.Name(resp.Text, resp.Title),
		Deadline:   extract.Deadline(resp.Text, w.now()),
		TrustScore: score,
	}
	if err := w.syncer.Sync(ctx, record); err != nil {
		logger.Warn("persist failed", zap.Error(err))
		return skip(link, crawler.SkipPersistFailed, err)
	}

	logger.Info("synced fellowship",
		zap.String("name", record.Name),
		zap.String("deadline", record.Deadline),
		zap.Int("trust_score", record.TrustScore),
		zap.Duration("render_duration", resp.Duration),
	)
	return crawler.Outcome{URL: link.URL, Synced: true, Record: record}
}

// buildRequest assembles a fresh request; nothing in it is shared with other tasks.
func (w *Worker) buildRequest(link crawler.CandidateLink) crawler.RenderRequest {
	headers := http.Header{}
	if ua := w.agents.next(); ua != "" {
		headers.Set("User-Agent", ua)
	}
	headers.Set("Accept-Language", acceptLanguage)

	request := crawler.RenderRequest{
		URL:           link.URL,
		WaitSelector:  baseWaitSelector,
		Headers:       headers,
		ExcludeImages: true,
		BypassCache:   true,
		Timeout:       w.cfg.LinkTimeout,
	}
	if trust.IsInstitutional(link.URL) && w.cfg.InstitutionalSelectors != "" {
		request.WaitSelector = w.cfg.InstitutionalSelectors
		request.SettleDelay = w.cfg.SettleDelay
	}
	return request
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}

func skip(link crawler.CandidateLink, reason crawler.SkipReason, err error) crawler.Outcome {
	return crawler.Outcome{URL: link.URL, Reason: reason, Err: err}
}

// userAgentPool hands out user agents round-robin.
type userAgentPool struct {
	agents []string
	cursor atomic.Uint64
}

func newUserAgentPool(agents []string) *userAgentPool {
	return &userAgentPool{agents: append([]string(nil), agents...)}
}

func (p *userAgentPool) next() string {
	if len(p.agents) == 0 {
		return ""
	}
	n := p.cursor.Add(1) - 1
	return p.agents[n%uint64(len(p.agents))]
}
