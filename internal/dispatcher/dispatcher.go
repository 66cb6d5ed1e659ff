// Package dispatcher fans candidate links out to workers under a fixed
// concurrency ceiling.
package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/metrics"
)

const defaultConcurrency = 3

// Processor runs the pipeline for a single link.
type Processor interface {
	Process(ctx context.Context, link crawler.CandidateLink) crawler.Outcome
}

// Summary aggregates one run.
type Summary struct {
	Total    int
	Synced   int
	Counts   map[string]int
	Outcomes []crawler.Outcome
	Duration time.Duration
}

// Fields renders the summary as zap fields, one per outcome label.
func (s Summary) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("synced", s.Synced),
		zap.Duration("duration", s.Duration),
	}
	labels := make([]string, 0, len(s.Counts))
	for label := range s.Counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if label == "synced" {
			continue
		}
		fields = append(fields, zap.Int("skipped_"+label, s.Counts[label]))
	}
	return fields
}

// Dispatcher bounds how many links are in flight at once.
type Dispatcher struct {
	processor   Processor
	concurrency int
	logger      *zap.Logger
}

// New creates a Dispatcher.
func New(processor Processor, concurrency int, logger *zap.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Dispatcher{
		processor:   processor,
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
	}
}

// Run processes every link exactly once and returns after all of them have
// reached a terminal state. A failing or panicking link never affects its
// siblings.
func (d *Dispatcher) Run(ctx context.Context, links []crawler.CandidateLink) Summary {
	start := time.Now()
	outcomes := make([]crawler.Outcome, len(links))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, link := range links {
		g.Go(func() error {
			outcomes[i] = d.runTask(ctx, link)
			return nil
		})
	}
	// Tasks never return errors.
	_ = g.Wait()

	summary := Summary{
		Total:    len(links),
		Counts:   make(map[string]int),
		Outcomes: outcomes,
		Duration: time.Since(start),
	}
	for _, out := range outcomes {
		summary.Counts[out.Label()]++
		if out.Synced {
			summary.Synced++
		}
	}
	return summary
}

func (d *Dispatcher) runTask(ctx context.Context, link crawler.CandidateLink) (out crawler.Outcome) {
	defer func() {
		metrics.ObserveOutcome(link.URL, out.Label())
	}()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("crawl task panicked", zap.String("url", link.URL), zap.Any("panic", r))
			out = crawler.Outcome{
				URL:    link.URL,
				Reason: crawler.SkipFetchFailed,
				Err:    fmt.Errorf("%w: panic: %v", crawler.ErrFetchFailed, r),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return crawler.Outcome{
			URL:    link.URL,
			Reason: crawler.SkipFetchFailed,
			Err:    fmt.Errorf("%w: %w", crawler.ErrFetchFailed, err),
		}
	}
	return d.processor.Process(ctx, link)
}
