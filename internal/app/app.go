// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/api"
	"github.com/JakeFAU/fellowship-crawler/internal/clock/system"
	"github.com/JakeFAU/fellowship-crawler/internal/config"
	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/discovery"
	"github.com/JakeFAU/fellowship-crawler/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/fellowship-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/fellowship-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/fellowship-crawler/internal/id/uuid"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/persist"
	"github.com/JakeFAU/fellowship-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/fellowship-crawler/internal/search/serper"
	"github.com/JakeFAU/fellowship-crawler/internal/storage"
	"github.com/JakeFAU/fellowship-crawler/internal/trust"
	"github.com/JakeFAU/fellowship-crawler/internal/worker"
)

// App holds the shared services for one process. It is built once at
// startup and closed by the CLI after the command finishes.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      storage.Backend
	searcher   crawler.Searcher
	renderer   crawler.Renderer
	discoverer *discovery.Discoverer
	dispatcher *dispatcher.Dispatcher
	server     *api.Server
	closers    []func()
}

// Option overrides a capability handle before the pipeline is assembled.
type Option func(*App)

// WithSearcher replaces the Serper client.
func WithSearcher(s crawler.Searcher) Option {
	return func(a *App) { a.searcher = s }
}

// WithRenderer replaces the configured rendering engine.
func WithRenderer(r crawler.Renderer) Option {
	return func(a *App) { a.renderer = r }
}

// New opens the store and assembles discovery, crawling, and the listing API
// from cfg. It fails fast when the store cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	clock := system.New()
	store, err := storage.Open(ctx, cfg.Storage, uuid.New())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Provider, err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	logger.Info("store ready", zap.String("provider", cfg.Storage.Provider))

	if a.searcher == nil {
		a.searcher = serper.New(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.Timeout)
	}
	if a.renderer == nil {
		a.renderer = a.buildRenderer()
	}

	scorer := trust.New()
	a.discoverer = discovery.New(
		a.searcher,
		ratelimit.New(cfg.Search.Delay),
		scorer,
		discovery.Config{
			Queries:        cfg.Search.Queries,
			Pages:          cfg.Search.Pages,
			Region:         cfg.Search.Region,
			ResultsPerPage: cfg.Search.ResultsPerPage,
			Keywords:       cfg.Search.Keywords,
			BlockedHosts:   cfg.Search.BlockedHosts,
		},
		logger.Named("discovery"),
	)

	w := worker.New(
		a.renderer,
		persist.New(store, clock),
		scorer,
		clock,
		worker.Config{
			LinkTimeout:            cfg.Crawler.LinkTimeout,
			MinTextChars:           cfg.Crawler.MinTextChars,
			AggregatorLinks:        cfg.Crawler.AggregatorLinks,
			AggregatorTrustCeiling: cfg.Crawler.AggregatorTrustCeiling,
			SettleDelay:            cfg.Crawler.SettleDelay,
			InstitutionalSelectors: cfg.Crawler.InstitutionalSelectors,
			UserAgents:             cfg.Crawler.UserAgents,
		},
		logger.Named("worker"),
	)
	a.dispatcher = dispatcher.New(w, cfg.Crawler.Concurrency, logger.Named("dispatcher"))
	a.server = api.NewServer(store, api.Config{ListLimit: cfg.Server.ListLimit}, logger.Named("api"))

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) buildRenderer() crawler.Renderer {
	switch a.cfg.Renderer.Engine {
	case config.EngineColly:
		a.logger.Info("using colly renderer")
		return collyfetcher.New(collyfetcher.Config{Timeout: a.cfg.Renderer.NavTimeout}, a.logger.Named("colly"))
	default:
		a.logger.Info("using chromedp renderer")
		r := headlessfetcher.NewChromedp(headlessfetcher.Config{
			NavigationTimeout: a.cfg.Renderer.NavTimeout,
			ExcludeImages:     true,
		}, a.logger.Named("chromedp"))
		a.closers = append(a.closers, r.Close)
		return r
	}
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the configured record store.
func (a *App) Store() crawler.Store {
	return a.store
}

// Handler returns the listing API router.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Port is the listening port for the listing API.
func (a *App) Port() int {
	return a.cfg.Server.Port
}

// RunCrawl performs one discovery pass followed by one crawl of every
// accepted link and returns the run summary. Cancellation during discovery
// still crawls whatever was already accepted.
func (a *App) RunCrawl(ctx context.Context) (dispatcher.Summary, error) {
	if err := a.cfg.SearchReady(); err != nil {
		return dispatcher.Summary{}, err
	}

	links, stats, err := a.discoverer.Discover(ctx)
	a.logger.Info("discovery finished", append(stats.Fields(), zap.Int("links", len(links)))...)
	if err != nil {
		a.logger.Warn("discovery interrupted", zap.Error(err))
	}

	summary := a.dispatcher.Run(ctx, links)
	a.logger.Info("crawl finished", summary.Fields()...)
	return summary, nil
}

// Close releases the renderer and the store in reverse order of creation.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	// Sync errors on stderr/stdout are expected on some platforms.
	_ = a.logger.Sync()
}
