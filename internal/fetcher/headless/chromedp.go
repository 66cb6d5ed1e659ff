// Package headless renders pages in headless Chrome via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/markdown"
	"github.com/JakeFAU/fellowship-crawler/internal/metrics"
)

const defaultNavTimeout = 35 * time.Second

// Config controls the behavior of the headless renderer.
type Config struct {
	NavigationTimeout time.Duration
	ExcludeImages     bool
	NoSandbox         bool
}

// Renderer implements crawler.Renderer with one browser per process and one
// tab per request.
type Renderer struct {
	cfg         Config
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc

	browserOnce   sync.Once
	browserCtx    context.Context
	browserCancel context.CancelFunc
	browserErr    error
}

// NewChromedp creates a headless renderer backed by chromedp. The browser is
// started lazily on the first Render.
func NewChromedp(cfg Config, logger *zap.Logger) *Renderer {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Renderer{
		cfg:         cfg,
		logger:      logging.OrNop(logger),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExcludeImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	r.allocCancel()
}

// browser starts the shared browser once; tabs are opened from its context.
func (r *Renderer) browser() (context.Context, error) {
	r.browserOnce.Do(func() {
		ctx, cancel := chromedp.NewContext(r.allocator)
		if err := chromedp.Run(ctx); err != nil {
			cancel()
			r.browserErr = fmt.Errorf("start browser: %w", err)
			return
		}
		r.browserCtx, r.browserCancel = ctx, cancel
	})
	return r.browserCtx, r.browserErr
}

// Render navigates to request.URL, waits per the request's strategy and
// returns the page as markdown text.
func (r *Renderer) Render(ctx context.Context, request crawler.RenderRequest) (crawler.RenderResponse, error) {
	metrics.IncInflightRenders()
	defer metrics.DecInflightRenders()

	start := time.Now()
	resp, err := r.render(ctx, request)
	resp.Duration = time.Since(start)
	metrics.ObserveRender(err == nil && resp.Success, resp.Duration)
	return resp, err
}

func (r *Renderer) render(ctx context.Context, request crawler.RenderRequest) (crawler.RenderResponse, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return crawler.RenderResponse{}, err
	}
	// The tab must observe the caller's deadline as well as the browser's lifetime.
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	tabCtx, cancel := context.WithTimeout(tabCtx, r.timeout(request))
	defer cancel()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	page, err := r.run(tabCtx, request)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return crawler.RenderResponse{}, fmt.Errorf("render %s: %w", request.URL, context.DeadlineExceeded)
		}
		return crawler.RenderResponse{}, err
	}

	status, finalURL := meta.snapshotWithFallbacks(request.URL, page.location)
	doc, err := markdown.ConvertString(page.html, finalURL)
	if err != nil {
		return crawler.RenderResponse{}, fmt.Errorf("convert %s: %w", finalURL, err)
	}
	title := page.title
	if title == "" {
		title = doc.Title
	}
	r.logger.Debug("headless render complete",
		zap.String("url", request.URL),
		zap.Int("status", status),
		zap.Int("text_len", len(doc.Text)),
	)
	return crawler.RenderResponse{
		Success:    status < http.StatusBadRequest,
		Text:       doc.Text,
		Title:      title,
		StatusCode: status,
		FinalURL:   finalURL,
	}, nil
}

type renderedPage struct {
	html     string
	title    string
	location string
}

func (r *Renderer) run(ctx context.Context, request crawler.RenderRequest) (renderedPage, error) {
	var page renderedPage
	selector := request.WaitSelector
	if selector == "" {
		selector = "body"
	}
	actions := []chromedp.Action{
		networkSetupAction(request),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady(selector, chromedp.ByQuery),
	}
	if request.SettleDelay > 0 {
		actions = append(actions, chromedp.Sleep(request.SettleDelay))
	}
	actions = append(actions,
		chromedp.Location(&page.location),
		chromedp.Title(&page.title),
		chromedp.OuterHTML("html", &page.html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return renderedPage{}, fmt.Errorf("chromedp run: %w", err)
	}
	return page, nil
}

func networkSetupAction(request crawler.RenderRequest) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if request.BypassCache {
			if err := network.SetCacheDisabled(true).Do(ctx); err != nil {
				return fmt.Errorf("disable cache: %w", err)
			}
		}
		headers := cloneHeader(request.Headers)
		if ua := headers.Get("User-Agent"); ua != "" {
			if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
			headers.Del("User-Agent")
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func (r *Renderer) timeout(request crawler.RenderRequest) time.Duration {
	if request.Timeout > 0 && request.Timeout < r.navTimeout() {
		return request.Timeout
	}
	return r.navTimeout()
}

func (r *Renderer) navTimeout() time.Duration {
	if r.cfg.NavigationTimeout > 0 {
		return r.cfg.NavigationTimeout
	}
	return defaultNavTimeout
}

// responseMeta records the status of the main document response.
type responseMeta struct {
	mu     sync.RWMutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The main frame responds first; iframes follow.
	if m.status != 0 {
		return
	}
	m.status = int(event.Response.Status)
	m.url = event.Response.URL
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, string) {
	m.mu.RLock()
	status, url := m.status, m.url
	m.mu.RUnlock()
	switch {
	case finalURL != "":
		url = finalURL
	case url != "":
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, url
}

func cloneHeader(src http.Header) http.Header {
	if src == nil {
		return http.Header{}
	}
	return src.Clone()
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			headers[key] = values[0]
		} else {
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
