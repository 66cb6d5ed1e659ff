// Package collyfetcher implements a static crawler.Renderer using gocolly.
// It does not execute JavaScript; wait selectors and settle delays are ignored.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
	"github.com/JakeFAU/fellowship-crawler/internal/markdown"
	"github.com/JakeFAU/fellowship-crawler/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	Timeout time.Duration
}

// Renderer implements crawler.Renderer using the Colly collector.
type Renderer struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchResult struct {
	status   int
	finalURL string
	body     []byte
}

// New builds a Renderer.
func New(cfg Config, logger *zap.Logger) *Renderer {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())

	return &Renderer{
		cfg:           cfg,
		logger:        logging.OrNop(logger),
		baseCollector: c,
	}
}

// Render executes a single HTTP GET and converts the body to markdown text.
func (f *Renderer) Render(ctx context.Context, request crawler.RenderRequest) (crawler.RenderResponse, error) {
	metrics.IncInflightRenders()
	defer metrics.DecInflightRenders()

	start := time.Now()
	resp, err := f.render(ctx, request)
	resp.Duration = time.Since(start)
	metrics.ObserveRender(err == nil && resp.Success, resp.Duration)
	return resp, err
}

func (f *Renderer) render(ctx context.Context, request crawler.RenderRequest) (crawler.RenderResponse, error) {
	var (
		result   fetchResult
		fetchErr error
	)
	collector := f.buildCollector(request, &result, &fetchErr)
	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return crawler.RenderResponse{}, err
	}

	doc, err := markdown.ConvertString(string(result.body), result.finalURL)
	if err != nil {
		return crawler.RenderResponse{}, fmt.Errorf("convert %s: %w", result.finalURL, err)
	}
	f.logger.Debug("static render complete",
		zap.String("url", request.URL),
		zap.Int("status", result.status),
		zap.Int("text_len", len(doc.Text)),
	)
	return crawler.RenderResponse{
		Success:    result.status >= http.StatusOK && result.status < http.StatusBadRequest,
		Text:       doc.Text,
		Title:      doc.Title,
		StatusCode: result.status,
		FinalURL:   result.finalURL,
	}, nil
}

func (f *Renderer) buildCollector(
	request crawler.RenderRequest,
	result *fetchResult,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.SetRequestTimeout(f.timeout(request))
	if ua := request.Headers.Get("User-Agent"); ua != "" {
		collector.UserAgent = ua
	}
	f.configureCollectorHooks(collector, request, result, fetchErr)
	return collector
}

func (f *Renderer) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.RenderRequest,
	result *fetchResult,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		copyHeaders(request.Headers, r)
		if request.BypassCache {
			r.Headers.Set("Cache-Control", "no-cache")
			r.Headers.Set("Pragma", "no-cache")
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = fetchResult{
			status:   r.StatusCode,
			finalURL: r.Request.URL.String(),
			body:     append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Renderer) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Renderer) timeout(request crawler.RenderRequest) time.Duration {
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if request.Timeout > 0 && request.Timeout < timeout {
		return request.Timeout
	}
	return timeout
}

func copyHeaders(headers http.Header, r *colly.Request) {
	for key, values := range headers {
		if http.CanonicalHeaderKey(key) == "User-Agent" {
			continue
		}
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
