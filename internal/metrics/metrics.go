// Package metrics exposes Prometheus collectors for the fellowship crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchRoundsTotal          *prometheus.CounterVec
	discoveredLinksTotal       *prometheus.CounterVec
	crawlOutcomesTotal         *prometheus.CounterVec
	renderDurationSeconds      *prometheus.HistogramVec
	inflightRenders            prometheus.Gauge
	pacingDelaySeconds         prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchRoundsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_search_rounds_total",
				Help: "Search requests issued during discovery, labeled by status.",
			},
			[]string{"status"},
		)

		discoveredLinksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_discovered_links_total",
				Help: "Search results seen during discovery, labeled by verdict.",
			},
			[]string{"verdict"},
		)

		crawlOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_crawl_outcomes_total",
				Help: "Terminal per-link crawl outcomes, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		renderDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fellowship_render_duration_seconds",
				Help:    "Histogram of renderer latencies, labeled by success.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"success"},
		)

		inflightRenders = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fellowship_inflight_renders",
				Help: "Number of page fetches currently in progress.",
			},
		)

		pacingDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fellowship_search_pacing_delay_seconds",
				Help:    "Histogram of waits imposed between search requests.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearchRound counts one search request by status ("ok" or "failed").
func ObserveSearchRound(status string) {
	Init()
	searchRoundsTotal.WithLabelValues(status).Inc()
}

// ObserveDiscovered counts one search result by verdict.
func ObserveDiscovered(verdict string) {
	Init()
	discoveredLinksTotal.WithLabelValues(verdict).Inc()
}

// ObserveOutcome counts a terminal crawl outcome for the link's site.
func ObserveOutcome(link, outcome string) {
	Init()
	crawlOutcomesTotal.WithLabelValues(SanitizeSite(link), outcome).Inc()
}

// ObserveRender records one renderer call.
func ObserveRender(success bool, duration time.Duration) {
	Init()
	renderDurationSeconds.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

// IncInflightRenders increments the in-flight renders gauge.
func IncInflightRenders() {
	Init()
	inflightRenders.Inc()
}

// DecInflightRenders decrements the in-flight renders gauge.
func DecInflightRenders() {
	Init()
	inflightRenders.Dec()
}

// ObservePacingDelay records the duration of a pacing wait.
func ObservePacingDelay(duration time.Duration) {
	Init()
	pacingDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
