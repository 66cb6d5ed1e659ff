// Package serper is a crawler.Searcher backed by a Serper-compatible
// search API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

// DefaultEndpoint is the public Serper search endpoint.
const DefaultEndpoint = "https://google.serper.dev/search"

const defaultTimeout = 20 * time.Second

// ErrUnauthorized indicates a rejected API key.
var ErrUnauthorized = errors.New("serper: unauthorized")

// Client issues search requests.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for endpoint authenticated with apiKey.
func New(endpoint, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query string `json:"q"`
	GL    string `json:"gl,omitempty"`
	Num   int    `json:"num,omitempty"`
	Page  int    `json:"page,omitempty"`
}

type searchResponse struct {
	Organic []crawler.SearchResult `json:"organic"`
}

// Search runs one query page and returns its organic results.
func (c *Client) Search(ctx context.Context, request crawler.SearchRequest) ([]crawler.SearchResult, error) {
	body, err := json.Marshal(searchRequest{
		Query: request.Query,
		GL:    request.Region,
		Num:   request.ResultsPerPage,
		Page:  request.Page,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q page %d: %w", request.Query, request.Page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Organic, nil
}
