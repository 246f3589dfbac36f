// Package yahoo implements the upstream.Client interface against the
// Yahoo Finance chart and search endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"stockproxy/internal/httpx"
	"stockproxy/internal/upstream"
)

const (
	defaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

	defaultMaxAttempts = 3
	// Delay bases for the linear backoff schedule, multiplied by the
	// 1-indexed attempt number. Rate limiting backs off harder than a
	// plain transport failure.
	defaultRateLimitDelay = 1000 * time.Millisecond
	defaultRetryDelay     = 500 * time.Millisecond
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the finance provider with retry-with-backoff.
type Client struct {
	chartURL       string
	searchURL      string
	httpClient     HTTPClient
	header         http.Header
	maxAttempts    int
	rateLimitDelay time.Duration
	retryDelay     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	logger         zerolog.Logger
}

// Option is a configuration option for the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithChartURL overrides the chart endpoint base URL.
func WithChartURL(u string) Option {
	return func(c *Client) { c.chartURL = u }
}

// WithSearchURL overrides the search endpoint base URL.
func WithSearchURL(u string) Option {
	return func(c *Client) { c.searchURL = u }
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithMaxAttempts sets how many times one upstream call is attempted
// before the last error is surfaced.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelays sets the backoff bases for rate-limited (429) and
// transport-failed attempts respectively.
func WithRetryDelays(rateLimited, transport time.Duration) Option {
	return func(c *Client) {
		c.rateLimitDelay = rateLimited
		c.retryDelay = transport
	}
}

// WithSleep substitutes the backoff sleep. Tests use this to assert
// the schedule without waiting it out.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a finance API client. With no options it uses the real
// endpoints and a plain http.DefaultClient; callers normally inject an
// httpx.Client so the browser user-agent is applied.
func New(options ...Option) *Client {
	c := &Client{
		chartURL:       defaultChartURL,
		searchURL:      defaultSearchURL,
		httpClient:     http.DefaultClient,
		header:         http.Header{},
		maxAttempts:    defaultMaxAttempts,
		rateLimitDelay: defaultRateLimitDelay,
		retryDelay:     defaultRetryDelay,
		sleep:          httpx.Sleep,
		logger:         zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Chart fetches the chart payload for one symbol. A response without
// chart.result[0], or one that is not JSON, maps to upstream.ErrNoData.
func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*upstream.ChartResult, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s&includePrePost=false",
		c.chartURL, url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(rng))

	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp upstream.ChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn().Str("symbol", symbol).Err(err).Msg("undecodable chart response")
		return nil, fmt.Errorf("%w: decode chart for %s: %v", upstream.ErrNoData, symbol, err)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", upstream.ErrNoData, symbol)
	}
	return &resp.Chart.Result[0], nil
}

// Search runs the search endpoint for symbol matches and/or news.
func (c *Client) Search(ctx context.Context, query string, quotesCount, newsCount int) (*upstream.SearchResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", strconv.Itoa(quotesCount))
	q.Set("newsCount", strconv.Itoa(newsCount))
	q.Set("enableFuzzyQuery", "false")
	q.Set("quotesQueryId", "tss_match_phrase_query")

	body, err := c.getWithRetry(ctx, c.searchURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp upstream.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn().Str("query", query).Err(err).Msg("undecodable search response")
		return nil, fmt.Errorf("%w: decode search for %q: %v", upstream.ErrNoData, query, err)
	}
	return &resp, nil
}

// getWithRetry performs a GET with the retry policy:
//   - 2xx returns immediately
//   - 429 sleeps rateLimitDelay x attempt before the next try
//   - a transport error sleeps retryDelay x attempt before the next try
//   - any other non-2xx counts as a failed attempt with no extra delay
//
// Attempt numbers are 1-indexed for the backoff multiplier. After
// maxAttempts the last recorded error is returned wrapped in an Error.
func (c *Client) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	transient := false

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		for key, values := range c.header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr, transient = err, true
			c.logger.Debug().Int("attempt", attempt).Err(err).Msg("upstream transport error")
			if attempt < c.maxAttempts {
				if serr := c.sleep(ctx, c.retryDelay*time.Duration(attempt)); serr != nil {
					return nil, serr
				}
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("reading response body: %w", err)
			}
			return body, nil
		}

		resp.Body.Close()
		lastErr = &StatusError{Code: resp.StatusCode}
		transient = resp.StatusCode == http.StatusTooManyRequests
		c.logger.Debug().Int("attempt", attempt).Int("status", resp.StatusCode).Msg("upstream non-2xx")
		if transient && attempt < c.maxAttempts {
			if serr := c.sleep(ctx, c.rateLimitDelay*time.Duration(attempt)); serr != nil {
				return nil, serr
			}
		}
	}

	return nil, &Error{Attempts: c.maxAttempts, Transient: transient, Err: lastErr}
}
