// Package ratelimit wraps an upstream.Client with a shared token
// bucket so the proxy stays under the provider's request budget.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"stockproxy/internal/upstream"
)

// Client gates every upstream call on a rate.Limiter. Concurrent
// symbol fetches share the one bucket, so a large quote fan-out cannot
// burst past the configured rate.
type Client struct {
	C upstream.Client
	L *rate.Limiter
}

// New builds a limiter allowing perSec requests per second with the
// given burst. burst values below 1 are raised to 1.
func New(c upstream.Client, perSec float64, burst int) *Client {
	if burst < 1 {
		burst = 1
	}
	return &Client{C: c, L: rate.NewLimiter(rate.Limit(perSec), burst)}
}

func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*upstream.ChartResult, error) {
	if err := c.L.Wait(ctx); err != nil {
		return nil, err
	}
	return c.C.Chart(ctx, symbol, interval, rng)
}

func (c *Client) Search(ctx context.Context, query string, quotesCount, newsCount int) (*upstream.SearchResponse, error) {
	if err := c.L.Wait(ctx); err != nil {
		return nil, err
	}
	return c.C.Search(ctx, query, quotesCount, newsCount)
}
