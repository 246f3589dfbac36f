// Package cache wraps an upstream.Client with a TTL response cache.
// Concurrent identical requests are coalesced into a single upstream
// call, so a burst of clients asking for the same symbol costs one
// provider request.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"stockproxy/internal/upstream"
)

// Client caches raw upstream responses for a TTL. Errors are never
// cached; a failed fetch is retried by the next caller.
type Client struct {
	C     upstream.Client
	store *gocache.Cache
	group singleflight.Group
}

func New(c upstream.Client, ttl time.Duration) *Client {
	return &Client{C: c, store: gocache.New(ttl, 2*ttl)}
}

func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*upstream.ChartResult, error) {
	key := cacheKey("chart", symbol, interval, rng)
	if v, ok := c.store.Get(key); ok {
		return v.(*upstream.ChartResult), nil
	}
	// The first caller's context drives the shared fetch; duplicates
	// piggyback on its result.
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		res, err := c.C.Chart(ctx, symbol, interval, rng)
		if err != nil {
			return nil, err
		}
		c.store.SetDefault(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*upstream.ChartResult), nil
}

func (c *Client) Search(ctx context.Context, query string, quotesCount, newsCount int) (*upstream.SearchResponse, error) {
	key := cacheKey("search", query, strconv.Itoa(quotesCount), strconv.Itoa(newsCount))
	if v, ok := c.store.Get(key); ok {
		return v.(*upstream.SearchResponse), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		res, err := c.C.Search(ctx, query, quotesCount, newsCount)
		if err != nil {
			return nil, err
		}
		c.store.SetDefault(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*upstream.SearchResponse), nil
}

// cacheKey joins parts with a separator that cannot occur in symbols
// or queries coming through URL encoding.
func cacheKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}
