package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockproxy/internal/upstream"
)

type countingUpstream struct {
	chartCalls  atomic.Int64
	searchCalls atomic.Int64
	chartErr    error
	block       chan struct{} // optional: holds Chart open until closed
}

func (c *countingUpstream) Chart(_ context.Context, symbol, interval, rng string) (*upstream.ChartResult, error) {
	c.chartCalls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.chartErr != nil {
		return nil, c.chartErr
	}
	return &upstream.ChartResult{Meta: upstream.Meta{Symbol: &symbol}}, nil
}

func (c *countingUpstream) Search(_ context.Context, query string, _, _ int) (*upstream.SearchResponse, error) {
	c.searchCalls.Add(1)
	return &upstream.SearchResponse{}, nil
}

func TestChart_SecondCallServedFromCache(t *testing.T) {
	up := &countingUpstream{}
	c := New(up, time.Minute)

	first, err := c.Chart(context.Background(), "AAPL", "1d", "5d")
	require.NoError(t, err)
	second, err := c.Chart(context.Background(), "AAPL", "1d", "5d")
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, up.chartCalls.Load())
}

func TestChart_KeyIncludesIntervalAndRange(t *testing.T) {
	up := &countingUpstream{}
	c := New(up, time.Minute)

	_, err := c.Chart(context.Background(), "AAPL", "1d", "5d")
	require.NoError(t, err)
	_, err = c.Chart(context.Background(), "AAPL", "1mo", "5y")
	require.NoError(t, err)

	require.EqualValues(t, 2, up.chartCalls.Load())
}

func TestChart_ErrorNotCached(t *testing.T) {
	up := &countingUpstream{chartErr: fmt.Errorf("upstream down")}
	c := New(up, time.Minute)

	_, err := c.Chart(context.Background(), "AAPL", "1d", "5d")
	require.Error(t, err)

	up.chartErr = nil
	_, err = c.Chart(context.Background(), "AAPL", "1d", "5d")
	require.NoError(t, err)
	require.EqualValues(t, 2, up.chartCalls.Load())
}

func TestChart_ConcurrentCallersCoalesce(t *testing.T) {
	up := &countingUpstream{block: make(chan struct{})}
	c := New(up, time.Minute)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Chart(context.Background(), "AAPL", "1d", "5d")
		}(i)
	}

	// Let the goroutines pile up on the shared fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(up.block)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.LessOrEqual(t, up.chartCalls.Load(), int64(2), "burst must coalesce into at most a couple of fetches")
}

func TestSearch_CachedPerQueryAndCounts(t *testing.T) {
	up := &countingUpstream{}
	c := New(up, time.Minute)

	_, err := c.Search(context.Background(), "apple", 15, 0)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "apple", 15, 0)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "apple", 0, 15)
	require.NoError(t, err)

	require.EqualValues(t, 2, up.searchCalls.Load())
}
