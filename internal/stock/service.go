package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stockproxy/internal/upstream"
)

// Chart endpoint parameters per action, matching what the client UI
// renders: a short window for live quotes, five years of monthly bars
// for history, five years of daily closes to derive financial years.
const (
	quoteInterval      = "1d"
	quoteRange         = "5d"
	historyInterval    = "1mo"
	historyRange       = "5y"
	financialsInterval = "1d"
	financialsRange    = "5y"
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	// SearchLimit caps search results (default 15).
	SearchLimit int
	// NewsLimit caps news results requested upstream (default 15).
	NewsLimit int
	// MaxConcurrency bounds the per-request quote fan-out (default 8).
	MaxConcurrency int
	Logger         zerolog.Logger
}

// Service executes the five proxy actions against an upstream client.
// Quote requests fan out one concurrent fetch per symbol with partial
// success; all other actions perform a single upstream call.
type Service struct {
	upstream       upstream.Client
	searchLimit    int
	newsLimit      int
	maxConcurrency int
	logger         zerolog.Logger
}

func NewService(c upstream.Client, opts Options) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 15
	}
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 15
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	return &Service{
		upstream:       c,
		searchLimit:    opts.SearchLimit,
		newsLimit:      opts.NewsLimit,
		maxConcurrency: opts.MaxConcurrency,
		logger:         opts.Logger,
	}
}

// Search returns symbol matches for a query. An empty query returns an
// empty slice without touching the upstream.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	res, err := s.upstream.Search(ctx, query, s.searchLimit, 0)
	if err != nil {
		if errors.Is(err, upstream.ErrNoData) {
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return NormalizeSearch(res, s.searchLimit), nil
}

// Quotes fetches one normalized quote per symbol concurrently and
// returns only the symbols that succeeded. A failure on one symbol
// never fails the batch: the response is simply shorter. Output order
// is completion order; callers match by the symbol field.
func (s *Service) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	symbols = dedupe(symbols)
	out := []Quote{}
	if len(symbols) == 0 {
		return out, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.maxConcurrency)
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			result, err := s.upstream.Chart(ctx, symbol, quoteInterval, quoteRange)
			if err != nil {
				s.logger.Warn().Str("symbol", symbol).Err(err).Msg("dropping symbol from quote batch")
				return
			}
			q := NormalizeQuote(symbol, result)
			mu.Lock()
			out = append(out, q)
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	s.logger.Info().Int("requested", len(symbols)).Int("returned", len(out)).Msg("quote fan-out settled")
	return out, nil
}

// History returns the monthly OHLCV series for one symbol. A symbol
// the provider has no data for yields the empty envelope, not an
// error.
func (s *Service) History(ctx context.Context, symbol string) (HistoryResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return HistoryResult{}, fmt.Errorf("%w: symbol required", ErrInvalidRequest)
	}
	result, err := s.upstream.Chart(ctx, symbol, historyInterval, historyRange)
	if err != nil {
		if errors.Is(err, upstream.ErrNoData) {
			return NormalizeHistory(symbol, nil), nil
		}
		return HistoryResult{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	return NormalizeHistory(symbol, result), nil
}

// Financials returns the synthesized financials shell for one symbol.
// No data upstream yields the placeholder shell, not an error.
func (s *Service) Financials(ctx context.Context, symbol string) (Financials, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Financials{}, fmt.Errorf("%w: symbol required", ErrInvalidRequest)
	}
	result, err := s.upstream.Chart(ctx, symbol, financialsInterval, financialsRange)
	if err != nil {
		if errors.Is(err, upstream.ErrNoData) {
			return NormalizeFinancials(symbol, nil), nil
		}
		return Financials{}, fmt.Errorf("financials %s: %w", symbol, err)
	}
	return NormalizeFinancials(symbol, result), nil
}

// News returns recent news entries mentioning the symbol.
func (s *Service) News(ctx context.Context, symbol string) ([]NewsItem, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidRequest)
	}
	res, err := s.upstream.Search(ctx, symbol, 0, s.newsLimit)
	if err != nil {
		if errors.Is(err, upstream.ErrNoData) {
			return []NewsItem{}, nil
		}
		return nil, fmt.Errorf("news %s: %w", symbol, err)
	}
	return NormalizeNews(res), nil
}

// dedupe drops empty and repeated symbols, preserving first-seen
// order. The upstream does not require it, but repeated symbols in one
// batch would just burn rate budget.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
