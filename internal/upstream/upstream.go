// Package upstream defines the contract between the proxy and the
// finance data provider: a small client interface plus the raw payload
// shapes the provider returns. Every field the provider is known to
// omit or null out is a pointer; normalization downstream is total over
// these shapes and never reaches into undeclared fields.
package upstream

import (
	"context"
	"errors"
)

// ErrNoData marks a response that parsed as "nothing there": the body
// was not JSON, or the minimal structure (chart.result[0]) was absent.
// Callers render an empty state for it rather than an error.
var ErrNoData = errors.New("upstream: no data")

// Client is the upstream finance data source. Implementations must be
// safe for concurrent use; the quote action fans out per symbol.
type Client interface {
	// Chart fetches the per-symbol chart payload (metadata + OHLCV
	// series) for the given interval and range, e.g. ("1d", "5d").
	Chart(ctx context.Context, symbol, interval, rng string) (*ChartResult, error)
	// Search runs the symbol/news search endpoint. quotesCount and
	// newsCount bound the respective result arrays upstream.
	Search(ctx context.Context, query string, quotesCount, newsCount int) (*SearchResponse, error)
}

// ChartResponse is the chart endpoint envelope.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

// ChartResult carries the metadata block and the parallel
// timestamp/OHLCV arrays for one symbol.
type ChartResult struct {
	Meta       Meta       `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators Indicators `json:"indicators"`
}

// Meta is the chart metadata block. Field presence varies by symbol
// and asset type, hence the pointers.
type Meta struct {
	Symbol              *string  `json:"symbol"`
	Currency            *string  `json:"currency"`
	ExchangeName        *string  `json:"exchangeName"`
	Exchange            *string  `json:"exchange"`
	LongName            *string  `json:"longName"`
	ShortName           *string  `json:"shortName"`
	RegularMarketPrice  *float64 `json:"regularMarketPrice"`
	ChartPreviousClose  *float64 `json:"chartPreviousClose"`
	PreviousClose       *float64 `json:"previousClose"`
	RegularMarketVolume *float64 `json:"regularMarketVolume"`
	FiftyTwoWeekHigh    *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow     *float64 `json:"fiftyTwoWeekLow"`
	MarketCap           *float64 `json:"marketCap"`
	TrailingPE          *float64 `json:"trailingPE"`
	PriceToBook         *float64 `json:"priceToBook"`
	Beta                *float64 `json:"beta"`
	DividendYield       *float64 `json:"dividendYield"`
	Sector              *string  `json:"sector"`
}

type Indicators struct {
	Quote []QuoteSeries `json:"quote"`
}

// QuoteSeries holds parallel OHLCV arrays aligned with
// ChartResult.Timestamp. Individual entries may be null.
type QuoteSeries struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// SearchResponse is the search endpoint envelope. The same endpoint
// serves symbol matches and news depending on the requested counts.
type SearchResponse struct {
	Quotes []SearchQuote `json:"quotes"`
	News   []NewsEntry   `json:"news"`
}

type SearchQuote struct {
	Symbol    *string `json:"symbol"`
	ShortName *string `json:"shortname"`
	LongName  *string `json:"longname"`
	Exchange  *string `json:"exchange"`
	ExchDisp  *string `json:"exchDisp"`
	QuoteType *string `json:"quoteType"`
	Sector    *string `json:"sector"`
}

type NewsEntry struct {
	UUID                *string    `json:"uuid"`
	Title               *string    `json:"title"`
	Publisher           *string    `json:"publisher"`
	Link                *string    `json:"link"`
	ProviderPublishTime *int64     `json:"providerPublishTime"`
	Thumbnail           *Thumbnail `json:"thumbnail"`
}

type Thumbnail struct {
	Resolutions []ThumbnailResolution `json:"resolutions"`
}

type ThumbnailResolution struct {
	URL *string `json:"url"`
}
