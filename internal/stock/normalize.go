package stock

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"stockproxy/internal/upstream"
)

// NormalizeSearch projects upstream search matches, preferring the
// short name, then the long name, then the raw symbol. A nil or
// quote-less response yields an empty slice.
func NormalizeSearch(res *upstream.SearchResponse, limit int) []SearchResult {
	out := []SearchResult{}
	if res == nil {
		return out
	}
	for _, q := range res.Quotes {
		if limit > 0 && len(out) >= limit {
			break
		}
		symbol := strOr(q.Symbol, "")
		out = append(out, SearchResult{
			Symbol:   symbol,
			Name:     strCoalesce(q.ShortName, q.LongName, &symbol),
			Exchange: strCoalesce(q.Exchange, q.ExchDisp, nil),
			Type:     strOr(q.QuoteType, ""),
			Sector:   strOr(q.Sector, ""),
		})
	}
	return out
}

// NormalizeQuote maps chart metadata plus the indicator series into a
// Quote. Price prefers the live market price and falls back to the
// last close in the series; previous close prefers the explicit meta
// fields and falls back to the second-to-last close.
func NormalizeQuote(symbol string, r *upstream.ChartResult) Quote {
	meta := r.Meta
	series := firstSeries(r)

	price := deref(meta.RegularMarketPrice)
	if price == 0 {
		price = lastNonNil(series.Close, 0)
	}
	prevClose := deref(meta.ChartPreviousClose)
	if prevClose == 0 {
		prevClose = deref(meta.PreviousClose)
	}
	if prevClose == 0 {
		prevClose = lastNonNil(series.Close, 1)
	}
	if prevClose == 0 {
		prevClose = price
	}

	change := price - prevClose
	changePercent := 0.0
	if prevClose > 0 {
		changePercent = change / prevClose * 100
	}

	volume := deref(meta.RegularMarketVolume)
	if volume == 0 {
		volume = lastNonNil(series.Volume, 0)
	}

	avgVolume := meanNonNil(series.Volume)
	if avgVolume == 0 {
		avgVolume = deref(meta.RegularMarketVolume)
	}

	return Quote{
		Symbol:           strOr(meta.Symbol, symbol),
		Name:             strCoalesce(meta.LongName, meta.ShortName, &symbol),
		Price:            price,
		Change:           round2(change),
		ChangePercent:    round2(changePercent),
		Currency:         strOr(meta.Currency, "USD"),
		Exchange:         strCoalesce(meta.ExchangeName, meta.Exchange, nil),
		FiftyTwoWeekHigh: deref(meta.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:  deref(meta.FiftyTwoWeekLow),
		Volume:           int64(volume),
		AvgVolume:        int64(math.Round(avgVolume)),
		MarketCap:        deref(meta.MarketCap),
		PE:               deref(meta.TrailingPE),
		DividendYield:    deref(meta.DividendYield),
		Sector:           strOr(meta.Sector, "N/A"),
	}
}

// NormalizeHistory zips the parallel timestamp and OHLCV arrays into
// points, dropping any index whose close is null and back-filling
// missing open/high/low from close. Input order is preserved, never
// sorted. A nil result yields the empty envelope.
func NormalizeHistory(symbol string, r *upstream.ChartResult) HistoryResult {
	out := HistoryResult{Symbol: symbol, Currency: "USD", History: []HistoryPoint{}}
	if r == nil {
		return out
	}
	if c := r.Meta.Currency; c != nil && *c != "" {
		out.Currency = *c
	}

	series := firstSeries(r)
	for i, ts := range r.Timestamp {
		closePrice := at(series.Close, i)
		if closePrice == nil {
			continue
		}
		out.History = append(out.History, HistoryPoint{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   derefOr(at(series.Open, i), *closePrice),
			High:   derefOr(at(series.High, i), *closePrice),
			Low:    derefOr(at(series.Low, i), *closePrice),
			Close:  *closePrice,
			Volume: int64(deref(at(series.Volume, i))),
		})
	}
	return out
}

// NormalizeFinancials synthesizes the financials shell: one
// empty-valued statement record per calendar year covered by the close
// series (most recent four years, newest first), with only the
// chart-supplied ratios and metadata populated. It never invents
// figures the provider did not return.
func NormalizeFinancials(symbol string, r *upstream.ChartResult) Financials {
	fin := Financials{
		IncomeStatements: []IncomeStatement{},
		BalanceSheets:    []BalanceSheet{},
		Cashflows:        []CashflowStatement{},
		Meta:             FinancialsMeta{Symbol: symbol},
	}
	if r == nil {
		return fin
	}

	meta := r.Meta
	if meta.Symbol != nil && *meta.Symbol != "" {
		fin.Meta.Symbol = *meta.Symbol
	}
	fin.Meta.Currency = meta.Currency
	fin.Meta.Exchange = meta.ExchangeName
	fin.Meta.CurrentPrice = meta.RegularMarketPrice
	fin.Meta.PrevClose = meta.ChartPreviousClose
	fin.Meta.FiftyTwoWeekHigh = meta.FiftyTwoWeekHigh
	fin.Meta.FiftyTwoWeekLow = meta.FiftyTwoWeekLow
	fin.Ratios.PE = meta.TrailingPE
	fin.Ratios.PB = meta.PriceToBook
	fin.Ratios.Beta = meta.Beta

	for _, year := range recentYears(r, 4) {
		fin.IncomeStatements = append(fin.IncomeStatements, IncomeStatement{Year: year})
		fin.BalanceSheets = append(fin.BalanceSheets, BalanceSheet{Year: year})
		fin.Cashflows = append(fin.Cashflows, CashflowStatement{Year: year})
	}
	return fin
}

// NormalizeNews projects upstream news entries, generating an id when
// the provider omits one and extracting the first thumbnail
// resolution URL if present.
func NormalizeNews(res *upstream.SearchResponse) []NewsItem {
	out := []NewsItem{}
	if res == nil {
		return out
	}
	for _, n := range res.News {
		id := strOr(n.UUID, "")
		if id == "" {
			id = uuid.NewString()
		}
		var thumbnail *string
		if n.Thumbnail != nil && len(n.Thumbnail.Resolutions) > 0 {
			thumbnail = n.Thumbnail.Resolutions[0].URL
		}
		var publishTime int64
		if n.ProviderPublishTime != nil {
			publishTime = *n.ProviderPublishTime
		}
		out = append(out, NewsItem{
			ID:                  id,
			Title:               strOr(n.Title, ""),
			Publisher:           strOr(n.Publisher, ""),
			Link:                strOr(n.Link, ""),
			ProviderPublishTime: publishTime,
			Thumbnail:           thumbnail,
		})
	}
	return out
}

// recentYears collects the distinct calendar years that have at least
// one non-null close, newest first, capped at n.
func recentYears(r *upstream.ChartResult, n int) []int {
	series := firstSeries(r)
	seen := map[int]bool{}
	for i, ts := range r.Timestamp {
		if at(series.Close, i) == nil {
			continue
		}
		seen[time.Unix(ts, 0).UTC().Year()] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > n {
		years = years[:n]
	}
	return years
}

// firstSeries returns the first indicator quote series, or a zero
// series when the provider omitted the block entirely.
func firstSeries(r *upstream.ChartResult) upstream.QuoteSeries {
	if len(r.Indicators.Quote) == 0 {
		return upstream.QuoteSeries{}
	}
	return r.Indicators.Quote[0]
}

// at is bounds- and nil-safe indexing into a nullable series.
func at(s []*float64, i int) *float64 {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// lastNonNil walks backwards past skip trailing non-null entries and
// returns the next one, or 0. skip=0 is the last non-null value,
// skip=1 the second-to-last.
func lastNonNil(s []*float64, skip int) float64 {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == nil {
			continue
		}
		if skip == 0 {
			return *s[i]
		}
		skip--
	}
	return 0
}

// meanNonNil is the arithmetic mean of the non-null entries, 0 when
// there are none.
func meanNonNil(s []*float64) float64 {
	var sum float64
	var n int
	for _, v := range s {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefOr(p *float64, def float64) float64 {
	if p == nil || *p == 0 {
		return def
	}
	return *p
}

func strOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// strCoalesce returns the first non-empty of a, b, then c (c may be
// nil), else "".
func strCoalesce(a, b, c *string) string {
	for _, p := range []*string{a, b, c} {
		if p != nil && *p != "" {
			return *p
		}
	}
	return ""
}
