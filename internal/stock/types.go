// Package stock holds the proxy's stable output schema and the
// per-action normalizers that map the provider's partially-null
// payloads into it.
package stock

// Quote is the normalized per-symbol quote. Numeric fields are never
// null in the response: anything the provider omits becomes 0, and a
// missing sector becomes the literal "N/A".
type Quote struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercent    float64 `json:"changePercent"`
	Currency         string  `json:"currency"`
	Exchange         string  `json:"exchange"`
	FiftyTwoWeekHigh float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  float64 `json:"fiftyTwoWeekLow"`
	Volume           int64   `json:"volume"`
	AvgVolume        int64   `json:"avgVolume"`
	MarketCap        float64 `json:"marketCap"`
	PE               float64 `json:"pe"`
	DividendYield    float64 `json:"dividendYield"`
	Sector           string  `json:"sector"`
}

// HistoryPoint is one OHLCV bar. Points whose close is null upstream
// are dropped entirely; missing open/high/low are back-filled from
// close.
type HistoryPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// HistoryResult is the history action envelope. History is empty, not
// nil, when the provider has no data for the symbol.
type HistoryResult struct {
	Symbol   string         `json:"symbol"`
	Currency string         `json:"currency"`
	History  []HistoryPoint `json:"history"`
}

// SearchResult is a projection of one upstream search match.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
	Sector   string `json:"sector"`
}

// NewsItem is one news entry. ID is synthesized when the provider
// omits one. Thumbnail is nil when no resolution URL is available.
type NewsItem struct {
	ID                  string  `json:"uuid"`
	Title               string  `json:"title"`
	Publisher           string  `json:"publisher"`
	Link                string  `json:"link"`
	ProviderPublishTime int64   `json:"providerPublishTime"`
	Thumbnail           *string `json:"thumbnail"`
}

// The lightweight chart endpoint exposes no statement data, so every
// monetary field below is a pointer that stays nil: an explicit
// "unavailable", never a fabricated figure and never a zero.

type IncomeStatement struct {
	Year            int      `json:"year"`
	Revenue         *float64 `json:"revenue"`
	GrossProfit     *float64 `json:"grossProfit"`
	OperatingIncome *float64 `json:"operatingIncome"`
	NetIncome       *float64 `json:"netIncome"`
	EPS             *float64 `json:"eps"`
}

type BalanceSheet struct {
	Year             int      `json:"year"`
	TotalAssets      *float64 `json:"totalAssets"`
	TotalLiabilities *float64 `json:"totalLiabilities"`
	TotalEquity      *float64 `json:"totalEquity"`
	Cash             *float64 `json:"cash"`
	TotalDebt        *float64 `json:"totalDebt"`
}

type CashflowStatement struct {
	Year              int      `json:"year"`
	OperatingCashflow *float64 `json:"operatingCashflow"`
	InvestingCashflow *float64 `json:"investingCashflow"`
	FinancingCashflow *float64 `json:"financingCashflow"`
	FreeCashflow      *float64 `json:"freeCashflow"`
}

// Ratios carries the named ratio fields. Only pe, pb and beta can be
// populated from chart metadata; the rest are always null here.
type Ratios struct {
	ROE             *float64 `json:"roe"`
	ROA             *float64 `json:"roa"`
	ProfitMargin    *float64 `json:"profitMargin"`
	OperatingMargin *float64 `json:"operatingMargin"`
	CurrentRatio    *float64 `json:"currentRatio"`
	DebtToEquity    *float64 `json:"debtToEquity"`
	PE              *float64 `json:"pe"`
	PB              *float64 `json:"pb"`
	PS              *float64 `json:"ps"`
	PEGRatio        *float64 `json:"pegRatio"`
	Beta            *float64 `json:"beta"`
}

type FinancialsMeta struct {
	Symbol           string   `json:"symbol"`
	Currency         *string  `json:"currency,omitempty"`
	Exchange         *string  `json:"exchange,omitempty"`
	CurrentPrice     *float64 `json:"currentPrice,omitempty"`
	PrevClose        *float64 `json:"prevClose,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fiftyTwoWeekLow,omitempty"`
}

// Financials is the financials action envelope: one statement record
// per calendar year (most recent first, at most four), all monetary
// fields explicitly unavailable, plus whatever ratios and metadata the
// chart endpoint does supply.
type Financials struct {
	IncomeStatements []IncomeStatement   `json:"incomeStatements"`
	Ratios           Ratios              `json:"ratios"`
	BalanceSheets    []BalanceSheet      `json:"balanceSheets"`
	Cashflows        []CashflowStatement `json:"cashflows"`
	Meta             FinancialsMeta      `json:"meta"`
}
