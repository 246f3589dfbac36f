package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stockproxy/internal/stock"
	"stockproxy/internal/swot"
	"stockproxy/internal/upstream"
)

type cannedUpstream struct {
	mu          sync.Mutex
	charts      map[string]*upstream.ChartResult
	chartErrs   map[string]error
	chartCalls  int
	search      *upstream.SearchResponse
	searchCalls int
}

func (c *cannedUpstream) Chart(_ context.Context, symbol, _, _ string) (*upstream.ChartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chartCalls++
	if err, ok := c.chartErrs[symbol]; ok {
		return nil, err
	}
	if r, ok := c.charts[symbol]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: no chart for %s", upstream.ErrNoData, symbol)
}

func (c *cannedUpstream) Search(_ context.Context, _ string, _, _ int) (*upstream.SearchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchCalls++
	if c.search != nil {
		return c.search, nil
	}
	return nil, fmt.Errorf("%w: no search fixture", upstream.ErrNoData)
}

func fp(f float64) *float64 { return &f }
func sp(s string) *string   { return &s }

func quoteChart(symbol string, price float64) *upstream.ChartResult {
	return &upstream.ChartResult{Meta: upstream.Meta{
		Symbol:             sp(symbol),
		RegularMarketPrice: fp(price),
		ChartPreviousClose: fp(price),
	}}
}

func postStockData(t *testing.T, up upstream.Client, body string) *httptest.ResponseRecorder {
	t.Helper()
	svc := stock.NewService(up, stock.Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/stock-data", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handleStockData(rr, req, svc, 50, zerolog.Nop())
	return rr
}

func TestStockData_InvalidAction_EnumeratesValidOnes(t *testing.T) {
	up := &cannedUpstream{}
	rr := postStockData(t, up, `{"action":"bogus","symbols":["AAPL"]}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	for _, a := range []string{"search", "quote", "history", "financials", "news"} {
		require.Contains(t, resp["error"], a)
	}
	require.Zero(t, up.chartCalls, "invalid action must not reach the upstream")
	require.Zero(t, up.searchCalls)
}

func TestStockData_MalformedBody(t *testing.T) {
	rr := postStockData(t, &cannedUpstream{}, `{"action":`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestStockData_QuotePartialFailure(t *testing.T) {
	up := &cannedUpstream{
		charts: map[string]*upstream.ChartResult{
			"A": quoteChart("A", 10),
			"C": quoteChart("C", 30),
		},
		chartErrs: map[string]error{"B": fmt.Errorf("HTTP 500 after retries")},
	}
	rr := postStockData(t, up, `{"action":"quote","symbols":["A","B","C"]}`)

	require.Equal(t, http.StatusOK, rr.Code, "partial failure still answers 200")

	var quotes []stock.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &quotes))
	require.Len(t, quotes, 2)
}

func TestStockData_SymbolsAcceptsSingleString(t *testing.T) {
	up := &cannedUpstream{
		charts: map[string]*upstream.ChartResult{"AAPL": quoteChart("AAPL", 187.5)},
	}
	rr := postStockData(t, up, `{"action":"quote","symbols":"AAPL"}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var quotes []stock.Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &quotes))
	require.Len(t, quotes, 1)
	require.Equal(t, "AAPL", quotes[0].Symbol)
}

func TestStockData_SearchEmptyQuery(t *testing.T) {
	up := &cannedUpstream{}
	rr := postStockData(t, up, `{"action":"search","query":"  "}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]\n", rr.Body.String())
	require.Zero(t, up.searchCalls)
}

func TestStockData_HistoryNoData_EmptyEnvelope(t *testing.T) {
	rr := postStockData(t, &cannedUpstream{}, `{"action":"history","symbols":["GONE"]}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var res stock.HistoryResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "GONE", res.Symbol)
	require.Equal(t, "USD", res.Currency)
	require.NotNil(t, res.History)
	require.Empty(t, res.History)
}

func TestStockData_HistoryMissingSymbol(t *testing.T) {
	rr := postStockData(t, &cannedUpstream{}, `{"action":"history"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStockData_TooManySymbols(t *testing.T) {
	symbols := make([]string, 51)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}
	body, _ := json.Marshal(map[string]any{"action": "quote", "symbols": symbols})

	up := &cannedUpstream{}
	rr := postStockData(t, up, string(body))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, up.chartCalls)
}

func TestPreflight_ShortCircuitsWithCORSHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("OPTIONS must not reach the mux")
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/stock-data", nil)
	rr := httptest.NewRecorder()
	withJSONAndCORS(inner).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Body.String())
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "authorization, x-client-info, apikey, content-type", rr.Header().Get("Access-Control-Allow-Headers"))
}

func TestRecoverPanic_Answers500(t *testing.T) {
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	req := httptest.NewRequest(http.MethodPost, "/api/stock-data", nil)
	rr := httptest.NewRecorder()
	recoverPanic(inner, zerolog.Nop()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func swotGateway(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postSWOT(t *testing.T, gatewayURL, body string) *httptest.ResponseRecorder {
	t.Helper()
	client := swot.New("key", swot.WithGatewayURL(gatewayURL))
	req := httptest.NewRequest(http.MethodPost, "/api/swot-analysis", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handleSWOT(rr, req, client, zerolog.Nop())
	return rr
}

func TestSWOT_ReturnsAnalysis(t *testing.T) {
	srv := swotGateway(t, http.StatusOK,
		`{"strengths":["s"],"weaknesses":["w"],"opportunities":["o"],"threats":["t"],"summary":"fine"}`)

	rr := postSWOT(t, srv.URL, `{"company":"Apple","ticker":"AAPL"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var a swot.Analysis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	require.Equal(t, "fine", a.Summary)
}

func TestSWOT_RateLimitPassesThrough(t *testing.T) {
	srv := swotGateway(t, http.StatusTooManyRequests, "")

	rr := postSWOT(t, srv.URL, `{"company":"Apple","ticker":"AAPL"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["error"], "Rate limit")
}

func TestSWOT_MissingTicker(t *testing.T) {
	rr := postSWOT(t, "http://unused.invalid", `{"company":"Apple"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
