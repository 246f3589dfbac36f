package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"stockproxy/internal/stock"
	"stockproxy/internal/swot"
)

// stockDataRequest is the action envelope posted by the client. Symbols
// is raw because the client sends either a single string or an array.
type stockDataRequest struct {
	Action  string          `json:"action"`
	Symbols json.RawMessage `json:"symbols"`
	Query   string          `json:"query"`
}

func handleStockData(w http.ResponseWriter, r *http.Request, svc *stock.Service, maxSymbols int, logger zerolog.Logger) {
	var req stockDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// A body the proxy cannot read is a server-side surprise, not
		// client validation: the app never sends malformed JSON.
		logger.Error().Err(err).Msg("unreadable request body")
		writeError(w, http.StatusInternalServerError, "invalid request body")
		return
	}

	action, err := stock.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbols, err := symbolList(req.Symbols)
	if err != nil {
		writeError(w, http.StatusBadRequest, "symbols must be a string or an array of strings")
		return
	}
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many symbols (max %d)", maxSymbols))
		return
	}
	symbol := ""
	if len(symbols) > 0 {
		symbol = symbols[0]
	}

	logger.Info().Str("action", string(action)).Strs("symbols", symbols).Str("query", req.Query).Msg("stock data request")

	var out any
	switch action {
	case stock.ActionSearch:
		out, err = svc.Search(r.Context(), req.Query)
	case stock.ActionQuote:
		out, err = svc.Quotes(r.Context(), symbols)
	case stock.ActionHistory:
		out, err = svc.History(r.Context(), symbol)
	case stock.ActionFinancials:
		out, err = svc.Financials(r.Context(), symbol)
	case stock.ActionNews:
		out, err = svc.News(r.Context(), symbol)
	}
	if err != nil {
		if errors.Is(err, stock.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Str("action", string(action)).Err(err).Msg("action failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type swotRequest struct {
	Company       string   `json:"company"`
	Ticker        string   `json:"ticker"`
	Price         *float64 `json:"price"`
	ChangePercent *float64 `json:"changePercent"`
	Sector        string   `json:"sector"`
}

func handleSWOT(w http.ResponseWriter, r *http.Request, client *swot.Client, logger zerolog.Logger) {
	var req swotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error().Err(err).Msg("unreadable request body")
		writeError(w, http.StatusInternalServerError, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if req.Company == "" {
		req.Company = req.Ticker
	}

	analysis, err := client.Analyze(r.Context(), swot.Request{
		Company:       req.Company,
		Ticker:        req.Ticker,
		Price:         req.Price,
		ChangePercent: req.ChangePercent,
		Sector:        req.Sector,
	})
	if err != nil {
		var statusErr *swot.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, statusErr.Code, statusErr.Error())
			return
		}
		logger.Error().Str("ticker", req.Ticker).Err(err).Msg("swot analysis failed")
		writeError(w, http.StatusInternalServerError, "failed to generate SWOT analysis")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// symbolList accepts the two shapes the client sends for symbols: a
// single string or an array of strings. nil yields an empty list.
func symbolList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Too late for a status change; the connection is what it is.
		return
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
