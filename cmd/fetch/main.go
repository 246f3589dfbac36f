// Command fetch runs a single proxy action from the command line and
// prints the normalized JSON, useful for poking the upstream without
// standing up the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"stockproxy/internal/config"
	"stockproxy/internal/httpx"
	"stockproxy/internal/stock"
	"stockproxy/internal/yahoo"
)

func main() {
	var (
		actionFlag  = flag.String("action", "quote", "one of: "+stock.ValidActions)
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols (quote/history/financials/news)")
		queryFlag   = flag.String("query", "", "search query (search)")
		configFlag  = flag.String("config", "", "config file path")
		timeoutFlag = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatal(err)
	}
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	action, err := stock.ParseAction(*actionFlag)
	if err != nil {
		fatal(err)
	}
	symbols := splitSymbols(*symbolsFlag)
	symbol := ""
	if len(symbols) > 0 {
		symbol = symbols[0]
	}

	client := yahoo.New(
		yahoo.WithHTTPClient(httpx.New(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)),
		yahoo.WithChartURL(cfg.Upstream.ChartURL),
		yahoo.WithSearchURL(cfg.Upstream.SearchURL),
		yahoo.WithMaxAttempts(cfg.Upstream.MaxAttempts),
		yahoo.WithLogger(logger),
	)
	svc := stock.NewService(client, stock.Options{
		SearchLimit:    cfg.Upstream.SearchQuotesCount,
		NewsLimit:      cfg.Upstream.NewsCount,
		MaxConcurrency: cfg.Upstream.MaxConcurrency,
		Logger:         logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	var out any
	switch action {
	case stock.ActionSearch:
		out, err = svc.Search(ctx, *queryFlag)
	case stock.ActionQuote:
		out, err = svc.Quotes(ctx, symbols)
	case stock.ActionHistory:
		out, err = svc.History(ctx, symbol)
	case stock.ActionFinancials:
		out, err = svc.Financials(ctx, symbol)
	case stock.ActionNews:
		out, err = svc.News(ctx, symbol)
	}
	if err != nil {
		fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(err)
	}
}

func splitSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fetch:", err)
	os.Exit(1)
}
