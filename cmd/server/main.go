package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"stockproxy/internal/config"
	"stockproxy/internal/httpx"
	"stockproxy/internal/stock"
	"stockproxy/internal/swot"
	"stockproxy/internal/upstream"
	"stockproxy/internal/upstream/cache"
	"stockproxy/internal/upstream/ratelimit"
	"stockproxy/internal/yahoo"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fatalLogger := zerolog.New(os.Stderr)
		fatalLogger.Fatal().Err(err).Msg("config")
	}
	logger := newLogger(cfg.Server.LogLevel)

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var up upstream.Client = yahoo.New(
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithChartURL(cfg.Upstream.ChartURL),
		yahoo.WithSearchURL(cfg.Upstream.SearchURL),
		yahoo.WithMaxAttempts(cfg.Upstream.MaxAttempts),
		yahoo.WithLogger(logger.With().Str("component", "yahoo").Logger()),
	)
	if cfg.Upstream.RequestsPerSec > 0 {
		up = ratelimit.New(up, cfg.Upstream.RequestsPerSec, cfg.Upstream.Burst)
	}
	if cfg.Upstream.CacheTTLSeconds > 0 {
		up = cache.New(up, time.Duration(cfg.Upstream.CacheTTLSeconds)*time.Second)
	}

	svc := stock.NewService(up, stock.Options{
		SearchLimit:    cfg.Upstream.SearchQuotesCount,
		NewsLimit:      cfg.Upstream.NewsCount,
		MaxConcurrency: cfg.Upstream.MaxConcurrency,
		Logger:         logger.With().Str("component", "stock").Logger(),
	})

	var swotClient *swot.Client
	if cfg.SWOT.Enabled {
		if cfg.SWOT.APIKey == "" {
			logger.Warn().Msg("swot.enabled=true but SWOT_API_KEY not set; endpoint disabled")
		} else {
			swotClient = swot.New(cfg.SWOT.APIKey,
				swot.WithGatewayURL(cfg.SWOT.GatewayURL),
				swot.WithModel(cfg.SWOT.Model),
				swot.WithHTTPClient(httpClient),
				swot.WithLogger(logger.With().Str("component", "swot").Logger()),
			)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`"ok"`))
	})
	mux.HandleFunc("/api/stock-data", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handleStockData(w, r, svc, cfg.Upstream.MaxSymbols, logger)
	})
	mux.HandleFunc("/api/swot-analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if swotClient == nil {
			writeError(w, http.StatusServiceUnavailable, "SWOT analysis is not configured")
			return
		}
		handleSWOT(w, r, swotClient, logger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONAndCORS(withGzip(recoverPanic(limitBody(mux), logger))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// withJSONAndCORS sets the response content type and the permissive
// cross-origin headers the mobile client depends on, and answers
// pre-flight requests before any dispatch.
func withJSONAndCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics. A panic in one request
// must never take down the process or other in-flight requests.
func recoverPanic(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
