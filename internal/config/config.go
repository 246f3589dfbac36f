package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	LogLevel          string `json:"log_level"`
}

type Upstream struct {
	ChartURL          string `json:"chart_url"`
	SearchURL         string `json:"search_url"`
	MaxAttempts       int    `json:"max_attempts"`
	SearchQuotesCount int    `json:"search_quotes_count"`
	NewsCount         int    `json:"news_count"`
	MaxSymbols        int    `json:"max_symbols"`
	MaxConcurrency    int    `json:"max_concurrency"`
	// RequestsPerSec/Burst gate outbound calls; 0 disables the gate.
	RequestsPerSec float64 `json:"requests_per_sec"`
	Burst          int     `json:"burst"`
	// CacheTTLSeconds caches raw upstream responses; 0 disables.
	CacheTTLSeconds int `json:"cache_ttl_sec"`
}

type SWOT struct {
	Enabled    bool   `json:"enabled"`
	GatewayURL string `json:"gateway_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
}

type Config struct {
	Server   Server   `json:"server"`
	Upstream Upstream `json:"upstream"`
	SWOT     SWOT     `json:"swot"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15, LogLevel: "info"},
		Upstream: Upstream{
			ChartURL:          "https://query1.finance.yahoo.com/v8/finance/chart",
			SearchURL:         "https://query1.finance.yahoo.com/v1/finance/search",
			MaxAttempts:       3,
			SearchQuotesCount: 15,
			NewsCount:         15,
			MaxSymbols:        50,
			MaxConcurrency:    8,
			RequestsPerSec:    5,
			Burst:             10,
			CacheTTLSeconds:   0,
		},
		SWOT: SWOT{
			Enabled:    true,
			GatewayURL: "https://ai.gateway.lovable.dev/v1/chat/completions",
			Model:      "google/gemini-2.5-flash",
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. Environment variables override
// select fields for secrecy and deploy-time tuning.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("UPSTREAM_CHART_URL"); v != "" {
		cfg.Upstream.ChartURL = v
	}
	if v := os.Getenv("UPSTREAM_SEARCH_URL"); v != "" {
		cfg.Upstream.SearchURL = v
	}
	if v := os.Getenv("UPSTREAM_MAX_ATTEMPTS"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Upstream.MaxAttempts = x
		}
	}
	if v := os.Getenv("UPSTREAM_MAX_SYMBOLS"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Upstream.MaxSymbols = x
		}
	}
	if v := os.Getenv("UPSTREAM_MAX_CONCURRENCY"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Upstream.MaxConcurrency = x
		}
	}
	if v := os.Getenv("UPSTREAM_REQUESTS_PER_SEC"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil && f >= 0 {
			cfg.Upstream.RequestsPerSec = f
		}
	}
	if v := os.Getenv("UPSTREAM_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Upstream.Burst = x
		}
	}
	if v := os.Getenv("UPSTREAM_CACHE_TTL_SEC"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Upstream.CacheTTLSeconds = x
		}
	}
	if v := os.Getenv("SWOT_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.SWOT.Enabled = true
		case "0", "false", "no", "n":
			cfg.SWOT.Enabled = false
		}
	}
	if v := os.Getenv("SWOT_GATEWAY_URL"); v != "" {
		cfg.SWOT.GatewayURL = v
	}
	if v := os.Getenv("SWOT_API_KEY"); v != "" {
		cfg.SWOT.APIKey = v
	}
	if v := os.Getenv("SWOT_MODEL"); v != "" {
		cfg.SWOT.Model = v
	}
}

func atoi(s string) int {
	var x int
	_, _ = fmt.Sscanf(s, "%d", &x)
	return x
}
