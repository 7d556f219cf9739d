// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with precedence ENV > .env file > defaults,
// plus the YAML source manifest describing the cities to collect.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opencivic/crimetrend/internal/log"
)

// OpenRouterConfig holds settings for the OpenRouter upstream.
type OpenRouterConfig struct {
	BaseURL     string
	APIKey      string
	TextModel   string // model for PDF report extraction
	VisionModel string // model for chart image transcription
	Timeout     time.Duration
	MaxRetries  int
	// RequestsPerMinute caps outbound completion calls across all sources.
	RequestsPerMinute int
	// MaxConcurrency bounds in-flight completion calls per collector.
	MaxConcurrency int
}

// CacheConfig holds completion-cache settings.
type CacheConfig struct {
	Enabled       bool
	TTL           time.Duration
	RedisAddr     string // empty selects the in-memory cache
	RedisPassword string
	RedisDB       int
}

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	Version string

	DataDir     string
	CombinedDir string
	DBPath      string
	SourcesPath string

	ListenAddr     string
	MetricsEnabled bool
	MetricsAddr    string
	APIToken       string
	AllowedOrigins []string
	ReadyStrict    bool

	RefreshInterval time.Duration
	InitialRefresh  bool

	OpenRouter OpenRouterConfig
	Cache      CacheConfig

	LogLevel string
}

// Load resolves the configuration. A .env file next to the working directory is
// loaded first (best effort, real environment always wins), matching the
// .env.example contract from the project README.
func Load(version string) (AppConfig, error) {
	logger := log.WithComponent("config")

	if err := godotenv.Load(); err == nil {
		logger.Debug().Str("event", "config.dotenv").Msg("loaded .env file")
	}

	dataDir := ParseString("CRIMETREND_DATA", "./data")

	cfg := AppConfig{
		Version: version,

		DataDir:     dataDir,
		CombinedDir: ParseString("CRIMETREND_COMBINED_DIR", filepath.Join(dataDir, "combined")),
		DBPath:      ParseString("CRIMETREND_DB", filepath.Join(dataDir, "crimetrend.db")),
		SourcesPath: ParseString("CRIMETREND_SOURCES", filepath.Join(dataDir, "sources.yaml")),

		ListenAddr:     ParseString("CRIMETREND_LISTEN", ":8080"),
		MetricsEnabled: ParseBool("CRIMETREND_METRICS_ENABLED", true),
		MetricsAddr:    ParseString("CRIMETREND_METRICS_ADDR", ":9090"),
		APIToken:       ParseString("CRIMETREND_API_TOKEN", ""),
		AllowedOrigins: ParseStringSlice("CRIMETREND_ALLOWED_ORIGINS", nil),
		ReadyStrict:    ParseBool("CRIMETREND_READY_STRICT", false),

		RefreshInterval: ParseDuration("CRIMETREND_REFRESH_INTERVAL", 0),
		InitialRefresh:  ParseBool("CRIMETREND_INITIAL_REFRESH", true),

		OpenRouter: OpenRouterConfig{
			BaseURL:           ParseString("OPENROUTER_BASE_URL", "https://openrouter.ai"),
			APIKey:            ParseString("OPENROUTER_API_KEY", ""),
			TextModel:         ParseString("CRIMETREND_TEXT_MODEL", "google/gemini-2.5-flash-lite"),
			VisionModel:       ParseString("CRIMETREND_VISION_MODEL", "google/gemini-2.5-pro"),
			Timeout:           ParseDuration("CRIMETREND_LLM_TIMEOUT", 90*time.Second),
			MaxRetries:        ParseInt("CRIMETREND_LLM_RETRIES", 2),
			RequestsPerMinute: ParseInt("CRIMETREND_LLM_RPM", 30),
			MaxConcurrency:    ParseInt("CRIMETREND_LLM_CONCURRENCY", 4),
		},

		Cache: CacheConfig{
			Enabled:       ParseBool("CRIMETREND_CACHE_ENABLED", true),
			TTL:           ParseDuration("CRIMETREND_CACHE_TTL", 14*24*time.Hour),
			RedisAddr:     ParseString("CRIMETREND_REDIS_ADDR", ""),
			RedisPassword: ParseString("CRIMETREND_REDIS_PASSWORD", ""),
			RedisDB:       ParseInt("CRIMETREND_REDIS_DB", 0),
		},

		LogLevel: ParseString("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate performs structural checks that must hold before the daemon starts.
// The API key is checked at collection time, not here: serve-only deployments
// (tabular sources, pre-collected data) run without one.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data directory is empty")
	}

	base := strings.TrimSpace(c.OpenRouter.BaseURL)
	if base == "" {
		return fmt.Errorf("openrouter base URL is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid openrouter base URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported openrouter base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("openrouter base URL %q is missing host", base)
	}

	if c.OpenRouter.MaxConcurrency < 1 {
		return fmt.Errorf("llm concurrency must be >= 1, got %d", c.OpenRouter.MaxConcurrency)
	}
	if c.OpenRouter.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.OpenRouter.Timeout)
	}

	return nil
}
