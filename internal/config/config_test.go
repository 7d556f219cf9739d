// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://openrouter.ai", cfg.OpenRouter.BaseURL)
	assert.Equal(t, "google/gemini-2.5-flash-lite", cfg.OpenRouter.TextModel)
	assert.Equal(t, "google/gemini-2.5-pro", cfg.OpenRouter.VisionModel)
	assert.True(t, cfg.InitialRefresh)
	assert.Zero(t, cfg.RefreshInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRIMETREND_DATA", "/srv/crime")
	t.Setenv("CRIMETREND_LISTEN", ":9999")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("CRIMETREND_LLM_TIMEOUT", "45s")
	t.Setenv("CRIMETREND_REFRESH_INTERVAL", "1h")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "/srv/crime", cfg.DataDir)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "sk-or-test", cfg.OpenRouter.APIKey)
	assert.Equal(t, 45*time.Second, cfg.OpenRouter.Timeout)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	// Derived paths follow the data dir
	assert.Equal(t, "/srv/crime/crimetrend.db", cfg.DBPath)
	assert.Equal(t, "/srv/crime/sources.yaml", cfg.SourcesPath)
}

func TestValidate(t *testing.T) {
	valid := AppConfig{
		DataDir: "./data",
		OpenRouter: OpenRouterConfig{
			BaseURL:        "https://openrouter.ai",
			Timeout:        time.Minute,
			MaxConcurrency: 2,
		},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty data dir", func(c *AppConfig) { c.DataDir = " " }},
		{"empty base url", func(c *AppConfig) { c.OpenRouter.BaseURL = "" }},
		{"bad scheme", func(c *AppConfig) { c.OpenRouter.BaseURL = "ftp://openrouter.ai" }},
		{"missing host", func(c *AppConfig) { c.OpenRouter.BaseURL = "https://" }},
		{"zero concurrency", func(c *AppConfig) { c.OpenRouter.MaxConcurrency = 0 }},
		{"zero timeout", func(c *AppConfig) { c.OpenRouter.Timeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
