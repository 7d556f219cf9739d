// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencivic/crimetrend/internal/api"
	"github.com/opencivic/crimetrend/internal/cache"
	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/daemon"
	"github.com/opencivic/crimetrend/internal/health"
	"github.com/opencivic/crimetrend/internal/jobs"
	ctlog "github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
	"github.com/opencivic/crimetrend/internal/openrouter"
	"github.com/opencivic/crimetrend/internal/sources"
	"github.com/opencivic/crimetrend/internal/store"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "collect":
			os.Exit(runCollect(os.Args[2:]))
		case "combine":
			os.Exit(runCombine(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheck(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctlog.Configure(ctlog.Config{
		Level:   "info",
		Service: "crimetrend",
		Version: version,
	})
	logger := ctlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(version)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting crimetrend")

	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Combined dir: %s", cfg.CombinedDir)
	logger.Info().Msgf("→ Sources: %s", cfg.SourcesPath)
	logger.Info().Msgf("→ Database: %s", cfg.DBPath)
	if cfg.OpenRouter.APIKey != "" {
		logger.Info().Msg("→ OpenRouter key: configured")
	} else {
		logger.Warn().Msg("→ OpenRouter key: NOT configured (pdfreport and chartimage sources will fail)")
	}
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured, POST /refresh disabled. Set CRIMETREND_API_TOKEN to enable.")
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build components")
	}

	if err := comps.holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).
			Str("event", "manifest.watch_failed").
			Msg("manifest hot reload unavailable")
	}

	// Keep the sources gauge current between refresh runs: hot reloads
	// change the configured source count immediately, not at the next run.
	reloads := make(chan config.Manifest, 1)
	comps.holder.RegisterListener(reloads)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-reloads:
				metrics.SetSourcesTotal(len(m.Sources))
				logger.Info().
					Str("event", "manifest.applied").
					Int("sources", len(m.Sources)).
					Msg("reloaded source manifest applied")
			}
		}
	}()

	healthMgr := health.NewManager(version, cfg.ReadyStrict)
	healthMgr.RegisterChecker(health.NewStoreChecker(comps.store))
	healthMgr.RegisterChecker(health.NewManifestChecker(comps.holder))
	healthMgr.RegisterChecker(health.NewDataDirChecker(cfg.DataDir))
	if cfg.OpenRouter.APIKey != "" {
		healthMgr.RegisterChecker(health.NewOpenRouterChecker(comps.client))
	}

	server := api.New(cfg, comps.refresher, comps.store, healthMgr)

	mgr, err := daemon.NewManager(cfg, daemon.Deps{
		Logger:         ctlog.Base(),
		APIHandler:     server.Router(),
		MetricsHandler: promhttp.Handler(),
		TriggerRefresh: server.TriggerRefresh,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}

	mgr.RegisterShutdownHook("store", func(ctx context.Context) error {
		return comps.store.Close()
	})
	mgr.RegisterShutdownHook("cache", func(ctx context.Context) error {
		if closer, ok := comps.cache.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	})
	mgr.RegisterShutdownHook("manifest-watcher", func(ctx context.Context) error {
		comps.holder.Stop()
		return nil
	})

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("daemon terminated with error")
	}
}

// components holds the wired collection pipeline shared by daemon mode and
// the collect subcommand.
type components struct {
	holder    *config.ManifestHolder
	store     *store.Store
	client    *openrouter.Client
	cache     cache.Cache
	refresher *jobs.Refresher
}

func buildComponents(cfg config.AppConfig) (*components, error) {
	manifest, err := config.LoadManifest(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", cfg.SourcesPath, err)
	}
	holder := config.NewManifestHolder(manifest, cfg.SourcesPath)

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}

	client := openrouter.New(cfg.OpenRouter.BaseURL, openrouter.Options{
		APIKey:  cfg.OpenRouter.APIKey,
		Timeout: cfg.OpenRouter.Timeout,
		Referer: "https://github.com/opencivic/crimetrend",
		Title:   "crimetrend",
	})

	completionCache := cache.New(cfg.Cache, ctlog.WithComponent("cache"))
	runner := sources.NewLLMRunner(client, completionCache, cfg.OpenRouter)
	if cfg.Cache.TTL > 0 {
		runner.SetCacheTTL(cfg.Cache.TTL)
	}

	return &components{
		holder:    holder,
		store:     st,
		client:    client,
		cache:     completionCache,
		refresher: jobs.NewRefresher(cfg, holder, runner, st),
	}, nil
}
