// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/jobs"
	ctlog "github.com/opencivic/crimetrend/internal/log"
)

// runCollect executes one collection cycle in the foreground and exits.
// Meant for cron style deployments that do not want the daemon running.
func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing collect flags: %v\n", err)
		return 1
	}

	ctlog.Configure(ctlog.Config{
		Level:   "info",
		Service: "crimetrend",
		Version: version,
	})
	logger := ctlog.WithComponent("collect")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(version)
	if err != nil {
		logger.Error().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
		return 1
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build components")
		return 1
	}
	defer comps.store.Close()

	status, err := comps.refresher.Refresh(ctx)
	if err != nil {
		logger.Error().Err(err).
			Str("event", "refresh.failed").
			Msg("collection cycle failed")
		return 1
	}

	fmt.Printf("run %s: %d observations from %d cities, %d combined files, %d errors\n",
		status.RunID, status.Observations, status.Cities, status.CombinedFiles, len(status.Errors))
	for _, e := range status.Errors {
		fmt.Fprintf(os.Stderr, "  error: %s\n", e)
	}
	if len(status.Errors) > 0 {
		return 1
	}
	return 0
}

// runCombine rebuilds the combined cross-city CSVs from existing per-city
// output directories without collecting anything.
func runCombine(args []string) int {
	fs := flag.NewFlagSet("combine", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing combine flags: %v\n", err)
		return 1
	}

	ctlog.Configure(ctlog.Config{
		Level:   "info",
		Service: "crimetrend",
		Version: version,
	})
	logger := ctlog.WithComponent("combine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(version)
	if err != nil {
		logger.Error().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
		return 1
	}

	n, err := jobs.Combine(ctx, cfg.DataDir, cfg.CombinedDir)
	if err != nil {
		logger.Error().Err(err).
			Str("event", "combine.failed").
			Msg("combine failed")
		return 1
	}

	fmt.Printf("wrote %d combined files to %s\n", n, cfg.CombinedDir)
	return 0
}
