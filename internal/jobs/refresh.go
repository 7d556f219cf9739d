// SPDX-License-Identifier: MIT

// Package jobs orchestrates the refresh cycle: collect observations per city,
// write CSV artifacts, combine them across cities and persist to the store.
package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
	"github.com/opencivic/crimetrend/internal/sources"
	"github.com/opencivic/crimetrend/internal/store"
)

// maxCityConcurrency bounds how many city collectors run at once. Model
// calls inside each collector are throttled separately by the LLM runner.
const maxCityConcurrency = 3

// Status summarizes one refresh run.
type Status struct {
	RunID         string    `json:"run_id"`
	LastRun       time.Time `json:"last_run"`
	Cities        int       `json:"cities"`
	Observations  int       `json:"observations"`
	CombinedFiles int       `json:"combined_files"`
	Errors        []string  `json:"errors,omitempty"`
}

// ObservationStore is the slice of the store the refresher needs.
type ObservationStore interface {
	UpsertObservations(ctx context.Context, obs []dataset.Observation) error
	RecordRefreshRun(ctx context.Context, run store.RefreshRun) error
}

// Refresher runs the collect-write-combine-persist cycle.
type Refresher struct {
	dataDir     string
	combinedDir string
	manifest    *config.ManifestHolder
	runner      *sources.LLMRunner
	store       ObservationStore
}

// NewRefresher wires a refresher. The store may be nil when persistence is
// disabled (one-shot CLI collection).
func NewRefresher(cfg config.AppConfig, manifest *config.ManifestHolder, runner *sources.LLMRunner, st ObservationStore) *Refresher {
	combined := cfg.CombinedDir
	if combined == "" {
		combined = filepath.Join(cfg.DataDir, "combined")
	}
	return &Refresher{
		dataDir:     cfg.DataDir,
		combinedDir: combined,
		manifest:    manifest,
		runner:      runner,
		store:       st,
	}
}

type cityResult struct {
	city string
	obs  []dataset.Observation
	err  error
}

// Refresh performs one full cycle. Individual city failures are collected in
// Status.Errors rather than aborting the run; the error return is reserved
// for failures that leave no usable output at all.
func (r *Refresher) Refresh(ctx context.Context) (*Status, error) {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	started := time.Now()
	logger.Info().Str("event", "refresh.start").Msg("starting refresh")

	manifest := r.manifest.Get()
	metrics.SetSourcesTotal(len(manifest.Sources))

	results := r.collectAll(ctx, manifest.Sources)

	status := &Status{RunID: runID}
	var all []dataset.Observation
	for _, res := range results {
		if res.err != nil {
			metrics.RecordCollectorRun(res.city, "error")
			metrics.RecordRefreshFailure("collect")
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", res.city, res.err))
			logger.Error().Err(res.err).
				Str("event", "refresh.city_failed").
				Str(log.FieldCity, res.city).
				Msg("city collection failed")
			continue
		}
		metrics.RecordCollectorRun(res.city, "success")
		metrics.SetObservationsCollected(res.city, len(res.obs))

		if err := r.writeCityArtifacts(ctx, res.city, res.obs); err != nil {
			metrics.RecordRefreshFailure("write")
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", res.city, err))
			continue
		}

		status.Cities++
		all = append(all, res.obs...)
	}
	status.Observations = len(all)

	if status.Cities == 0 {
		metrics.RecordRefreshFailure("all_cities")
		return status, fmt.Errorf("all %d cities failed", len(manifest.Sources))
	}

	combined, err := Combine(ctx, r.dataDir, r.combinedDir)
	if err != nil {
		metrics.RecordRefreshFailure("combine")
		return status, fmt.Errorf("combine: %w", err)
	}
	status.CombinedFiles = combined
	metrics.SetCombinedFilesWritten(combined)

	if r.store != nil {
		if err := r.store.UpsertObservations(ctx, all); err != nil {
			metrics.RecordRefreshFailure("persist")
			return status, fmt.Errorf("persist observations: %w", err)
		}
		run := store.RefreshRun{
			RunID:        runID,
			StartedAt:    started,
			FinishedAt:   time.Now(),
			Observations: status.Observations,
			Cities:       status.Cities,
			Errors:       len(status.Errors),
		}
		if err := r.store.RecordRefreshRun(ctx, run); err != nil {
			logger.Warn().Err(err).
				Str("event", "refresh.record_run_failed").
				Msg("cannot record refresh run")
		}
	}

	status.LastRun = time.Now()
	metrics.ObserveRefreshDuration(time.Since(started).Seconds())

	logger.Info().
		Str("event", "refresh.done").
		Int("cities", status.Cities).
		Int("observations", status.Observations).
		Int("combined_files", status.CombinedFiles).
		Int("errors", len(status.Errors)).
		Dur(log.FieldDuration, time.Since(started)).
		Msg("refresh complete")

	return status, nil
}

// collectAll runs the city collectors with bounded concurrency. Results come
// back in manifest order.
func (r *Refresher) collectAll(ctx context.Context, srcs []config.Source) []cityResult {
	results := make([]cityResult, len(srcs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCityConcurrency)

	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			res := cityResult{city: src.City}

			collector, err := sources.New(r.resolveInput(src), r.runner)
			if err != nil {
				res.err = err
			} else {
				res.obs, res.err = collector.Collect(gctx)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// resolveInput anchors relative input paths at the data directory.
func (r *Refresher) resolveInput(src config.Source) config.Source {
	if src.Input != "" && !filepath.IsAbs(src.Input) {
		src.Input = filepath.Join(r.dataDir, src.Input)
	}
	return src
}

// writeCityArtifacts writes one year,count CSV per category under
// <dataDir>/<city>/output/.
func (r *Refresher) writeCityArtifacts(ctx context.Context, city string, obs []dataset.Observation) error {
	outDir := filepath.Join(r.dataDir, city, "output")

	groups := dataset.GroupByCategory(obs)
	for slug, group := range groups {
		path := filepath.Join(outDir, slug+".csv")
		if err := dataset.WriteCategoryCSV(ctx, path, group); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	metrics.SetCategoriesWritten(city, len(groups))

	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str("event", "artifacts.write").
		Str(log.FieldCity, city).
		Int("categories", len(groups)).
		Msg("city artifacts written")
	return nil
}
