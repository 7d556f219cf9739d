// SPDX-License-Identifier: MIT

// Package api serves the query and control HTTP surface.
package api

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/health"
	"github.com/opencivic/crimetrend/internal/jobs"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/store"
)

// Refresher triggers one collection cycle.
type Refresher interface {
	Refresh(ctx context.Context) (*jobs.Status, error)
}

// Querier is the read side of the observation store.
type Querier interface {
	Cities(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	Series(ctx context.Context, f store.SeriesFilter) ([]dataset.Observation, error)
	CityYearTotals(ctx context.Context, f store.SeriesFilter) ([]store.CityYearTotal, error)
	Summarize(ctx context.Context, f store.SeriesFilter) (store.Summary, error)
	LastRefreshRun(ctx context.Context) (store.RefreshRun, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.AppConfig
	refresher Refresher
	querier   Querier
	health    *health.Manager

	refreshing atomic.Bool

	mu         sync.RWMutex
	lastStatus *jobs.Status
}

// New creates the API server.
func New(cfg config.AppConfig, refresher Refresher, querier Querier, healthMgr *health.Manager) *Server {
	return &Server{
		cfg:       cfg,
		refresher: refresher,
		querier:   querier,
		health:    healthMgr,
	}
}

// LastStatus returns the most recent refresh status, or nil before the first run.
func (s *Server) LastStatus() *jobs.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

func (s *Server) setLastStatus(status *jobs.Status) {
	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()
}

// TriggerRefresh starts a refresh cycle in the background. Returns false when
// one is already running.
func (s *Server) TriggerRefresh(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}

	// Detach from the request so a closed connection does not abort the run.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.refreshing.Store(false)

		status, err := s.refresher.Refresh(runCtx)
		if status != nil {
			s.setLastStatus(status)
		}
		if err != nil {
			logger := log.WithComponent("api")
			logger.Error().Err(err).
				Str("event", "refresh.trigger_failed").
				Msg("triggered refresh failed")
		}
	}()
	return true
}
