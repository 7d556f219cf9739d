// SPDX-License-Identifier: MIT
package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/jobs"
	"github.com/opencivic/crimetrend/internal/store"
)

type statusResponse struct {
	Version    string           `json:"version"`
	Refreshing bool             `json:"refreshing"`
	LastRun    *jobs.Status     `json:"last_run,omitempty"`
	Persisted  *persistedRunDTO `json:"persisted,omitempty"`
}

type persistedRunDTO struct {
	RunID        string    `json:"run_id"`
	FinishedAt   time.Time `json:"finished_at"`
	Observations int       `json:"observations"`
	Cities       int       `json:"cities"`
	Errors       int       `json:"errors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:    s.cfg.Version,
		Refreshing: s.refreshing.Load(),
		LastRun:    s.LastStatus(),
	}

	if run, err := s.querier.LastRefreshRun(r.Context()); err == nil {
		resp.Persisted = &persistedRunDTO{
			RunID:        run.RunID,
			FinishedAt:   run.FinishedAt,
			Observations: run.Observations,
			Cities:       run.Cities,
			Errors:       run.Errors,
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		writeError(w, r, http.StatusInternalServerError, "status lookup failed")
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.TriggerRefresh(r.Context()) {
		writeError(w, r, http.StatusConflict, "refresh already running")
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.querier.Cities(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "cities lookup failed")
		return
	}
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"cities": cities})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.querier.Categories(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "categories lookup failed")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"categories": categories})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	filter, ok := filterFromQuery(w, r)
	if !ok {
		return
	}

	obs, err := s.querier.Series(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "series lookup failed")
		return
	}
	if obs == nil {
		obs = []dataset.Observation{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"count":        len(obs),
		"observations": obs,
	})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	filter, ok := filterFromQuery(w, r)
	if !ok {
		return
	}

	totals, err := s.querier.CityYearTotals(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "heatmap lookup failed")
		return
	}
	if totals == nil {
		totals = []store.CityYearTotal{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"count":   len(totals),
		"buckets": totals,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := filterFromQuery(w, r)
	if !ok {
		return
	}

	summary, err := s.querier.Summarize(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "summary lookup failed")
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// filterFromQuery reads city, category, from and to query parameters.
// A false return means an error response was already written.
func filterFromQuery(w http.ResponseWriter, r *http.Request) (store.SeriesFilter, bool) {
	q := r.URL.Query()
	filter := store.SeriesFilter{
		City:     q.Get("city"),
		Category: q.Get("category"),
	}

	var ok bool
	if filter.FromYear, ok = yearParam(w, r, "from"); !ok {
		return store.SeriesFilter{}, false
	}
	if filter.ToYear, ok = yearParam(w, r, "to"); !ok {
		return store.SeriesFilter{}, false
	}

	if filter.FromYear > 0 && filter.ToYear > 0 && filter.FromYear > filter.ToYear {
		writeError(w, r, http.StatusBadRequest, "from must not exceed to")
		return store.SeriesFilter{}, false
	}
	return filter, true
}

func yearParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, r, http.StatusBadRequest, "invalid "+name+" year")
		return 0, false
	}
	return year, true
}
