// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/crimetrend/internal/dataset"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedObservations(t *testing.T, s *Store) {
	t.Helper()
	obs := []dataset.Observation{
		{City: "Chicago, Illinois", Category: "robbery", Year: 2014, Count: 100, Source: "pdfreport"},
		{City: "Chicago, Illinois", Category: "robbery", Year: 2015, Count: 120, Source: "pdfreport"},
		{City: "Chicago, Illinois", Category: "homicide", Year: 2014, Count: 30, Source: "pdfreport"},
		{City: "Memphis, Tennessee", Category: "robbery", Year: 2014, Count: 80, Source: "chartimage"},
		{City: "Memphis, Tennessee", Category: "robbery", Year: 2016, Count: 90, Source: "chartimage"},
	}
	require.NoError(t, s.UpsertObservations(context.Background(), obs))
}

func TestNewAppliesPragmas(t *testing.T) {
	s := newTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestUpsertAndSeries(t *testing.T) {
	s := newTestStore(t)
	seedObservations(t, s)
	ctx := context.Background()

	all, err := s.Series(ctx, SeriesFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	// Deterministic order: city, category, year.
	assert.Equal(t, "Chicago, Illinois", all[0].City)
	assert.Equal(t, "homicide", all[0].Category)

	chicago, err := s.Series(ctx, SeriesFilter{City: "Chicago, Illinois"})
	require.NoError(t, err)
	assert.Len(t, chicago, 3)

	robbery2014, err := s.Series(ctx, SeriesFilter{Category: "robbery", FromYear: 2014, ToYear: 2014})
	require.NoError(t, err)
	require.Len(t, robbery2014, 2)
	assert.Equal(t, int64(100), robbery2014[0].Count)
	assert.Equal(t, int64(80), robbery2014[1].Count)
}

func TestUpsertReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []dataset.Observation{{City: "c", Category: "robbery", Year: 2014, Count: 10, Source: "tabular"}}
	require.NoError(t, s.UpsertObservations(ctx, first))

	second := []dataset.Observation{{City: "c", Category: "robbery", Year: 2014, Count: 25, Source: "tabular"}}
	require.NoError(t, s.UpsertObservations(ctx, second))

	got, err := s.Series(ctx, SeriesFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(25), got[0].Count)
}

func TestCitiesAndCategories(t *testing.T) {
	s := newTestStore(t)
	seedObservations(t, s)
	ctx := context.Background()

	cities, err := s.Cities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chicago, Illinois", "Memphis, Tennessee"}, cities)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"homicide", "robbery"}, categories)
}

func TestCityYearTotals(t *testing.T) {
	s := newTestStore(t)
	seedObservations(t, s)
	ctx := context.Background()

	all, err := s.CityYearTotals(ctx, SeriesFilter{})
	require.NoError(t, err)
	assert.Equal(t, []CityYearTotal{
		{City: "Chicago, Illinois", Year: 2014, Total: 130}, // robbery + homicide
		{City: "Chicago, Illinois", Year: 2015, Total: 120},
		{City: "Memphis, Tennessee", Year: 2014, Total: 80},
		{City: "Memphis, Tennessee", Year: 2016, Total: 90},
	}, all)

	filtered, err := s.CityYearTotals(ctx, SeriesFilter{Category: "robbery", ToYear: 2014})
	require.NoError(t, err)
	assert.Equal(t, []CityYearTotal{
		{City: "Chicago, Illinois", Year: 2014, Total: 100},
		{City: "Memphis, Tennessee", Year: 2014, Total: 80},
	}, filtered)

	empty, err := s.CityYearTotals(ctx, SeriesFilter{City: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSummarize(t *testing.T) {
	s := newTestStore(t)
	seedObservations(t, s)

	sum, err := s.Summarize(context.Background(), SeriesFilter{Category: "robbery"})
	require.NoError(t, err)

	assert.Equal(t, int64(390), sum.TotalIncidents)
	assert.Equal(t, 3, sum.Years) // 2014, 2015, 2016
	assert.Equal(t, 2, sum.Cities)
	assert.InDelta(t, 130.0, sum.AveragePerYear, 0.001)
	assert.Equal(t, "Chicago, Illinois", sum.TopCity)
	assert.Equal(t, int64(220), sum.TopCityCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.Summarize(context.Background(), SeriesFilter{})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestRefreshRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LastRefreshRun(ctx)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	run := RefreshRun{
		RunID:        "run-1",
		StartedAt:    started,
		FinishedAt:   started.Add(90 * time.Second),
		Observations: 42,
		Cities:       3,
		Errors:       1,
	}
	require.NoError(t, s.RecordRefreshRun(ctx, run))

	later := run
	later.RunID = "run-2"
	later.StartedAt = started.Add(time.Hour)
	later.FinishedAt = started.Add(time.Hour + time.Minute)
	later.Errors = 0
	require.NoError(t, s.RecordRefreshRun(ctx, later))

	got, err := s.LastRefreshRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 0, got.Errors)
	assert.True(t, got.FinishedAt.Equal(later.FinishedAt))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
