// SPDX-License-Identifier: MIT

// Package store provides SQLite persistence for collected crime observations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/opencivic/crimetrend/internal/dataset"
)

// Store persists observations and refresh run history.
type Store struct {
	db *sql.DB
}

// New opens the database, sets pragmas and runs migrations.
// busy_timeout avoids "database locked" errors under concurrent access.
// The modernc driver takes pragmas as _pragma=name(value) query params.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		city TEXT NOT NULL,
		category TEXT NOT NULL,
		year INTEGER NOT NULL,
		count INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (city, category, year)
	);

	CREATE TABLE IF NOT EXISTS refresh_runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		observations INTEGER NOT NULL DEFAULT 0,
		cities INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_observations_category ON observations(category);
	CREATE INDEX IF NOT EXISTS idx_observations_year ON observations(year);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertObservations writes a batch in one transaction. Later values for the
// same (city, category, year) replace earlier ones.
func (s *Store) UpsertObservations(ctx context.Context, obs []dataset.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO observations (city, category, year, count, source, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(city, category, year) DO UPDATE SET
		count = excluded.count,
		source = excluded.source,
		updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.City, o.Category, o.Year, o.Count, o.Source, now); err != nil {
			return fmt.Errorf("upsert observation %s/%s/%d: %w", o.City, o.Category, o.Year, err)
		}
	}

	return tx.Commit()
}

// Cities returns all distinct cities in ascending order.
func (s *Store) Cities(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT city FROM observations ORDER BY city`)
}

// Categories returns all distinct categories in ascending order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT category FROM observations ORDER BY category`)
}

func (s *Store) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SeriesFilter narrows a Series query. Zero values mean "no restriction".
type SeriesFilter struct {
	City     string
	Category string
	FromYear int
	ToYear   int
}

// clauses renders the filter as SQL conditions appended to a WHERE 1=1 query.
func (f SeriesFilter) clauses() (string, []any) {
	var cond string
	var args []any

	if f.City != "" {
		cond += ` AND city = ?`
		args = append(args, f.City)
	}
	if f.Category != "" {
		cond += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.FromYear > 0 {
		cond += ` AND year >= ?`
		args = append(args, f.FromYear)
	}
	if f.ToYear > 0 {
		cond += ` AND year <= ?`
		args = append(args, f.ToYear)
	}
	return cond, args
}

// Series returns observations matching the filter, ordered by city,
// category, year.
func (s *Store) Series(ctx context.Context, f SeriesFilter) ([]dataset.Observation, error) {
	cond, args := f.clauses()
	query := `SELECT city, category, year, count, source FROM observations WHERE 1=1` +
		cond + ` ORDER BY city, category, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var obs []dataset.Observation
	for rows.Next() {
		var o dataset.Observation
		if err := rows.Scan(&o.City, &o.Category, &o.Year, &o.Count, &o.Source); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// CityYearTotal is one heatmap bucket: all incidents for a city in one year,
// summed across categories.
type CityYearTotal struct {
	City  string `json:"city"`
	Year  int    `json:"year"`
	Total int64  `json:"total"`
}

// CityYearTotals sums the filtered observations per city and year, ordered by
// city, year.
func (s *Store) CityYearTotals(ctx context.Context, f SeriesFilter) ([]CityYearTotal, error) {
	cond, args := f.clauses()
	query := `SELECT city, year, SUM(count) FROM observations WHERE 1=1` +
		cond + ` GROUP BY city, year ORDER BY city, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var totals []CityYearTotal
	for rows.Next() {
		var t CityYearTotal
		if err := rows.Scan(&t.City, &t.Year, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Summary aggregates the observations matching the filter.
type Summary struct {
	TotalIncidents int64   `json:"total_incidents"`
	AveragePerYear float64 `json:"average_per_year"`
	TopCity        string  `json:"top_city"`
	TopCityCount   int64   `json:"top_city_count"`
	Years          int     `json:"years"`
	Cities         int     `json:"cities"`
}

// Summarize computes totals, the per-year average and the city with the most
// incidents across the filtered observations.
func (s *Store) Summarize(ctx context.Context, f SeriesFilter) (Summary, error) {
	obs, err := s.Series(ctx, f)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	years := make(map[int]struct{})
	byCity := make(map[string]int64)
	for _, o := range obs {
		sum.TotalIncidents += o.Count
		years[o.Year] = struct{}{}
		byCity[o.City] += o.Count
	}

	sum.Years = len(years)
	sum.Cities = len(byCity)
	if sum.Years > 0 {
		sum.AveragePerYear = float64(sum.TotalIncidents) / float64(sum.Years)
	}
	for city, count := range byCity {
		if count > sum.TopCityCount || (count == sum.TopCityCount && (sum.TopCity == "" || city < sum.TopCity)) {
			sum.TopCity = city
			sum.TopCityCount = count
		}
	}
	return sum, nil
}

// RefreshRun records one completed refresh cycle.
type RefreshRun struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Observations int
	Cities       int
	Errors       int
}

// RecordRefreshRun persists a completed run.
func (s *Store) RecordRefreshRun(ctx context.Context, run RefreshRun) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO refresh_runs (run_id, started_at, finished_at, observations, cities, errors)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Observations,
		run.Cities,
		run.Errors,
	)
	return err
}

// LastRefreshRun returns the most recent run, or sql.ErrNoRows when none exist.
func (s *Store) LastRefreshRun(ctx context.Context) (RefreshRun, error) {
	var run RefreshRun
	var started, finished string

	err := s.db.QueryRowContext(ctx, `
	SELECT run_id, started_at, finished_at, observations, cities, errors
	FROM refresh_runs
	ORDER BY finished_at DESC
	LIMIT 1
	`).Scan(&run.RunID, &started, &finished, &run.Observations, &run.Cities, &run.Errors)
	if err != nil {
		return RefreshRun{}, err
	}

	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return RefreshRun{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return RefreshRun{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
