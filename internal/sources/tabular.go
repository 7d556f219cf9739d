// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/log"
)

// tabularCollector aggregates raw incident exports locally without any model
// calls. Each input CSV covers one year, named like
// "2014-PART_I_AND_II_CRIMES.csv", and every row is one incident; counting
// rows per category yields the yearly totals.
type tabularCollector struct {
	src config.Source
}

func newTabularCollector(src config.Source) *tabularCollector {
	return &tabularCollector{src: src}
}

func (c *tabularCollector) City() string            { return c.src.City }
func (c *tabularCollector) Kind() config.SourceKind { return config.KindTabular }

func (c *tabularCollector) Collect(ctx context.Context) ([]dataset.Observation, error) {
	logger := log.WithComponentFromContext(ctx, "sources").With().
		Str(log.FieldCity, c.src.City).Logger()

	paths, err := filepath.Glob(filepath.Join(c.src.Input, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan input dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files in %s", c.src.Input)
	}
	sort.Strings(paths)

	yearMin, yearMax := yearRange(c.src)

	// counts[category][year]
	counts := make(map[string]map[int]int64)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		year, ok := yearFromFilename(path)
		if !ok || year < yearMin || year > yearMax {
			logger.Warn().
				Str("event", "tabular.skip").
				Str("file", filepath.Base(path)).
				Msg("cannot determine year from filename or year out of range")
			continue
		}

		rows, err := c.countFile(path)
		if err != nil {
			logger.Warn().Err(err).
				Str("event", "tabular.file_failed").
				Str("file", filepath.Base(path)).
				Msg("cannot aggregate file")
			continue
		}

		for category, n := range rows {
			if counts[category] == nil {
				counts[category] = make(map[int]int64)
			}
			counts[category][year] += n
		}
	}

	var obs []dataset.Observation
	for category, years := range counts {
		for year, n := range years {
			obs = append(obs, dataset.Observation{
				City:     c.src.City,
				Category: category,
				Year:     year,
				Count:    n,
				Source:   string(config.KindTabular),
			})
		}
	}
	dataset.SortObservations(obs)

	if len(obs) == 0 {
		return nil, fmt.Errorf("no rows aggregated for %s", c.src.City)
	}
	return obs, nil
}

// countFile counts incidents per category in one export. Malformed rows are
// skipped, matching lenient ingestion of real-world municipal exports.
func (c *tabularCollector) countFile(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), c.src.CategoryColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("column %q not found in %s", c.src.CategoryColumn, filepath.Base(path))
	}

	counts := make(map[string]int64)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line, skip it.
			continue
		}
		if col >= len(rec) {
			continue
		}
		category := strings.TrimSpace(rec[col])
		if category == "" {
			continue
		}
		counts[category]++
	}
	return counts, nil
}
