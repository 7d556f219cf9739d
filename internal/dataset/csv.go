// SPDX-License-Identifier: MIT
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/opencivic/crimetrend/internal/log"
)

// WriteCategoryCSV atomically writes a per-city category file with
// year,count rows sorted by year.
func WriteCategoryCSV(ctx context.Context, path string, obs []Observation) error {
	SortObservations(obs)

	records := make([][]string, 0, len(obs)+1)
	records = append(records, []string{"year", "count"})
	for _, o := range obs {
		records = append(records, []string{
			strconv.Itoa(o.Year),
			strconv.FormatInt(o.Count, 10),
		})
	}
	return writeCSV(ctx, path, records)
}

// WriteCombinedCSV atomically writes a cross-city category file with
// city,year,count rows sorted by city then year.
func WriteCombinedCSV(ctx context.Context, path string, obs []Observation) error {
	SortObservations(obs)

	records := make([][]string, 0, len(obs)+1)
	records = append(records, []string{"city", "year", "count"})
	for _, o := range obs {
		records = append(records, []string{
			o.City,
			strconv.Itoa(o.Year),
			strconv.FormatInt(o.Count, 10),
		})
	}
	return writeCSV(ctx, path, records)
}

// writeCSV writes records through renameio so readers never observe a
// partially written file.
func writeCSV(ctx context.Context, path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending csv: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			log.FromContext(ctx).Debug().Err(err).Msg("cleanup pending csv")
		}
	}()

	w := csv.NewWriter(pending)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write csv data: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace csv: %w", err)
	}
	return nil
}

// ReadCategoryCSV reads a year,count file. The city and category are supplied
// by the caller since the file itself carries neither.
func ReadCategoryCSV(path, city, category string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parseCategoryCSV(f, city, category)
}

func parseCategoryCSV(r io.Reader, city, category string) ([]Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var obs []Observation
	for i, rec := range records {
		if i == 0 && isHeader(rec) {
			continue
		}
		if len(rec) < 2 {
			continue
		}
		year, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{City: city, Category: category, Year: year, Count: count})
	}
	return obs, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && rec[0] == "year"
}
