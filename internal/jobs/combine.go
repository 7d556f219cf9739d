// SPDX-License-Identifier: MIT
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/log"
)

// Combine merges the per-city category CSVs into cross-city files under
// combinedDir. Every directory under dataDir with an output/ subdirectory is
// treated as a city; rows are tagged with the directory name and grouped by
// category filename, producing one city,year,count CSV per category.
// Returns the number of combined files written.
func Combine(ctx context.Context, dataDir, combinedDir string) (int, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return 0, fmt.Errorf("read data dir: %w", err)
	}

	// byFile maps category filename to rows across all cities.
	byFile := make(map[string][]dataset.Observation)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cityDir := filepath.Join(dataDir, entry.Name())
		if sameDir(cityDir, combinedDir) {
			continue
		}

		outputDir := filepath.Join(cityDir, "output")
		if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
			continue
		}

		city := entry.Name()
		paths, err := filepath.Glob(filepath.Join(outputDir, "*.csv"))
		if err != nil {
			return 0, fmt.Errorf("scan %s: %w", outputDir, err)
		}
		if len(paths) == 0 {
			logger.Debug().
				Str("event", "combine.empty_city").
				Str(log.FieldCity, city).
				Msg("no CSVs in city output")
			continue
		}

		for _, path := range paths {
			filename := filepath.Base(path)
			category := strings.TrimSuffix(filename, filepath.Ext(filename))

			obs, err := dataset.ReadCategoryCSV(path, city, category)
			if err != nil {
				logger.Warn().Err(err).
					Str("event", "combine.read_failed").
					Str(log.FieldCity, city).
					Str("file", filename).
					Msg("skipping unreadable category file")
				continue
			}
			byFile[filename] = append(byFile[filename], obs...)
		}
	}

	if len(byFile) == 0 {
		return 0, nil
	}

	filenames := make([]string, 0, len(byFile))
	for name := range byFile {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	written := 0
	for _, filename := range filenames {
		path := filepath.Join(combinedDir, filename)
		if err := dataset.WriteCombinedCSV(ctx, path, byFile[filename]); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written++
	}

	logger.Info().
		Str("event", "combine.done").
		Int("files", written).
		Str("dir", combinedDir).
		Msg("combined files written")
	return written, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
