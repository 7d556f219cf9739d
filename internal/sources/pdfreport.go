// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/extract"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
	"github.com/opencivic/crimetrend/internal/openrouter"
)

// pdfReportCollector extracts per-category counts from yearly annual report
// PDFs. Each PDF covers one year, named like "2014-Annual-Report.pdf", and
// the model is asked one question per configured category.
type pdfReportCollector struct {
	src    config.Source
	runner *LLMRunner
}

func newPDFReportCollector(src config.Source, runner *LLMRunner) *pdfReportCollector {
	return &pdfReportCollector{src: src, runner: runner}
}

func (c *pdfReportCollector) City() string            { return c.src.City }
func (c *pdfReportCollector) Kind() config.SourceKind { return config.KindPDFReport }

func (c *pdfReportCollector) Collect(ctx context.Context) ([]dataset.Observation, error) {
	logger := log.WithComponentFromContext(ctx, "sources").With().
		Str(log.FieldCity, c.src.City).Logger()

	paths, err := filepath.Glob(filepath.Join(c.src.Input, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("scan input dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files in %s", c.src.Input)
	}
	sort.Strings(paths)

	yearMin, yearMax := yearRange(c.src)

	var obs []dataset.Observation
	for _, path := range paths {
		year, ok := yearFromFilename(path)
		if !ok {
			logger.Warn().
				Str("event", "pdfreport.skip").
				Str("file", filepath.Base(path)).
				Msg("cannot determine year from filename")
			continue
		}
		if year < yearMin || year > yearMax {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).
				Str("event", "pdfreport.read_failed").
				Str("file", filepath.Base(path)).
				Msg("cannot read PDF")
			continue
		}

		encoded := base64.StdEncoding.EncodeToString(data)
		contentHash := sha256.Sum256(data)
		attachment := hex.EncodeToString(contentHash[:])
		filename := filepath.Base(path)

		for _, category := range c.src.Categories {
			count, err := c.askCategory(ctx, filename, encoded, attachment, category, year)
			if err != nil {
				metrics.RecordExtractFailure(string(config.KindPDFReport))
				logger.Warn().Err(err).
					Str("event", "pdfreport.category_failed").
					Str(log.FieldCategory, category).
					Int(log.FieldYear, year).
					Msg("category extraction failed")
				continue
			}
			obs = append(obs, dataset.Observation{
				City:     c.src.City,
				Category: category,
				Year:     year,
				Count:    count,
				Source:   string(config.KindPDFReport),
			})
		}
	}

	return obs, nil
}

func (c *pdfReportCollector) askCategory(ctx context.Context, filename, encoded, attachment, category string, year int) (int64, error) {
	prompt := fmt.Sprintf(
		"How many %s crimes were committed in %d according to the PDF? Please provide only the number.",
		category, year,
	)
	msg := openrouter.UserMessage(
		openrouter.TextPart(prompt),
		openrouter.PDFPart(filename, encoded),
	)
	plugins := []openrouter.Plugin{openrouter.PDFTextPlugin()}

	answer, err := c.runner.Ask(ctx, c.model(), prompt, attachment, msg, plugins)
	if err != nil {
		return 0, err
	}
	return extract.Count(answer)
}

func (c *pdfReportCollector) model() string {
	if c.src.Model != "" {
		return c.src.Model
	}
	return c.runner.TextModel()
}

// yearFromFilename reads the leading year from names like
// "2014-Annual-Report.pdf" or "2014.pdf".
func yearFromFilename(path string) (int, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	token, _, _ := strings.Cut(stem, "-")
	year, err := strconv.Atoi(token)
	if err != nil || year < 1900 || year > 2200 {
		return 0, false
	}
	return year, true
}
