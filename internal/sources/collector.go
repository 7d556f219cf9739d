// SPDX-License-Identifier: MIT

// Package sources implements the per-city collectors that turn raw inputs
// (annual report PDFs, chart images, tabular exports) into observations.
package sources

import (
	"context"
	"fmt"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/openrouter"
)

// CompletionClient is the slice of the OpenRouter client collectors need.
// Kept as an interface so tests can swap in a scripted fake.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// Collector produces observations for one configured city source.
type Collector interface {
	// City returns the display name of the city the collector serves.
	City() string
	// Kind returns the source kind ("pdfreport", "chartimage", "tabular").
	Kind() config.SourceKind
	// Collect gathers all observations for the city. Partial results with a
	// nil error are normal: individual categories that fail are logged and
	// skipped rather than failing the whole city.
	Collect(ctx context.Context) ([]dataset.Observation, error)
}

// New builds the collector matching the source kind.
func New(src config.Source, runner *LLMRunner) (Collector, error) {
	switch src.Kind {
	case config.KindPDFReport:
		return newPDFReportCollector(src, runner), nil
	case config.KindChartImage:
		return newChartImageCollector(src, runner), nil
	case config.KindTabular:
		return newTabularCollector(src), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q for city %q", src.Kind, src.City)
	}
}

// yearRange returns the configured year bounds with defaults applied.
func yearRange(src config.Source) (int, int) {
	min, max := src.YearMin, src.YearMax
	if min == 0 {
		min = config.DefaultYearMin
	}
	if max == 0 {
		max = config.DefaultYearMax
	}
	return min, max
}
