// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/extract"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
	"github.com/opencivic/crimetrend/internal/openrouter"
)

// chartImageCollector transcribes published chart images with a vision model.
// One image covers one category across all years; the category name comes
// from the URL basename, e.g. .../aggravated-assault.webp.
type chartImageCollector struct {
	src    config.Source
	runner *LLMRunner
}

func newChartImageCollector(src config.Source, runner *LLMRunner) *chartImageCollector {
	return &chartImageCollector{src: src, runner: runner}
}

func (c *chartImageCollector) City() string            { return c.src.City }
func (c *chartImageCollector) Kind() config.SourceKind { return config.KindChartImage }

func (c *chartImageCollector) Collect(ctx context.Context) ([]dataset.Observation, error) {
	logger := log.WithComponentFromContext(ctx, "sources").With().
		Str(log.FieldCity, c.src.City).Logger()

	yearMin, yearMax := yearRange(c.src)
	prompt := fmt.Sprintf(
		"Use the image provided to create a csv file. Grab data from %d to %d. "+
			"The first column of the csv should be the year and the second column "+
			"should be how many times a given crime was committed in that year.",
		yearMin, yearMax,
	)

	var obs []dataset.Observation
	for _, imageURL := range c.src.Images {
		category := categoryFromURL(imageURL)

		points, err := c.askImage(ctx, prompt, imageURL, yearMin, yearMax)
		if err != nil {
			metrics.RecordExtractFailure(string(config.KindChartImage))
			logger.Warn().Err(err).
				Str("event", "chartimage.image_failed").
				Str(log.FieldCategory, category).
				Str("url", imageURL).
				Msg("chart transcription failed")
			continue
		}

		for _, p := range points {
			obs = append(obs, dataset.Observation{
				City:     c.src.City,
				Category: category,
				Year:     p.Year,
				Count:    p.Count,
				Source:   string(config.KindChartImage),
			})
		}
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("no chart data extracted for %s", c.src.City)
	}
	return obs, nil
}

func (c *chartImageCollector) askImage(ctx context.Context, prompt, imageURL string, yearMin, yearMax int) ([]extract.Point, error) {
	msg := openrouter.UserMessage(
		openrouter.TextPart(prompt),
		openrouter.ImagePart(imageURL),
	)

	answer, err := c.runner.Ask(ctx, c.model(), prompt, imageURL, msg, nil)
	if err != nil {
		return nil, err
	}
	return extract.ChartSeries(answer, yearMin, yearMax)
}

func (c *chartImageCollector) model() string {
	if c.src.Model != "" {
		return c.src.Model
	}
	return c.runner.VisionModel()
}

// categoryFromURL derives the category slug from the image URL basename.
// Example: https://host/QSLqqW1/aggravated-assault.webp -> aggravated-assault
func categoryFromURL(imageURL string) string {
	base := path.Base(imageURL)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return dataset.Slugify(stem)
}
