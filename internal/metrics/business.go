// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	sourcesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crimetrend_sources_total",
		Help: "Total number of city sources configured (last refresh)",
	})

	observationsCollected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crimetrend_observations_collected",
		Help: "Number of observations collected per city (last refresh)",
	}, []string{"city"})

	collectorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_collector_runs_total",
		Help: "Collector runs per city by outcome",
	}, []string{"city", "outcome"}) // outcome=success|failure

	categoriesWritten = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crimetrend_categories_written",
		Help: "Category CSV files written per city (last refresh)",
	}, []string{"city"})

	combinedFilesWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crimetrend_combined_files_written",
		Help: "Combined category CSV files written (last combine)",
	})

	// LLM upstream metrics
	completionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_completion_requests_total",
		Help: "OpenRouter completion requests by model and outcome",
	}, []string{"model", "outcome"}) // outcome=success|error|timeout|rate_limited

	completionTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_completion_tokens_total",
		Help: "Token usage reported by OpenRouter",
	}, []string{"model", "kind"}) // kind=prompt|completion

	completionCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_completion_cache_total",
		Help: "Completion cache lookups by outcome",
	}, []string{"outcome"}) // outcome=hit|miss

	extractFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_extract_failures_total",
		Help: "LLM responses that could not be parsed, by source kind",
	}, []string{"kind"})

	// Error metrics for refresh stages
	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crimetrend_refresh_failures_total",
		Help: "Total number of refresh failures by stage",
	}, []string{"stage"}) // stage=config|collect|write_csv|combine|persist

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crimetrend_refresh_duration_seconds",
		Help:    "Duration of complete refresh cycles",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// SetSourcesTotal records the number of configured sources.
func SetSourcesTotal(n int) {
	sourcesTotal.Set(float64(n))
}

// SetObservationsCollected records collected observations for a city.
func SetObservationsCollected(city string, n int) {
	observationsCollected.WithLabelValues(city).Set(float64(n))
}

// RecordCollectorRun records a collector outcome for a city.
func RecordCollectorRun(city, outcome string) {
	collectorRunsTotal.WithLabelValues(city, outcome).Inc()
}

// SetCategoriesWritten records category CSVs written for a city.
func SetCategoriesWritten(city string, n int) {
	categoriesWritten.WithLabelValues(city).Set(float64(n))
}

// SetCombinedFilesWritten records combined CSVs written.
func SetCombinedFilesWritten(n int) {
	combinedFilesWritten.Set(float64(n))
}

// RecordCompletionRequest records an upstream completion call outcome.
func RecordCompletionRequest(model, outcome string) {
	completionRequestsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordCompletionTokens records reported token usage for a model.
func RecordCompletionTokens(model string, prompt, completion int) {
	if prompt > 0 {
		completionTokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		completionTokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

// RecordCompletionCache records a completion cache lookup outcome.
func RecordCompletionCache(outcome string) {
	completionCacheTotal.WithLabelValues(outcome).Inc()
}

// RecordExtractFailure records an unparseable LLM response.
func RecordExtractFailure(kind string) {
	extractFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordRefreshFailure records a refresh failure for a pipeline stage.
func RecordRefreshFailure(stage string) {
	refreshFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveRefreshDuration records a completed refresh cycle duration in seconds.
func ObserveRefreshDuration(seconds float64) {
	refreshDuration.Observe(seconds)
}
