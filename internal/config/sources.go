// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceKind identifies the collection strategy for a city.
type SourceKind string

const (
	// KindPDFReport extracts counts from yearly annual-report PDFs via the LLM.
	KindPDFReport SourceKind = "pdfreport"
	// KindChartImage transcribes published chart images via a vision model.
	KindChartImage SourceKind = "chartimage"
	// KindTabular aggregates raw incident CSV exports locally.
	KindTabular SourceKind = "tabular"
)

// Default year window for chart transcription when the manifest leaves it unset.
const (
	DefaultYearMin = 2014
	DefaultYearMax = 2024
)

// Source describes one city's data source in the manifest.
type Source struct {
	City string     `yaml:"city"`
	Kind SourceKind `yaml:"kind"`

	// Input is the directory holding the city's raw files (PDFs or CSVs),
	// relative to the data directory unless absolute.
	Input string `yaml:"input,omitempty"`

	// Categories drives per-category PDF questioning (pdfreport only).
	Categories []string `yaml:"categories,omitempty"`

	// Images lists chart image URLs; the category is derived from the
	// URL basename, e.g. .../grand-theft-auto.webp (chartimage only).
	Images []string `yaml:"images,omitempty"`

	// CategoryColumn names the CSV column holding the offense category
	// (tabular only), e.g. CATEGORY or OffenseCategory.
	CategoryColumn string `yaml:"category_column,omitempty"`

	// Model overrides the configured default model for this source.
	Model string `yaml:"model,omitempty"`

	// YearMin/YearMax bound accepted years (chartimage filtering and
	// tabular sanity checks). Zero values take the defaults.
	YearMin int `yaml:"year_min,omitempty"`
	YearMax int `yaml:"year_max,omitempty"`
}

// Manifest is the parsed sources.yaml.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// LoadManifest reads and validates the YAML source manifest.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.applyDefaults()
	return m, nil
}

func (m *Manifest) applyDefaults() {
	for i := range m.Sources {
		if m.Sources[i].YearMin == 0 {
			m.Sources[i].YearMin = DefaultYearMin
		}
		if m.Sources[i].YearMax == 0 {
			m.Sources[i].YearMax = DefaultYearMax
		}
	}
}

// Validate checks per-kind requirements.
func (m Manifest) Validate() error {
	if len(m.Sources) == 0 {
		return fmt.Errorf("no sources defined")
	}

	seen := make(map[string]bool, len(m.Sources))
	for i, s := range m.Sources {
		if strings.TrimSpace(s.City) == "" {
			return fmt.Errorf("source %d: city is empty", i)
		}
		if seen[s.City] {
			return fmt.Errorf("source %d: duplicate city %q", i, s.City)
		}
		seen[s.City] = true

		switch s.Kind {
		case KindPDFReport:
			if s.Input == "" {
				return fmt.Errorf("source %q: pdfreport requires input directory", s.City)
			}
			if len(s.Categories) == 0 {
				return fmt.Errorf("source %q: pdfreport requires categories", s.City)
			}
		case KindChartImage:
			if len(s.Images) == 0 {
				return fmt.Errorf("source %q: chartimage requires image URLs", s.City)
			}
			for _, img := range s.Images {
				u, err := url.Parse(img)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return fmt.Errorf("source %q: invalid image URL %q", s.City, img)
				}
			}
		case KindTabular:
			if s.Input == "" {
				return fmt.Errorf("source %q: tabular requires input directory", s.City)
			}
			if s.CategoryColumn == "" {
				return fmt.Errorf("source %q: tabular requires category_column", s.City)
			}
		default:
			return fmt.Errorf("source %q: unknown kind %q", s.City, s.Kind)
		}

		if s.YearMin != 0 && s.YearMax != 0 && s.YearMin > s.YearMax {
			return fmt.Errorf("source %q: year_min %d > year_max %d", s.City, s.YearMin, s.YearMax)
		}
	}
	return nil
}
