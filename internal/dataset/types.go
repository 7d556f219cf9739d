// SPDX-License-Identifier: MIT

// Package dataset holds the core domain types and CSV artifact layout.
package dataset

import "sort"

// Observation is one crime count for a city, category and year.
type Observation struct {
	City     string `json:"city"`
	Category string `json:"category"`
	Year     int    `json:"year"`
	Count    int64  `json:"count"`
	// Source identifies the collector kind that produced the observation
	// ("pdfreport", "chartimage" or "tabular").
	Source string `json:"source,omitempty"`
}

// SortObservations orders observations by city, category, year.
// CSV artifacts and API responses rely on this deterministic order.
func SortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].City != obs[j].City {
			return obs[i].City < obs[j].City
		}
		if obs[i].Category != obs[j].Category {
			return obs[i].Category < obs[j].Category
		}
		return obs[i].Year < obs[j].Year
	})
}

// GroupByCategory splits observations into per-category slices keyed by the
// category slug.
func GroupByCategory(obs []Observation) map[string][]Observation {
	groups := make(map[string][]Observation)
	for _, o := range obs {
		key := Slugify(o.Category)
		groups[key] = append(groups[key], o)
	}
	return groups
}
