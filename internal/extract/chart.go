// SPDX-License-Identifier: MIT
package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoSeries indicates that no usable year/count pairs were found.
var ErrNoSeries = errors.New("extract: no year/count pairs in answer")

// Point is one year/count pair read from a chart description.
type Point struct {
	Year  int
	Count int64
}

var (
	fenceRe    = regexp.MustCompile("(?s)```.*?```")
	sepRe      = regexp.MustCompile(`\s*[-:\x{2013}\x{2014}]\s*`)
	bulletRe   = regexp.MustCompile(`^[\-\*\x{2022}]\s*`)
	yearRe     = regexp.MustCompile(`^\d{4}$`)
	fallbackRe = regexp.MustCompile(`(\d{4})[^\d]{0,10}(\d+)`)
)

// ChartSeries parses year/count pairs from a vision-model answer describing a
// chart. The models answer in wildly different shapes (markdown code fences,
// bullet lists, "2014 - 123" lines, prose) so parsing proceeds in stages:
// sanitize, then line-by-line pairing, then a whole-text regex sweep as the
// last resort. Pairs outside [yearMin, yearMax] are dropped.
func ChartSeries(answer string, yearMin, yearMax int) ([]Point, error) {
	clean := sanitize(answer)

	points := parseLines(clean)
	if len(points) == 0 {
		points = parseFallback(clean)
	}

	filtered := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Year >= yearMin && p.Year <= yearMax {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrNoSeries
	}
	return filtered, nil
}

// sanitize strips markdown code fences and normalizes the separators models
// like to use between year and value (dash, colon, en/em dash) to commas.
func sanitize(text string) string {
	text = fenceRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Trim(m, "`")
	})
	text = strings.Trim(text, "`\n\r ")
	return sepRe.ReplaceAllString(text, ",")
}

func parseLines(text string) []Point {
	var points []Point
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = bulletRe.ReplaceAllString(line, "")

		var parts []string
		if strings.Contains(line, ",") {
			for _, p := range strings.Split(line, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
		} else {
			parts = strings.Fields(line)
		}
		if len(parts) < 2 {
			continue
		}

		if p, ok := pairFromParts(parts); ok {
			points = append(points, p)
		}
	}
	return points
}

// pairFromParts expects the year first, but also handles lines like
// "Robbery 2014 123" where a label precedes the year.
func pairFromParts(parts []string) (Point, bool) {
	if yearRe.MatchString(parts[0]) {
		return buildPoint(parts[0], parts[1])
	}
	for i, p := range parts {
		if yearRe.MatchString(p) && i+1 < len(parts) {
			return buildPoint(p, parts[i+1])
		}
	}
	return Point{}, false
}

func buildPoint(yearTok, countTok string) (Point, bool) {
	year, err := strconv.Atoi(yearTok)
	if err != nil {
		return Point{}, false
	}
	count, err := Count(countTok)
	if err != nil {
		return Point{}, false
	}
	return Point{Year: year, Count: count}, true
}

func parseFallback(text string) []Point {
	var points []Point
	for _, m := range fallbackRe.FindAllStringSubmatch(text, -1) {
		if p, ok := buildPoint(m[1], m[2]); ok {
			points = append(points, p)
		}
	}
	return points
}
