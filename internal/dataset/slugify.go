// SPDX-License-Identifier: MIT
package dataset

import (
	"regexp"
	"strings"
	"unicode"
)

var dashRun = regexp.MustCompile(`-+`)

// Slugify converts a category name into a filesystem-safe slug used for CSV
// filenames. Example: "Larceny / Theft & Fraud" becomes "larceny-theft-and-fraud".
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	slug = dashRun.ReplaceAllString(slug, "-")
	if slug == "" {
		return "uncategorized"
	}
	return slug
}
