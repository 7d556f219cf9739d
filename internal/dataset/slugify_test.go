// SPDX-License-Identifier: MIT
package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Robbery", "robbery"},
		{"spaces", "Aggravated Assault", "aggravated-assault"},
		{"slash", "Larceny/Theft", "larceny-theft"},
		{"ampersand", "Theft & Fraud", "theft-and-fraud"},
		{"mixed", "Larceny / Theft & Fraud", "larceny-theft-and-fraud"},
		{"underscore kept", "grand_theft_auto", "grand_theft_auto"},
		{"punctuation stripped", "Homicide (Murder)", "homicide-murder"},
		{"leading and trailing", "  Burglary  ", "burglary"},
		{"empty", "", "uncategorized"},
		{"only symbols", "///", "uncategorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
