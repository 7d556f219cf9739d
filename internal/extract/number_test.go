// SPDX-License-Identifier: MIT
package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   int64
		ok     bool
	}{
		{"plain number", "4521", 4521, true},
		{"thousands separator", "12,345", 12345, true},
		{"surrounding whitespace", "  789 \n", 789, true},
		{"trailing period", "512.", 512, true},
		{"zero", "0", 0, true},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"prose answer", "There were 4521 thefts", 0, false},
		{"negative", "-3", 0, false},
		{"decimal", "12.5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Count(tt.answer)
			if !tt.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotANumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
