// SPDX-License-Identifier: MIT

// Package extract turns free-form model answers into structured numbers.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotANumber indicates the answer could not be reduced to a single count.
var ErrNotANumber = errors.New("extract: answer is not a number")

// Count parses a single crime count from a model answer. Models asked for
// "only the number" still tend to add thousands separators, whitespace or a
// trailing period, so those are tolerated. Anything else is rejected rather
// than guessed at.
func Count(answer string) (int64, error) {
	s := strings.TrimSpace(answer)
	s = strings.TrimSuffix(s, ".")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, fmt.Errorf("%w: empty answer", ErrNotANumber)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, truncate(answer, 80))
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrNotANumber, n)
	}
	return n, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
