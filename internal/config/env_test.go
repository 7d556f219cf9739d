// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	t.Setenv("TEST_PARSE_STRING", "value")
	if got := ParseString("TEST_PARSE_STRING", "default"); got != "value" {
		t.Errorf("got %q", got)
	}
	if got := ParseString("TEST_PARSE_STRING_MISSING", "default"); got != "default" {
		t.Errorf("got %q", got)
	}

	t.Setenv("TEST_PARSE_STRING_EMPTY", "")
	if got := ParseString("TEST_PARSE_STRING_EMPTY", "default"); got != "default" {
		t.Errorf("empty env should fall back to default, got %q", got)
	}
}

func TestParseInt(t *testing.T) {
	t.Setenv("TEST_PARSE_INT", "42")
	if got := ParseInt("TEST_PARSE_INT", 7); got != 42 {
		t.Errorf("got %d", got)
	}

	t.Setenv("TEST_PARSE_INT_BAD", "not-a-number")
	if got := ParseInt("TEST_PARSE_INT_BAD", 7); got != 7 {
		t.Errorf("invalid int should fall back to default, got %d", got)
	}

	if got := ParseInt("TEST_PARSE_INT_MISSING", 7); got != 7 {
		t.Errorf("got %d", got)
	}
}

func TestParseBool(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
	}
	for _, tc := range cases {
		t.Setenv("TEST_PARSE_BOOL", tc.value)
		if got := ParseBool("TEST_PARSE_BOOL", !tc.want); got != tc.want {
			t.Errorf("value %q: got %v", tc.value, got)
		}
	}

	t.Setenv("TEST_PARSE_BOOL", "maybe")
	if got := ParseBool("TEST_PARSE_BOOL", true); got != true {
		t.Error("invalid bool should fall back to default")
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("TEST_PARSE_DURATION", "90s")
	if got := ParseDuration("TEST_PARSE_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("got %s", got)
	}

	// Bare integers are seconds
	t.Setenv("TEST_PARSE_DURATION", "30")
	if got := ParseDuration("TEST_PARSE_DURATION", time.Second); got != 30*time.Second {
		t.Errorf("bare integer: got %s", got)
	}

	t.Setenv("TEST_PARSE_DURATION", "banana")
	if got := ParseDuration("TEST_PARSE_DURATION", 5*time.Second); got != 5*time.Second {
		t.Errorf("invalid duration should fall back to default, got %s", got)
	}
}

func TestParseStringSlice(t *testing.T) {
	t.Setenv("TEST_PARSE_SLICE", "a, b ,c,,")
	got := ParseStringSlice("TEST_PARSE_SLICE", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %v", got)
	}

	if got := ParseStringSlice("TEST_PARSE_SLICE_MISSING", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v", got)
	}
}
