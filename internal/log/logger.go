// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger. Zero values
// fall back to the LOG_LEVEL / LOG_SERVICE environment and sane defaults.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

var (
	once sync.Once
	base zerolog.Logger
)

func parseLevel(candidates ...string) zerolog.Level {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if lvl, err := zerolog.ParseLevel(strings.ToLower(c)); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Configure initialises the global zerolog logger exactly once. Later calls
// are no-ops, so subcommands can call it defensively.
func Configure(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level, os.Getenv("LOG_LEVEL")))
		zerolog.TimeFieldFormat = time.RFC3339

		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}

		base = zerolog.New(out).With().
			Timestamp().
			Str("service", firstNonEmpty(cfg.Service, os.Getenv("LOG_SERVICE"), "crimetrend")).
			Str("version", firstNonEmpty(cfg.Version, os.Getenv("VERSION"))).
			Logger()
	})
}

func logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}
