// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects the log encoding.
type Format string

const (
	// FormatJSON writes one JSON object per line (server).
	FormatJSON Format = "json"
	// FormatConsole writes human-readable lines (CLI).
	FormatConsole Format = "console"
)

// Setup configures the global logger. Unknown levels fall back to info.
func Setup(level string, format Format, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	if format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// SetupCLI maps the -v count to a level: 0 warn, 1 info, 2 debug, 3+ trace.
func SetupCLI(verbosity int, out io.Writer) zerolog.Logger {
	level := "warn"
	switch {
	case verbosity == 1:
		level = "info"
	case verbosity == 2:
		level = "debug"
	case verbosity >= 3:
		level = "trace"
	}
	logger := Setup(level, FormatConsole, out)
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
		logger = log.Logger
	}
	return logger
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// GetLogger returns a contextualized logger with the given component name
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
