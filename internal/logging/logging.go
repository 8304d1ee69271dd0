// Package logging builds the component-tagged zerolog loggers used across the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the level and encoding of a logger.
type Options struct {
	Level  string    // trace, debug, info, warn, error; default info
	Format string    // json or console; default json
	Output io.Writer // default os.Stdout
}

// New creates a logger with component metadata.
func New(component string, opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	zerolog.DurationFieldUnit = time.Millisecond

	return zerolog.New(out).With().
		Timestamp().
		Str("component", component).
		Logger().
		Level(level), nil
}

// MustNew is New for process entry points; it exits on a bad configuration.
func MustNew(component string, opts Options) zerolog.Logger {
	l, err := New(component, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	return l
}

// Component derives a child logger for a sub-component.
func Component(parent zerolog.Logger, name string) *zerolog.Logger {
	l := parent.With().Str("sub", name).Logger()
	return &l
}
