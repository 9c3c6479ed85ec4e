// Package logging provides structured logging for csfbench using zerolog.
//
// The process-wide logger is configured once by Init. Components that run
// inside a benchmark pick their logger up from the context so that fields
// such as the implementation name and trial index follow the call stack.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger *zerolog.Logger

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger.
// If debug is true, sets log level to Debug.
// If human is true, uses a console writer instead of JSON lines.
func Init(debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	logger = &l
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// SetLogger overrides the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}

// WithComponent returns a logger with the component field set.
func WithComponent(component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

type loggerKey struct{}

// WithLogger returns a new context carrying l.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext extracts the logger stored by WithLogger, falling back to the
// global logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return *logger
}
