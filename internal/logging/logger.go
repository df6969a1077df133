// Package logging defines the structured logger abstraction used across the
// coordinator, peer and client tiers.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the levelled logging interface every component is built
// against. A component never imports zerolog directly; it only ever sees
// this interface, so the backing implementation can be swapped (as in
// tests, where a silent logger is used).
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// With returns a derived logger carrying the given key/value pair on
	// every subsequent line, e.g. With("party_id", 0).
	With(key string, value interface{}) Logger
}

// zerologLogger is the default Logger implementation, backed by
// github.com/rs/zerolog.
type zerologLogger struct {
	log zerolog.Logger
}

// New builds the default logger, writing leveled, timestamped lines to w.
func New(w io.Writer, debug bool) Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologLogger{log: zl}
}

// NewDefault returns the default stderr-backed logger.
func NewDefault(debug bool) Logger {
	return New(os.Stderr, debug)
}

// Discard returns a Logger that drops every line; useful in unit tests that
// don't want log noise but still need to satisfy the Logger interface.
func Discard() Logger {
	return New(io.Discard, false)
}

func (l *zerologLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologLogger) Fatalf(format string, args ...interface{}) {
	l.log.Fatal().Msgf(format, args...)
}

func (l *zerologLogger) With(key string, value interface{}) Logger {
	return &zerologLogger{log: l.log.With().Interface(key, value).Logger()}
}
