// Package logging provides structured logging with console output.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New creates the service's root logger. Components derive their own loggers
// from it with With().Str("component", ...).
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}

	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Str("app", "callerd").
		Logger()
}
