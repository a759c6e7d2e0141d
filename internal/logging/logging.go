// Package logging provides structured logging for otto-sync components.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

// configure sets up the process-wide zerolog base logger from OTTO_LOG_LEVEL.
func configure() {
	level := zerolog.InfoLevel
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("OTTO_LOG_LEVEL"))); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a logger tagged with a "component" field, used by
// every package so log lines can be filtered by subsystem.
func WithComponent(name string) zerolog.Logger {
	once.Do(configure)
	return base.With().Str("component", name).Logger()
}
