// Package log configures the process-wide zerolog logger.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the base logger.
type Config struct {
	Level  string    // "debug", "info", ... (falls back to LOG_LEVEL, then info)
	Output io.Writer // defaults to os.Stderr
	Pretty bool      // human readable console output
}

var (
	once sync.Once
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Configure initialises the base logger. Only the first call has an effect.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		raw := cfg.Level
		if raw == "" {
			raw = os.Getenv("LOG_LEVEL")
		}
		if raw != "" {
			if parsed, err := zerolog.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		if cfg.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
		}

		mu.Lock()
		base = zerolog.New(out).With().Timestamp().Str("service", "storyreel").Logger()
		mu.Unlock()
	})
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

// Discard returns a logger that drops everything. Handy for tests.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
