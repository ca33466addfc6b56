// Package logging provides the zerolog-based loggers used across the app.
// Each package obtains a component logger via Component("name") so log lines
// are attributable without per-call boilerplate.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds log output configuration.
type Config struct {
	Level  string // trace, debug, info, warn, error; default info
	Format string // "console" or "json"; default console
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

func init() {
	initLogger(Config{})
}

// Init configures the root logger. Safe to call more than once; loggers
// created by Component after the call pick up the new configuration.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}
	root = zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
