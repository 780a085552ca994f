// Package logger configures the process-wide structured logger and exposes
// per-component child loggers used across the bot.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects output level and format for the structured logger.
type Config struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	// L is the base logger. Component loggers below derive from it.
	L *slog.Logger

	// DB logs database connect/migrate events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// Banks logs test-bank repository activity.
	Banks *slog.Logger
	// Results logs result-store and ranking activity.
	Results *slog.Logger
	// WF logs workflow engine transitions.
	WF *slog.Logger
)

func init() {
	// A usable default so packages under test can log before Init runs.
	wire(slog.Default())
}

// Init configures the global structured logger. It may be called only once;
// later calls are ignored.
func Init(cfg Config) error {
	initOnce.Do(func() {
		levelVar.Set(parseLevel(cfg.Level))
		opts := &slog.HandlerOptions{Level: &levelVar}

		var handler slog.Handler
		switch strings.ToLower(cfg.Format) {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, opts)
		default:
			handler = slog.NewTextHandler(os.Stdout, opts)
		}

		logger := slog.New(handler)
		slog.SetDefault(logger)
		wire(logger)
	})
	return nil
}

// Component derives a child logger tagged with the given component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wire(base *slog.Logger) {
	L = base
	DB = base.With("component", "db")
	TG = base.With("component", "tg")
	Banks = base.With("component", "store.banks")
	Results = base.With("component", "store.results")
	WF = base.With("component", "workflow")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
