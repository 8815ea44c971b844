// Package logging wraps zerolog with process-wide defaults and run-scoped
// child loggers.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Zuo-Peng/sesslog/internal/config"
)

// Options configures the root logger.
type Options struct {
	Level  string
	Format string // "console" or "json"
	Writer io.Writer
}

// FromConfig maps the [log] config section to Options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Level:  strings.ToLower(cfg.Log.Level),
		Format: strings.ToLower(cfg.Log.Format),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

type Logger = zerolog.Logger

// New builds a logger from opts without touching the process-wide root.
func New(opts Options) Logger {
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
}

// Init builds the root logger. Only the first call has any effect.
func Init(opts Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log := New(opts)
		root.Store(&log)
		inited.Store(true)
	})
}

// Get returns the root logger, initialising it with defaults if needed.
func Get() *Logger {
	if !inited.Load() {
		Init(Options{Level: "info"})
	}
	return root.Load()
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type ctxKey struct{}

// WithRun tags ctx with a run id. An empty id gets a fresh UUID.
func WithRun(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RunID returns the run id stored in ctx, if any.
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// C returns a child logger carrying the run id from ctx.
func C(ctx context.Context) *Logger {
	l := Get()
	id := RunID(ctx)
	if id == "" {
		return l
	}
	ll := l.With().Str("run_id", id).Logger()
	return &ll
}
