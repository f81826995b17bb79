// Package logger wraps zerolog behind one process-wide root logger plus
// context helpers that stamp pipeline fields (run_id, dt, source) onto
// child loggers.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ratelake/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project logging type; an alias keeps call sites decoupled
// from zerolog should the backend ever move
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	StaticFields map[string]string
}

// FromEnv builds Options from LOG_* variables via the raw env view,
// which keeps logger free of the config package
func FromEnv() Options {
	env := raw.Prefix("LOG_")
	return Options{
		Level:      strings.ToLower(env.String("LEVEL", "debug")),
		Format:     strings.ToLower(env.String("FORMAT", "console")),
		Service:    env.String("SERVICE", "ratelake"),
		Component:  env.String("COMPONENT", ""),
		WithCaller: env.Bool("CALLER", false),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the root logger, initializing from env on first use
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger. Only the first call wins; later calls are
// no-ops so libraries cannot reconfigure the binary's logging.
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log := zerolog.New(sink(opt)).Level(parseLevel(opt.Level))
		lc := log.With().Timestamp()

		if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
			lc = lc.Str("go_version", bi.GoVersion)
		}
		if opt.Service != "" {
			lc = lc.Str("service", opt.Service)
		}
		if opt.Component != "" {
			lc = lc.Str("component", opt.Component)
		}
		for k, v := range opt.StaticFields {
			lc = lc.Str(k, v)
		}
		if opt.WithCaller {
			lc = lc.Caller()
		}

		log = lc.Logger()
		root.Store(&log)
		inited.Store(true)
	})
}

func sink(opt Options) io.Writer {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.DebugLevel
	}
}

type ctxKey struct{ name string }

var (
	keyRunID  = ctxKey{"run_id"}
	keyRunDT  = ctxKey{"dt"}
	keySource = ctxKey{"source"}
)

// WithRun annotates ctx with the consolidation run id and business date
func WithRun(ctx context.Context, runID, dt string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, keyRunID, runID)
	}
	if dt != "" {
		ctx = context.WithValue(ctx, keyRunDT, dt)
	}
	return ctx
}

// WithSource annotates ctx with the silver source being processed
func WithSource(ctx context.Context, source string) context.Context {
	if source != "" {
		ctx = context.WithValue(ctx, keySource, source)
	}
	return ctx
}

// C returns a child logger carrying whichever pipeline fields ctx holds
func C(ctx context.Context) *Logger {
	lc := Get().With()
	for _, k := range []ctxKey{keyRunID, keyRunDT, keySource} {
		if s, ok := ctx.Value(k).(string); ok && s != "" {
			lc = lc.Str(k.name, s)
		}
	}
	l := lc.Logger()
	return &l
}

// Named returns a child logger tagged with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
