package pg

import (
	"context"
	"strings"

	"ratelake/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one executed statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives an event per statement when SQL logging is on
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer builds a tracer that logs every statement at info, slow ones at
// warn. The child logger is pinned to debug level so LogSQL=true prints
// regardless of the process-wide level.
func Tracer(root logger.Logger) QueryTracer {
	return &sqlTracer{
		log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger(),
	}
}

type sqlTracer struct{ log logger.Logger }

func (t *sqlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := t.log.Info()
	if ev.Slow {
		evt = t.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", strings.Join(strings.Fields(ev.SQL), " ")).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}
