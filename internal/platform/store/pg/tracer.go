package pg

import (
	"context"
	"strings"

	"quakeingest/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement round trip
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
	TxDepth   int // 0 pool, 1 transaction, 2+ savepoint
}

// QueryTracer receives one event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints SQL regardless of the root level.
// Clean statements log at debug, failed ones at info and slow ones at warn
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	var evt *zerolog.Event
	switch {
	case ev.Slow:
		evt = z.log.Warn()
	case ev.Err != nil:
		evt = z.log.Info()
	default:
		evt = z.log.Debug()
	}

	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("scope", scope(ev.TxDepth)).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg statement")
}

func scope(depth int) string {
	switch {
	case depth <= 0:
		return "pool"
	case depth == 1:
		return "tx"
	default:
		return "savepoint"
	}
}

// compact folds multi-line statements onto one log line
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
