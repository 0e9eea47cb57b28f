package store

import (
	"context"
	"errors"
	"time"

	"quakeingest/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxConn is the statement surface shared by *pgxpool.Pool and pgx.Tx
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// conn adapts a pgx pool or transaction to TxRunner.
// depth is 0 on the pool, 1 inside a window transaction and 2+ inside savepoints
type conn struct {
	c      pgxConn
	tracer pg.QueryTracer
	slowUS int64
	depth  int
}

// pgAdapter is the pool-level conn plus lifecycle
type pgAdapter struct {
	conn
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		conn: conn{c: p.Pool, tracer: p.Tracer, slowUS: int64(p.SlowMs) * 1000},
		p:    p,
	}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (c conn) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := c.c.Exec(ctx, sql, args...)
	c.emit(ctx, sql, args, start, err)
	return tag{ct}, err
}

// QueryRow defers the trace event until Scan so the scan error is reported
func (c conn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{
		r: c.c.QueryRow(ctx, sql, args...),
		after: func(scanErr error) {
			c.emit(ctx, sql, args, start, scanErr)
		},
	}
}

// Tx begins a transaction on the pool, or a savepoint when c is already
// inside one. fn's error rolls back; success commits or releases.
// The rollback ignores ctx cancellation so a timed out savepoint still
// returns the enclosing transaction to a usable state
func (c conn) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := c.c.Begin(ctx)
	if err != nil {
		return err
	}
	inner := conn{c: tx, tracer: c.tracer, slowUS: c.slowUS, depth: c.depth + 1}
	if err := fn(inner); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (c conn) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if c.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	c.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      c.slowUS >= 0 && elapsedUS >= c.slowUS,
		TxDepth:   c.depth,
	})
}

type row struct {
	r     pgx.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }
