package store

import (
	"context"
	"errors"
	"time"

	"ratelake/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgQuerier is the subset of pgxpool.Pool and pgx.Tx the runner needs,
// so pool-backed and tx-backed execution share one code path
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgRunner implements RowQuerier and TxRunner on top of *pg.PG
type pgRunner struct {
	p *pg.PG
}

func newPGRunner(p *pg.PG) *pgRunner { return &pgRunner{p: p} }

func (r *pgRunner) Ping(ctx context.Context) error {
	if r == nil || r.p == nil {
		return errors.New("pg: runner not opened")
	}
	var one int
	return r.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (r *pgRunner) Close() error { r.p.Close(); return nil }

func (r *pgRunner) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return r.traced().exec(ctx, r.p.Pool, sql, args)
}

func (r *pgRunner) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return r.traced().query(ctx, r.p.Pool, sql, args)
}

func (r *pgRunner) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return r.traced().queryRow(ctx, r.p.Pool, sql, args)
}

// Tx runs fn inside a transaction; any error from fn rolls back
func (r *pgRunner) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := r.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(pgTxRunner{tx: tx, tr: r.traced()}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgRunner) traced() pgTrace {
	return pgTrace{tracer: r.p.Tracer, slowUS: int64(r.p.SlowMs) * 1000}
}

// pgTxRunner satisfies RowQuerier over an open pgx.Tx
type pgTxRunner struct {
	tx pgx.Tx
	tr pgTrace
}

func (t pgTxRunner) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.tr.exec(ctx, t.tx, sql, args)
}

func (t pgTxRunner) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.tr.query(ctx, t.tx, sql, args)
}

func (t pgTxRunner) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.tr.queryRow(ctx, t.tx, sql, args)
}

// pgTrace times statements and reports them to the optional tracer
type pgTrace struct {
	tracer pg.QueryTracer
	slowUS int64
}

func (t pgTrace) exec(ctx context.Context, q pgQuerier, sql string, args []any) (CommandTag, error) {
	start := time.Now()
	ct, err := q.Exec(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	return pgTag{ct}, err
}

func (t pgTrace) query(ctx context.Context, q pgQuerier, sql string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := q.Query(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

func (t pgTrace) queryRow(ctx context.Context, q pgQuerier, sql string, args []any) Row {
	start := time.Now()
	// a pgx.Row only surfaces its error through Scan, so tracing happens then
	return pgRow{
		inner: q.QueryRow(ctx, sql, args...),
		done:  func(scanErr error) { t.emit(ctx, sql, args, start, scanErr) },
	}
}

func (t pgTrace) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	us := time.Since(start).Microseconds()
	t.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: us,
		Err:       err,
		Slow:      t.slowUS >= 0 && us >= t.slowUS,
	})
}

type pgRow struct {
	inner pgx.Row
	done  func(error)
}

func (r pgRow) Scan(dest ...any) error {
	err := r.inner.Scan(dest...)
	if r.done != nil {
		r.done(err)
	}
	return err
}

type pgRows struct{ inner pgx.Rows }

func (r pgRows) Next() bool             { return r.inner.Next() }
func (r pgRows) Scan(dest ...any) error { return r.inner.Scan(dest...) }
func (r pgRows) Err() error             { return r.inner.Err() }
func (r pgRows) Close()                 { r.inner.Close() }

type pgTag struct{ ct pgconn.CommandTag }

func (t pgTag) String() string      { return t.ct.String() }
func (t pgTag) RowsAffected() int64 { return t.ct.RowsAffected() }
