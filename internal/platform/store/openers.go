package store

import (
	"context"
	"fmt"
	"time"

	chx "ratelake/internal/platform/store/ch"
	"ratelake/internal/platform/store/pg"
)

// openPG dials postgres, waits until the pool answers pings, and publishes
// the runner only once it is healthy
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	if err := waitPG(ctx, p); err != nil {
		p.Close()
		return nil, err
	}

	r := newPGRunner(p)
	s.PG = r
	return r, nil
}

// waitPG pings the raw pool (not the runner, so no trace lines) with capped
// exponential backoff until it answers or the attempts run out
func waitPG(ctx context.Context, p *pg.PG) error {
	const attempts = 20
	backoff := 150 * time.Millisecond

	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = p.Pool.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff = min(backoff*2, 2*time.Second)
		}
	}
	return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.CH.Role})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}
