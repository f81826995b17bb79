// Package store fronts the two backends the pipeline talks to: postgres
// for the control plane and clickhouse for gold facts. Repos depend on the
// seams here, never on driver types, so tests can script them.
package store

import (
	"context"
	"errors"
	"fmt"

	"ratelake/internal/platform/logger"
)

// Store holds whichever backends the binary enabled; disabled ones stay nil
type Store struct {
	Log logger.Logger

	// PG is the control-plane sql seam
	PG TxRunner

	// CH is the gold-store seam
	CH Clickhouse
}

// Row is the single-row scan contract
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set; Err reports what stopped the iteration
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports the outcome of a write statement
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the statement surface repos program against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner adds transactional execution; fn runs against the open tx and
// any error rolls it back
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse covers what the gold repo needs: DDL, one-block batch
// appends, and key lookups
type Clickhouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	AppendBatch(ctx context.Context, insertSQL string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Pinger is implemented by seams that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open dials every backend cfg enables. A backend left disabled stays nil
// on the returned Store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	// a zero logger still logs nowhere, but is safe to call
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		runner, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = runner
	}
	if cfg.CH.Enabled {
		gold, err := openCH(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.CH = gold
	}
	return s, nil
}

// Guard pings every open backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	ping := func(name string, v any) error {
		p, ok := v.(Pinger)
		if v == nil || !ok {
			return nil
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	var errs []error
	if s.PG != nil {
		if err := ping("pg", s.PG); err != nil {
			errs = append(errs, err)
		}
	}
	if s.CH != nil {
		if err := ping("ch", s.CH); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close shuts down every open backend; nil ones are skipped
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if s.CH != nil {
		if err := s.CH.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
