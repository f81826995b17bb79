// Package guardrails provides the per-date run lease that serializes
// consolidation runs for the same processing date
package guardrails

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ratelake/internal/modkit/repokit"
	perr "ratelake/internal/platform/errors"
	"ratelake/internal/platform/logger"
	"ratelake/internal/platform/store"
)

// ErrLeaseHeld signals another run owns the processing date already
var ErrLeaseHeld = errors.New("consolidate: run lease already held for date")

// Lease serializes work on one processing date
type Lease func(ctx context.Context, dt string, do func(context.Context) error) error

// MakeRunLease returns a Lease backed by the consolidation_run_leases table.
// The gold writer's pre-append existence check is not atomic across writers,
// so two runs for the same date must never overlap; the claim is an
// insert-on-conflict so exactly one caller wins. The lease is released when
// do returns, success or not, so a failed run stays safe to retry
func MakeRunLease(db repokit.TxRunner, owner string) Lease {
	owner = fmt.Sprintf("%s:%d", owner, os.Getpid())

	scanClaim := func(r store.Row) (bool, error) {
		var ok bool
		err := r.Scan(&ok)
		return ok, err
	}

	return func(ctx context.Context, dt string, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q store.RowQuerier) error {
			// ON CONFLICT DO NOTHING returns a row only to the winner
			_, err := store.One(ctx, q, scanClaim, `
				INSERT INTO consolidation_run_leases (dt, owner)
				VALUES ($1, $2)
				ON CONFLICT (dt) DO NOTHING
				RETURNING true
			`, dt, owner)
			if errors.Is(err, perr.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			claimed = true
			return nil
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}

		defer func() {
			// release is best effort; a stale lease is cleared by the next
			// operator, never by silently stealing it mid-run
			_, rerr := store.Exec(context.WithoutCancel(ctx), db, `
				DELETE FROM consolidation_run_leases WHERE dt = $1 AND owner = $2
			`, dt, owner)
			if rerr != nil {
				logger.C(ctx).Error().Err(rerr).Str("dt", dt).Msg("consolidate: lease release failed")
			}
		}()

		return do(ctx)
	}
}
